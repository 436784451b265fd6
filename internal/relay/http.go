package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ciphergroup/internal/domain"
)

// HTTP is a relay client over plain HTTP(S).
type HTTP struct {
	Base string
	HTTP *http.Client
}

// NewHTTP returns a client for the relay at base. Every request is bounded
// by timeout.
func NewHTTP(base string, timeout time.Duration) *HTTP {
	return &HTTP{
		Base: strings.TrimRight(base, "/"),
		HTTP: &http.Client{Timeout: timeout},
	}
}

// Enqueue stores payload in the mailbox of recipient.
func (c *HTTP) Enqueue(ctx context.Context, recipient string, payload []byte) error {
	return c.post(ctx, mailboxPath(recipient), payload)
}

// FetchSince lists the items of recipient newer than since.
func (c *HTTP) FetchSince(ctx context.Context, recipient string, since int64) ([]domain.Item, error) {
	var items []domain.Item
	path := mailboxPath(recipient) + "?since=" + strconv.FormatInt(since, 10)
	if err := c.getJSON(ctx, path, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func mailboxPath(recipient string) string {
	return "/msg/" + url.PathEscape(recipient)
}

// post sends body and drains the reply; the relay's {"id","ts"} receipt is
// not needed by senders.
func (c *HTTP) post(ctx context.Context, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: relay post %s: %v", domain.ErrTransport, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: relay post %s: %s", domain.ErrTransport, path, resp.Status)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *HTTP) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: relay get %s: %v", domain.ErrTransport, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: relay get %s: %s", domain.ErrTransport, path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: relay get %s: decode: %v", domain.ErrTransport, path, err)
	}
	return nil
}

var _ domain.RelayClient = (*HTTP)(nil)
