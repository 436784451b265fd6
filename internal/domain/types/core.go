package types

import (
	"encoding/json"
	"strings"
)

// Token is a public key used as an identity. It always holds the canonical
// form of the PEM text: every CR and LF removed and surrounding whitespace
// trimmed, so re-wrapped copies of the same key compare equal.
type Token string

// ParseToken canonicalises s into a Token.
func ParseToken(s string) Token {
	return Token(Canonical(s))
}

// Canonical strips line breaks and surrounding whitespace from a PEM string.
func Canonical(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return strings.TrimSpace(s)
}

// String returns the canonical form.
func (t Token) String() string { return string(t) }

// IsZero reports whether the token is empty.
func (t Token) IsZero() bool { return t == "" }

// Equal compares two tokens by canonical content.
func (t Token) Equal(other Token) bool {
	return Canonical(string(t)) == Canonical(string(other))
}

// PEM re-wraps the canonical form into 64-column PEM text.
func (t Token) PEM() string {
	s := string(t)
	const begin = "-----BEGIN "
	if !strings.HasPrefix(s, begin) {
		return s
	}
	end := strings.Index(s[len(begin):], "-----")
	if end < 0 {
		return s
	}
	headerEnd := len(begin) + end + len("-----")
	footer := strings.LastIndex(s, "-----END ")
	if footer < headerEnd {
		return s
	}

	body := strings.Join(strings.Fields(s[headerEnd:footer]), "")
	var b strings.Builder
	b.WriteString(s[:headerEnd])
	b.WriteByte('\n')
	for len(body) > 64 {
		b.WriteString(body[:64])
		b.WriteByte('\n')
		body = body[64:]
	}
	if body != "" {
		b.WriteString(body)
		b.WriteByte('\n')
	}
	b.WriteString(s[footer:])
	b.WriteByte('\n')
	return b.String()
}

// UnmarshalJSON canonicalises tokens read from the wire or from disk.
func (t *Token) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseToken(s)
	return nil
}

// GroupID is a locally chosen group identifier (name plus creation time).
type GroupID string

// String returns the string form of the group identifier.
func (g GroupID) String() string { return string(g) }
