package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"ciphergroup/internal/crypto"
	"ciphergroup/internal/domain"
	"ciphergroup/internal/replay"
	"ciphergroup/internal/services/state"
	"ciphergroup/internal/trust"
)

// SelfName is how the local identity is rendered in message lines.
const SelfName = "You"

// Service sends and receives group messages over the relay.
type Service struct {
	keeper   *state.Keeper
	relay    domain.RelayClient
	log      logrus.FieldLogger
	validate *validator.Validate
	now      func() time.Time
}

// New constructs a message Service around the loaded state and relay client.
func New(keeper *state.Keeper, relay domain.RelayClient, log logrus.FieldLogger) *Service {
	return &Service{
		keeper:   keeper,
		relay:    relay,
		log:      log,
		validate: validator.New(),
		now:      time.Now,
	}
}

// WithClock overrides the time source used for body timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SendHello announces guid and its participant list to every participant.
func (s *Service) SendHello(ctx context.Context, guid domain.GroupID) error {
	participants, ok := s.keeper.Trust().Participants(guid)
	if !ok {
		return fmt.Errorf("%w: %s", trust.ErrUnknownGroup, guid)
	}
	return s.Send(ctx, domain.Hello{
		From:         s.keeper.Self(),
		GUID:         guid,
		Participants: participants,
		TS:           s.now().UnixMilli(),
	})
}

// SendText sends one line of text to the group.
func (s *Service) SendText(ctx context.Context, guid domain.GroupID, text string) error {
	return s.Send(ctx, domain.Text{
		From:     s.keeper.Self(),
		GUID:     guid,
		TS:       s.now().UnixMilli(),
		DataType: domain.DataTypeText,
		Data:     text,
	})
}

// Send signs body and fans it out to the participants of its group.
func (s *Service) Send(ctx context.Context, body domain.Body) error {
	participants, ok := s.keeper.Trust().Participants(body.Group())
	if !ok {
		return fmt.Errorf("%w: %s", trust.ErrUnknownGroup, body.Group())
	}
	raw, err := domain.MarshalBody(body)
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(s.keeper.PrivateKey(), raw)
	if err != nil {
		return fmt.Errorf("sign body: %w", err)
	}
	signed, err := json.Marshal(domain.SignedBody{Body: string(raw), Signature: sig})
	if err != nil {
		return err
	}
	return s.FanOut(ctx, signed, participants)
}

// FanOut encrypts payload once under a fresh key and enqueues one envelope
// per participant. A failure for one recipient does not stop the others; all
// failures are joined into the returned error.
func (s *Service) FanOut(ctx context.Context, payload []byte, participants []domain.Token) error {
	key, err := crypto.NewSymmetricKey()
	if err != nil {
		return err
	}
	defer key.Wipe()

	ciphertext := crypto.SymEncrypt(key, payload)

	var errs []error
	for _, p := range participants {
		recipient := crypto.Identifier(p)
		logger := s.log.WithField("recipient", recipient)

		if err := s.deliver(ctx, p, recipient, key, ciphertext); err != nil {
			logger.WithError(err).Warn("delivery failed")
			errs = append(errs, fmt.Errorf("deliver to %s: %w", recipient, err))
			continue
		}
		logger.Debug("envelope enqueued")
	}
	return errors.Join(errs...)
}

func (s *Service) deliver(
	ctx context.Context,
	participant domain.Token,
	recipient string,
	key crypto.SymmetricKey,
	ciphertext string,
) error {
	wrapped, err := crypto.WrapKey(participant, key)
	if err != nil {
		return err
	}
	env, err := json.Marshal(domain.Envelope{WrappedKey: wrapped, Ciphertext: ciphertext})
	if err != nil {
		return err
	}
	return s.relay.Enqueue(ctx, recipient, env)
}

// Poll fetches everything newer than the cursor, processes it in relay
// order and advances the cursor to the newest item, all in one state
// transaction. It returns the number of items fetched. Per-item failures are
// logged and never returned.
func (s *Service) Poll(ctx context.Context) (int, error) {
	var fetched int
	err := s.keeper.Update(ctx, func() error {
		since := s.keeper.Cursor()
		items, err := s.relay.FetchSince(ctx, s.keeper.Identifier(), since)
		if err != nil {
			return err
		}
		fetched = len(items)

		maxTS := since
		for _, item := range items {
			if item.TS > maxTS {
				maxTS = item.TS
			}
			if err := s.Process(ctx, item); err != nil {
				s.log.WithFields(logrus.Fields{
					"item":   item.ID,
					"ts":     item.TS,
					"reason": Reason(err),
				}).WithError(err).Info("item dropped")
			}
		}
		s.keeper.Advance(maxTS)
		return nil
	})
	return fetched, err
}

// Process handles one relay item. The returned error names why the item was
// dropped; it is nil when the item was accepted or was a harmless repeat of
// a known group.
func (s *Service) Process(_ context.Context, item domain.Item) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", domain.ErrMalformed, r)
		}
	}()

	var env domain.Envelope
	if err := json.Unmarshal([]byte(item.Data), &env); err != nil {
		return fmt.Errorf("%w: envelope: %v", domain.ErrMalformed, err)
	}
	if err := s.validate.Struct(env); err != nil {
		return fmt.Errorf("%w: envelope: %v", domain.ErrMalformed, err)
	}

	key, err := crypto.UnwrapKey(s.keeper.PrivateKey(), env.WrappedKey)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotForMe, err)
	}
	defer key.Wipe()

	plain, err := crypto.SymDecrypt(key, env.Ciphertext)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDecrypt, err)
	}

	var signed domain.SignedBody
	if err := json.Unmarshal(plain, &signed); err != nil {
		return fmt.Errorf("%w: signed body: %v", domain.ErrMalformed, err)
	}
	if err := s.validate.Struct(signed); err != nil {
		return fmt.Errorf("%w: signed body: %v", domain.ErrMalformed, err)
	}
	body, err := domain.UnmarshalBody([]byte(signed.Body))
	if err != nil {
		return fmt.Errorf("%w: body: %v", domain.ErrMalformed, err)
	}
	if err := s.validate.Struct(body); err != nil {
		return fmt.Errorf("%w: body: %v", domain.ErrMalformed, err)
	}

	// Nothing below runs for a body that does not verify under its own sender.
	if !crypto.Verify(body.Sender(), []byte(signed.Body), signed.Signature) {
		return domain.ErrSignature
	}
	if err := s.keeper.Guard().Check(body.Timestamp(), []byte(signed.Body)); err != nil {
		return err
	}
	return s.dispatch(body)
}

func (s *Service) dispatch(body domain.Body) error {
	switch b := body.(type) {
	case domain.Hello:
		return s.acceptHello(b)
	case domain.Text:
		return s.acceptText(b)
	default:
		return fmt.Errorf("%w: unhandled body %T", domain.ErrMalformed, body)
	}
}

func (s *Service) acceptHello(h domain.Hello) error {
	tr := s.keeper.Trust()
	if !tr.IsFriend(h.From) && !h.From.Equal(s.keeper.Self()) {
		return fmt.Errorf("%w: hello from non-friend", domain.ErrUnauthorized)
	}
	logger := s.log.WithField("guid", h.GUID)
	if !tr.AddGroup(h.GUID, h.Participants) {
		logger.Debug("group already known")
		return nil
	}
	logger.WithField("from", tr.ResolveName(h.From)).Info("group created")
	return nil
}

func (s *Service) acceptText(t domain.Text) error {
	tr := s.keeper.Trust()
	if !tr.IsMember(t.GUID, t.From) {
		return fmt.Errorf("%w: sender not in group", domain.ErrUnauthorized)
	}
	name := tr.ResolveName(t.From)
	if t.From.Equal(s.keeper.Self()) {
		name = SelfName
	}
	tr.AppendMessage(t.GUID, name+": "+t.Data)
	return nil
}

// Reason maps a receive-path error to a short label for logs.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrNotForMe):
		return "not_for_me"
	case errors.Is(err, domain.ErrDecrypt):
		return "decrypt"
	case errors.Is(err, domain.ErrMalformed):
		return "malformed"
	case errors.Is(err, domain.ErrSignature):
		return "signature"
	case errors.Is(err, replay.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, replay.ErrStale):
		return "stale"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	default:
		return "other"
	}
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
