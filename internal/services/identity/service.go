package identity

import (
	"errors"
	"fmt"
	"unicode"

	"ciphergroup/internal/crypto"
	"ciphergroup/internal/domain"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)

	// ErrIdentityExists is returned by GenerateIdentity when a state file is
	// already present.
	ErrIdentityExists = errors.New("identity already exists")

	// ErrNoIdentity is returned when no state has been initialised yet.
	ErrNoIdentity = errors.New("no identity; run init first")
)

// KeyGenerator produces a fresh key pair. Tests swap in a smaller key size.
type KeyGenerator func() (domain.KeyPair, error)

// Service manages identity key creation and access using a backing store.
type Service struct {
	store    domain.StateStore
	generate KeyGenerator
}

// New returns an identity service backed by the given store.
func New(s domain.StateStore) *Service {
	return &Service{store: s, generate: crypto.GenerateKeyPair}
}

// WithKeyGenerator overrides how key pairs are produced.
func (s *Service) WithKeyGenerator(g KeyGenerator) *Service {
	s.generate = g
	return s
}

// GenerateIdentity creates a new key pair, saves it inside an empty state
// sealed with the passphrase, and returns the pair plus its relay identifier.
func (s *Service) GenerateIdentity(passphrase string) (domain.KeyPair, string, error) {
	if !isSecurePassphrase(passphrase) {
		return domain.KeyPair{}, "", ErrWeakPassphrase
	}
	_, exists, err := s.store.LoadState(passphrase)
	if err != nil {
		// Something is on disk we cannot open; treat it as taken.
		return domain.KeyPair{}, "", fmt.Errorf("%w: %v", ErrIdentityExists, err)
	}
	if exists {
		return domain.KeyPair{}, "", ErrIdentityExists
	}

	kp, err := s.generate()
	if err != nil {
		return domain.KeyPair{}, "", err
	}
	st := domain.State{
		Version: domain.StateVersion,
		Keys:    kp,
		Directory: domain.Directory{
			Friends:  map[string]domain.Token{},
			Groups:   map[domain.GroupID][]domain.Token{},
			Messages: map[domain.GroupID][]string{},
		},
	}
	if err := s.store.SaveState(passphrase, st); err != nil {
		return domain.KeyPair{}, "", err
	}
	return kp, crypto.Identifier(kp.PublicKey), nil
}

// LoadIdentity decrypts the state and returns the local key pair.
func (s *Service) LoadIdentity(passphrase string) (domain.KeyPair, error) {
	st, ok, err := s.store.LoadState(passphrase)
	if err != nil {
		return domain.KeyPair{}, err
	}
	if !ok {
		return domain.KeyPair{}, ErrNoIdentity
	}
	return st.Keys, nil
}

// Identifier returns the relay mailbox identifier of the local identity.
func (s *Service) Identifier(passphrase string) (string, error) {
	kp, err := s.LoadIdentity(passphrase)
	if err != nil {
		return "", err
	}
	return crypto.Identifier(kp.PublicKey), nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
