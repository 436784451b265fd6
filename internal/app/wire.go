package app

import (
	"os"

	"github.com/sirupsen/logrus"

	"ciphergroup/internal/domain"
	"ciphergroup/internal/relay"
	"ciphergroup/internal/services/identity"
	"ciphergroup/internal/store"
)

// Wire bundles what every command needs before the state is unlocked.
type Wire struct {
	Config   Config
	Log      *logrus.Logger
	Store    *store.StateFileStore
	Identity *identity.Service
	Relay    domain.RelayClient
}

// NewWire validates cfg, creates the home directory and constructs the
// dependency graph.
func NewWire(cfg Config, log *logrus.Logger) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}
	fs := store.NewStateFileStore(cfg.Home)
	return &Wire{
		Config:   cfg,
		Log:      log,
		Store:    fs,
		Identity: identity.New(fs),
		Relay:    relay.NewHTTP(cfg.RelayURL, cfg.RelayTimeout),
	}, nil
}
