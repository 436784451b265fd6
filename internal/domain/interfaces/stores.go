package interfaces

import (
	"context"

	domaintypes "ciphergroup/internal/domain/types"
)

// StateStore persists the whole local state: key pair, trust tables,
// message logs, receive cursor and replay window.
//
// Lock takes an exclusive lock that spans processes sharing the store. The
// returned function releases it.
type StateStore interface {
	Lock(ctx context.Context) (func() error, error)
	SaveState(passphrase string, state domaintypes.State) error
	LoadState(passphrase string) (domaintypes.State, bool, error)
}
