package state

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"
	"time"

	"ciphergroup/internal/crypto"
	"ciphergroup/internal/domain"
	"ciphergroup/internal/replay"
	"ciphergroup/internal/trust"
)

// ErrNoState is returned by Open when no identity has been created.
var ErrNoState = errors.New("no local state; run init first")

// Keeper owns the in-memory client state and its persistence.
type Keeper struct {
	store      domain.StateStore
	passphrase string

	keys domain.KeyPair
	priv *rsa.PrivateKey

	trust *trust.Store
	guard *replay.Guard

	txMu sync.Mutex // serialises Update within the process

	mu     sync.Mutex // guards cursor
	cursor int64
}

// LockWait bounds how long Update waits for another process to release the
// state lock.
const LockWait = 30 * time.Second

// Open loads the state sealed under passphrase. window is the replay window
// width.
func Open(store domain.StateStore, passphrase string, window time.Duration) (*Keeper, error) {
	st, ok, err := store.LoadState(passphrase)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoState
	}
	priv, err := crypto.ParsePrivateKey(st.Keys.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Keeper{
		store:      store,
		passphrase: passphrase,
		keys:       st.Keys,
		priv:       priv,
		trust:      trust.New(st.Directory),
		guard:      replay.Restore(st.Window, window),
		cursor:     st.LastReceivedTS,
	}, nil
}

// Self is the local public key token.
func (k *Keeper) Self() domain.Token { return k.keys.PublicKey }

// Identifier is the local relay mailbox address.
func (k *Keeper) Identifier() string { return crypto.Identifier(k.keys.PublicKey) }

// PrivateKey is the parsed local private key.
func (k *Keeper) PrivateKey() *rsa.PrivateKey { return k.priv }

// Trust is the live trust store.
func (k *Keeper) Trust() *trust.Store { return k.trust }

// Guard is the live replay guard.
func (k *Keeper) Guard() *replay.Guard { return k.guard }

// Cursor returns the timestamp of the newest item already fetched.
func (k *Keeper) Cursor() int64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.cursor
}

// Advance moves the cursor forward to ts. It never moves backwards.
func (k *Keeper) Advance(ts int64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if ts > k.cursor {
		k.cursor = ts
	}
}

// Update runs fn as one transaction against the persisted state. Under the
// store lock it reloads the state written by any other process, runs fn, and
// saves the result. fn may be nil to just resynchronise. When fn fails
// nothing is saved.
func (k *Keeper) Update(ctx context.Context, fn func() error) error {
	k.txMu.Lock()
	defer k.txMu.Unlock()

	lockCtx, cancel := context.WithTimeout(ctx, LockWait)
	defer cancel()
	unlock, err := k.store.Lock(lockCtx)
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	if err := k.reload(); err != nil {
		return err
	}
	if fn != nil {
		if err := fn(); err != nil {
			return err
		}
	}
	return k.save()
}

func (k *Keeper) reload() error {
	st, ok, err := k.store.LoadState(k.passphrase)
	if err != nil {
		return fmt.Errorf("reload state: %w", err)
	}
	if !ok {
		return ErrNoState
	}
	if !st.Keys.PublicKey.Equal(k.keys.PublicKey) {
		return errors.New("reload state: identity changed on disk")
	}
	k.trust.Reload(st.Directory)
	k.guard.Reset(st.Window)

	k.mu.Lock()
	k.cursor = st.LastReceivedTS
	k.mu.Unlock()
	return nil
}

func (k *Keeper) save() error {
	st := domain.State{
		Directory:      k.trust.Snapshot(),
		Version:        domain.StateVersion,
		Keys:           k.keys,
		LastReceivedTS: k.Cursor(),
		Window:         k.guard.Snapshot(),
	}
	if err := k.store.SaveState(k.passphrase, st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
