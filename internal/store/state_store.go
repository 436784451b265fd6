package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"ciphergroup/internal/domain"
)

const (
	stateFilename = "state.json.enc"
	lockFilename  = "state.lock"
	lockRetry     = 20 * time.Millisecond
)

// ErrLocked is returned by Lock when another holder keeps the lock past the
// context deadline.
var ErrLocked = errors.New("state is locked by another process")

// StateFileStore keeps the sealed client state in a single file under dir.
type StateFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewStateFileStore returns a StateFileStore rooted at dir.
func NewStateFileStore(dir string) *StateFileStore {
	return &StateFileStore{dir: dir}
}

// Path is the location of the sealed state file.
func (s *StateFileStore) Path() string {
	return filepath.Join(s.dir, stateFilename)
}

// Lock blocks until it holds the state lock or ctx is done. Every process
// opening the same dir contends for the same lock file.
func (s *StateFileStore) Lock(ctx context.Context) (func() error, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("lock state: %w", err)
	}
	fl := flock.New(filepath.Join(s.dir, lockFilename))
	ok, err := fl.TryLockContext(ctx, lockRetry)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %v", ErrLocked, err)
		}
		return nil, fmt.Errorf("lock state: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return fl.Unlock, nil
}

// SaveState seals st under passphrase and replaces the state file.
func (s *StateFileStore) SaveState(passphrase string, st domain.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.Version == 0 {
		st.Version = domain.StateVersion
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	b, err := seal(passphrase, raw, defaultKDF())
	if err != nil {
		return fmt.Errorf("seal state: %w", err)
	}
	return writeFile(s.Path(), b, 0o600)
}

// LoadState opens the state file. The boolean is false when no state has
// been written yet.
func (s *StateFileStore) LoadState(passphrase string) (domain.State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := readFile(s.Path())
	if err != nil {
		return domain.State{}, false, err
	}
	if b == nil {
		return domain.State{}, false, nil
	}
	raw, err := open(passphrase, b)
	if err != nil {
		return domain.State{}, false, err
	}
	var st domain.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return domain.State{}, false, fmt.Errorf("decode state: %w", err)
	}
	if st.Version > domain.StateVersion {
		return domain.State{}, false, fmt.Errorf("unsupported state version %d", st.Version)
	}
	return st, true, nil
}

// Exists reports whether a state file is present, without opening it.
func (s *StateFileStore) Exists() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := readFile(s.Path())
	if err != nil {
		return false, err
	}
	return b != nil, nil
}

// Compile-time assertion that StateFileStore implements domain.StateStore.
var _ domain.StateStore = (*StateFileStore)(nil)
