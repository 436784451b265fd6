// Package replay implements the receive-side replay window.
//
// The window is bounded by time, not by count: it keeps every accepted
// fingerprint whose timestamp lies within Size of the newest timestamp seen.
// An exact duplicate inside the window is rejected, and so is anything older
// than the window's lower bound.
package replay

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"ciphergroup/internal/domain"
)

// DefaultWindow is the width of the replay window.
const DefaultWindow = 300000 * time.Millisecond

var (
	// ErrReplay is wrapped by every rejection.
	ErrReplay = errors.New("replay rejected")
	// ErrDuplicate: the fingerprint is already in the window.
	ErrDuplicate = fmt.Errorf("%w: duplicate", ErrReplay)
	// ErrStale: the timestamp is below the window's lower bound.
	ErrStale = fmt.Errorf("%w: outside window", ErrReplay)
)

// Guard is safe for concurrent use.
type Guard struct {
	mu      sync.Mutex
	size    int64 // ms
	maxTS   int64
	entries []domain.WindowEntry
}

// New returns an empty guard with the given window width.
func New(window time.Duration) *Guard {
	return &Guard{size: window.Milliseconds()}
}

// Restore rebuilds a guard from a persisted window. The configured width
// always applies; the persisted SizeMS is informational.
func Restore(w domain.Window, window time.Duration) *Guard {
	g := New(window)
	g.load(w)
	return g
}

// Reset replaces the window contents with w, keeping the configured width.
func (g *Guard) Reset(w domain.Window) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.load(w)
}

func (g *Guard) load(w domain.Window) {
	g.maxTS = w.MaxTS
	g.entries = append([]domain.WindowEntry(nil), w.Entries...)
}

// Check admits (ts, fingerprint) or rejects it.
//
// Order: prune entries older than maxTS-size, reject a fingerprint still in
// the window as ErrDuplicate, reject ts < maxTS-size as ErrStale, otherwise
// advance maxTS and insert.
func (g *Guard) Check(ts int64, fingerprint []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	lower := g.maxTS - g.size
	g.prune(lower)

	for _, e := range g.entries {
		if bytes.Equal(e.Fingerprint, fingerprint) {
			return ErrDuplicate
		}
	}
	if ts < lower {
		return ErrStale
	}

	if ts > g.maxTS {
		g.maxTS = ts
	}
	g.entries = append(g.entries, domain.WindowEntry{
		TS:          ts,
		Fingerprint: append([]byte(nil), fingerprint...),
	})
	return nil
}

func (g *Guard) prune(lower int64) {
	kept := g.entries[:0]
	for _, e := range g.entries {
		if e.TS >= lower {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(g.entries); i++ {
		g.entries[i] = domain.WindowEntry{}
	}
	g.entries = kept
}

// Len returns the number of fingerprints currently held.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Snapshot returns a copy of the window for persistence.
func (g *Guard) Snapshot() domain.Window {
	g.mu.Lock()
	defer g.mu.Unlock()

	entries := make([]domain.WindowEntry, len(g.entries))
	copy(entries, g.entries)
	return domain.Window{MaxTS: g.maxTS, SizeMS: g.size, Entries: entries}
}
