package mailbox

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ciphergroup/internal/domain"
)

// Memory keeps every mailbox in process memory. Contents are lost on exit.
type Memory struct {
	mu        sync.RWMutex
	boxes     map[string][]domain.Item
	retention time.Duration
	now       func() time.Time
}

// NewMemory returns an empty in-memory backend. A positive retention ejects
// items older than that on every write to the same mailbox.
func NewMemory(retention time.Duration) *Memory {
	return &Memory{
		boxes:     make(map[string][]domain.Item),
		retention: retention,
		now:       time.Now,
	}
}

// WithClock overrides the time source used for timestamps and retention.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// Append stores data for recipient.
func (m *Memory) Append(_ context.Context, recipient string, data string) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	box := m.boxes[recipient]

	ts := now.UnixMilli()
	if n := len(box); n > 0 && box[n-1].TS >= ts {
		ts = box[n-1].TS + 1
	}
	item := domain.Item{ID: uuid.NewString(), TS: ts, Data: data}
	box = append(eject(box, now, m.retention), item)
	m.boxes[recipient] = box
	return item, nil
}

// Since returns items newer than since, oldest first.
func (m *Memory) Since(_ context.Context, recipient string, since int64) ([]domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	box := m.boxes[recipient]
	i := sort.Search(len(box), func(i int) bool { return box[i].TS > since })
	out := make([]domain.Item, len(box)-i)
	copy(out, box[i:])
	return out, nil
}

// eject drops the leading items older than retention. Items are stored in
// timestamp order.
func eject(box []domain.Item, now time.Time, retention time.Duration) []domain.Item {
	if retention <= 0 {
		return box
	}
	cutoff := now.Add(-retention).UnixMilli()
	i := sort.Search(len(box), func(i int) bool { return box[i].TS >= cutoff })
	if i == 0 {
		return box
	}
	return append([]domain.Item(nil), box[i:]...)
}

// Compile-time assertion that Memory implements domain.Mailbox.
var _ domain.Mailbox = (*Memory)(nil)
