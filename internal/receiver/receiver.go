// Package receiver runs the fixed-delay receive loop.
package receiver

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultInterval is the pause between the end of one poll and the start of
// the next.
const DefaultInterval = 3 * time.Second

// Poller processes one batch from the relay.
type Poller interface {
	Poll(ctx context.Context) (int, error)
}

// Loop polls, waits a fixed interval, and polls again until its context ends.
type Loop struct {
	poller   Poller
	interval time.Duration
	timeout  time.Duration
	log      logrus.FieldLogger
}

// New returns a Loop. A non-positive interval means DefaultInterval; a
// positive timeout bounds each poll.
func New(p Poller, interval, timeout time.Duration, log logrus.FieldLogger) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{poller: p, interval: interval, timeout: timeout, log: log}
}

// Run blocks until ctx is cancelled. A failed poll is logged and the next
// one is still scheduled.
func (l *Loop) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		l.pollOnce(ctx)
		timer.Reset(l.interval)
	}
}

func (l *Loop) pollOnce(ctx context.Context) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	n, err := l.poller.Poll(ctx)
	if err != nil {
		l.log.WithError(err).Warn("poll failed")
		return
	}
	if n > 0 {
		l.log.WithField("count", n).Debug("batch processed")
	}
}
