// Package infra provides shared infrastructure components for the MediaWiki exporter.
// It currently holds the request pacer that keeps the exporter under the wiki's rate limits.
package infra

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Pacer spaces out API calls by sleeping a fixed delay between them.
// A zero or negative delay disables pacing.
type Pacer struct {
	delay time.Duration
	waits atomic.Int64
}

// NewPacer creates a pacer that waits delay on every call to Wait
func NewPacer(delay time.Duration) *Pacer {
	if delay < 0 {
		delay = 0
	}
	return &Pacer{delay: delay}
}

// Delay returns the configured delay
func (p *Pacer) Delay() time.Duration {
	return p.delay
}

// Wait blocks for the configured delay or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled before pacing: %w", err)
	}
	p.waits.Add(1)
	if p.delay == 0 {
		return nil
	}

	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context canceled while pacing: %w", ctx.Err())
	}
}

// Waits returns how many times Wait has been called
func (p *Pacer) Waits() int64 {
	return p.waits.Load()
}
