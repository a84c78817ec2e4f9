package orchestrator

import (
	"context"
	"time"
)

const (
	// pacerDivisor derives the inter-venue delay from the session interval.
	pacerDivisor  = 10
	minPacerDelay = time.Second
)

// Pacer spaces venue scrapes out so target sites are not hammered
// back-to-back. Politeness, not correctness: skipping a wait never corrupts
// state.
type Pacer struct {
	delay time.Duration
}

// NewPacer derives the inter-venue delay from the configured session
// interval, with a one second floor.
func NewPacer(sessionInterval time.Duration) *Pacer {
	delay := sessionInterval / pacerDivisor
	if delay < minPacerDelay {
		delay = minPacerDelay
	}
	return &Pacer{delay: delay}
}

// Delay returns the configured inter-venue delay.
func (p *Pacer) Delay() time.Duration { return p.delay }

// Wait blocks for the delay or until the context is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
