package orchestrator

import (
	"context"
	"testing"
	"time"
)

func TestNewPacerDerivesDelayFromInterval(t *testing.T) {
	cases := []struct {
		interval time.Duration
		want     time.Duration
	}{
		{600 * time.Second, 60 * time.Second},
		{30 * time.Second, 3 * time.Second},
		{5 * time.Second, time.Second},
		{0, time.Second},
	}

	for _, tc := range cases {
		if got := NewPacer(tc.interval).Delay(); got != tc.want {
			t.Errorf("NewPacer(%v).Delay() = %v, want %v", tc.interval, got, tc.want)
		}
	}
}

func TestPacerWaitHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPacer(time.Hour)
	start := time.Now()
	if err := p.Wait(ctx); err == nil {
		t.Fatalf("expected context error from cancelled wait")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cancelled wait took %v", elapsed)
	}
}
