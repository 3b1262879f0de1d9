package drain

import (
	"context"
	"time"
)

// Sleeper pauses a drain task between liveness polls. It exists as an
// interface so tests can count pauses instead of waiting out wall-clock
// time.
type Sleeper interface {
	// Sleep pauses for approximately d. It returns early when ctx is
	// cancelled and swallows the cancellation rather than reporting it.
	Sleep(ctx context.Context, d time.Duration)
}

// timerSleeper is the production Sleeper. Waking on ctx.Done lets a
// handler Close unblock tasks that are mid-pause.
type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
