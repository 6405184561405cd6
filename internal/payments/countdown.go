package payments

import (
	"context"
	"fmt"
	"time"
)

// Countdown emits the time left on session every tick, starting immediately.
// The channel closes after emitting zero, or when ctx is done. Sessions
// without an expiry close the channel right away.
func Countdown(ctx context.Context, session *PixSession, tick time.Duration) <-chan time.Duration {
	out := make(chan time.Duration, 1)
	if _, ok := session.Remaining(time.Now()); !ok || tick <= 0 {
		close(out)
		return out
	}

	go func() {
		defer close(out)
		ticker := time.NewTicker(tick)
		defer ticker.Stop()

		for {
			left, _ := session.Remaining(time.Now())
			select {
			case out <- left:
			case <-ctx.Done():
				return
			}
			if left == 0 {
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// FormatRemaining renders d as mm:ss.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
