package chump

import (
	"context"
	"time"
)

// DefaultPollInterval is used by Wait when no interval is given. The provider asks
// clients not to poll a receipt more often than this.
const DefaultPollInterval = 5 * time.Second

// Wait polls the receipt every interval until the message is acknowledged or
// expired, or ctx is done. The first failed poll ends the wait with its error.
func (e *EmergencyMessage) Wait(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	for {
		pending, err := e.Poll(ctx)
		if err != nil {
			return err
		}
		if !pending {
			return nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// SendAndWait sends an emergency message and waits for it to be resolved.
func (e *EmergencyMessage) SendAndWait(ctx context.Context, interval time.Duration) error {
	if err := e.Send(ctx); err != nil {
		return err
	}
	return e.Wait(ctx, interval)
}
