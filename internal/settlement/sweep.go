package settlement

import (
	"context"
	"time"

	"github.com/smartteam/settlement/internal/store"
)

// SweepExpired deletes reservations whose expiry has passed without a
// terminal settlement, cancelling their payments. A callback racing the sweep
// is benign: whichever acquires the purchase lock first wins, and the loser
// sees either a terminal payment or a missing reservation.
func (e *Engine) SweepExpired(now time.Time) int {
	expired := e.store.Reservations.Filter(func(_ string, r store.Reservation) bool {
		return r.ExpiresAt.Before(now)
	})

	swept := 0
	for _, res := range expired {
		unlock := e.lock(res.ID)

		// Re-check under the lock: a callback may have settled it meanwhile.
		current, ok := e.store.Reservations.Get(res.ID)
		if !ok || !current.ExpiresAt.Before(now) {
			unlock()
			continue
		}

		if payment, ok := e.store.PaymentByTarget(store.TargetReservation, res.ID); ok && !payment.Status.Terminal() {
			payment.Status = store.PaymentCancelled
			payment.ErrorMessage = "reservation expired before settlement"
			e.store.Payments.Set(payment.ID, payment)
		}

		e.store.Reservations.Delete(res.ID)
		swept++
		e.logger.Info("expired reservation swept", "reservation_id", res.ID)
		unlock()
	}
	return swept
}

// RunSweeper runs the expiry sweep on an interval until ctx is cancelled.
func (e *Engine) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.SweepExpired(e.store.Clock.Now())
		}
	}
}
