package app

import (
	"context"
	"time"
)

// requeueSweepLimit caps how many stuck withdrawals one sweep re-produces.
const requeueSweepLimit = 100

// RunRequeueSweep periodically re-produces jobs for withdrawals that are still
// Pending past the configured age. It covers the gap where a hold committed
// but the queue produce was lost.
func (app *Application) RunRequeueSweep(ctx context.Context) {
	interval := time.Duration(app.Config.Withdrawal.RequeueAfterMin) * time.Minute

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			requeued, err := app.Withdrawals.RequeueStuck(ctx, interval, requeueSweepLimit)
			if err != nil {
				app.Logger.Error("requeue sweep failed", "error", err)
				continue
			}
			if requeued > 0 {
				app.Logger.Info("requeue sweep re-produced stuck withdrawals", "count", requeued)
			}
		}
	}
}
