package notify

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/erazemk/zaloga/internal/store"
)

// DefaultInterval is how often the dispatcher polls the outbox.
const DefaultInterval = 5 * time.Second

// batchSize caps how many notifications one pass delivers.
const batchSize = 50

// Dispatcher polls the notifications outbox and hands pending entries to
// the Notifier.
type Dispatcher struct {
	DB       *sql.DB
	Notifier Notifier
	Interval time.Duration
}

// Run polls until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	interval := d.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.DispatchPending(ctx); err != nil {
				slog.Error("dispatching notifications", "error", err)
			}
		}
	}
}

// DispatchPending delivers queued notifications once. Entries that fail to
// deliver stay pending for the next pass.
func (d *Dispatcher) DispatchPending(ctx context.Context) error {
	pending, err := store.ListPendingNotifications(ctx, d.DB, batchSize)
	if err != nil {
		return err
	}

	for _, n := range pending {
		if err := d.Notifier.Notify(ctx, n); err != nil {
			slog.Warn("notification delivery failed, will retry",
				"id", n.ID, "user", n.Username, "event", n.Event, "error", err)
			continue
		}
		if err := store.MarkNotificationSent(ctx, d.DB, n.ID); err != nil {
			// The notification may be delivered again next pass; delivery
			// is at-least-once, not exactly-once.
			slog.Warn("marking notification sent failed", "id", n.ID, "error", err)
		}
	}
	return nil
}
