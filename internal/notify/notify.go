// Package notify delivers request status notifications from the outbox.
//
// Stock mutations queue notification rows inside their own transaction;
// the dispatcher delivers committed rows afterwards, outside any lock.
// Delivery is best-effort and at-least-once: a failed delivery stays
// pending and is retried, and a delivery failure never affects the
// mutation that queued it.
package notify

import (
	"context"
	"log/slog"

	"github.com/erazemk/zaloga/internal/model"
)

// Notifier delivers one notification to a user. Implementations construct
// the message body themselves; the ledger only provides the event kind,
// item name and a short context line.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// LogNotifier writes notifications to the structured log. It stands in for
// a real delivery channel (mail, chat) which is deliberately out of the
// ledger's hands.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n model.Notification) error {
	slog.Info("notification",
		"user", n.Username,
		"email", n.Email,
		"event", n.Event,
		"item", n.ItemName,
		"context", n.Context,
	)
	return nil
}
