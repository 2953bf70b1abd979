package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/zaloga/internal/model"
)

// enqueueNotification writes an outbox row inside an open ledger
// transaction. Delivery happens after commit, from the dispatcher, so a
// failing mail system can never roll back a stock mutation.
func enqueueNotification(ctx context.Context, tx *sql.Tx, userID int64, event, itemName, contextText string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO notifications (user_id, event, item_name, context) VALUES (?, ?, ?, ?)`,
		userID, event, itemName, contextText,
	)
	if err != nil {
		return fmt.Errorf("enqueueing notification: %w", err)
	}
	return nil
}

// ListPendingNotifications returns undelivered outbox entries, oldest first.
func ListPendingNotifications(ctx context.Context, db *sql.DB, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx,
		`SELECT n.id, n.user_id, n.event, n.item_name, n.context, n.created_at, n.sent_at,
		        u.username, u.email
		 FROM notifications n
		 JOIN users u ON u.id = n.user_id
		 WHERE n.sent_at IS NULL
		 ORDER BY n.id
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Event, &n.ItemName, &n.Context,
			&n.CreatedAt, &n.SentAt, &n.Username, &n.Email); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationSent records a successful delivery. Failed deliveries are
// left pending and retried on the next dispatch pass (at-least-once).
func MarkNotificationSent(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE notifications SET sent_at = CURRENT_TIMESTAMP WHERE id = ? AND sent_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("marking notification sent: %w", err)
	}
	return nil
}
