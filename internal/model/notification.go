package model

import "time"

// Notification is one pending or delivered outbox entry. Rows are written
// inside the same transaction as the status change they announce, so a
// committed mutation always has its notification queued, and an aborted
// one never does.
type Notification struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Event     string     `json:"event"`
	ItemName  string     `json:"item_name,omitempty"`
	Context   string     `json:"context,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`

	// Joined fields (not always populated).
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Notification event kinds, one per observable request status change.
const (
	EventRequestSubmitted  = "request_submitted"
	EventRequestApproved   = "request_approved"
	EventRequestRejected   = "request_rejected"
	EventRequestCancelled  = "request_cancelled"
	EventRequestIssued     = "request_issued"
	EventPartiallyReturned = "request_partially_returned"
	EventFullyReturned     = "request_fully_returned"
)
