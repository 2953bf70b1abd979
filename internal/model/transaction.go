package model

import "time"

// StockTransaction is one append-only journal entry describing a mutation
// of an item's quantities. Entries are never edited; corrections are new
// compensating entries.
//
// Quantity is a positive magnitude for Issue, Return and Receive entries.
// Adjustment entries keep the signed delta, since the type alone cannot
// say which direction a correction went.
type StockTransaction struct {
	ID              int64     `json:"id"`
	ItemID          int64     `json:"item_id"`
	RequestID       *int64    `json:"request_id,omitempty"`
	Type            string    `json:"transaction_type"`
	Quantity        int       `json:"quantity"`
	IssuedTo        string    `json:"issued_to,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	RecordedBy      *int64    `json:"recorded_by,omitempty"`
	TransactionDate time.Time `json:"transaction_date"`

	// Joined fields (not always populated).
	ItemName       string `json:"item_name,omitempty"`
	RecordedByName string `json:"recorded_by_name,omitempty"`
}

// Transaction types.
const (
	TransactionIssue      = "Issue"
	TransactionAdjustment = "Adjustment"
	TransactionReturn     = "Return"
	TransactionReceive    = "Receive"
)

// ValidTransactionType reports whether the type is one of the known values.
func ValidTransactionType(t string) bool {
	switch t {
	case TransactionIssue, TransactionAdjustment, TransactionReturn, TransactionReceive:
		return true
	}
	return false
}
