package model

import "time"

// Item represents a stocked inventory item type. Quantities are aggregate:
// QuantityTotal is the ceiling of all units ever stocked, QuantityIssued is
// what is currently checked out, and QuantityReturned is a cumulative audit
// counter that never participates in availability.
type Item struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	SerialNumber      string     `json:"serial_number,omitempty"`
	Category          string     `json:"category,omitempty"`
	Condition         string     `json:"condition"`
	Status            string     `json:"status"`
	ExpirationDate    *time.Time `json:"expiration_date,omitempty"`
	Expired           bool       `json:"expired"`
	QuantityTotal     int        `json:"quantity_total"`
	QuantityIssued    int        `json:"quantity_issued"`
	QuantityReturned  int        `json:"quantity_returned"`
	QuantityRemaining int        `json:"quantity_remaining"`
	ImageMime         string     `json:"image_mime,omitempty"`
	CreatedBy         *int64     `json:"created_by,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty"`
}

// Item conditions.
const (
	ConditionServiceable    = "Serviceable"
	ConditionNotServiceable = "Not Serviceable"
	ConditionNotWorking     = "Not working"
	ConditionGood           = "Good"
	ConditionFair           = "Fair"
	ConditionPoor           = "Poor"
)

// Item statuses. Advisory only: availability always comes from the
// quantities, never from this field.
const (
	ItemStatusPending    = "Pending"
	ItemStatusInStock    = "In Stock"
	ItemStatusIssued     = "Issued"
	ItemStatusReturned   = "Returned"
	ItemStatusLowStock   = "Low Stock"
	ItemStatusOutOfStock = "Out of Stock"
)

// ValidCondition reports whether the condition is one of the known values.
func ValidCondition(condition string) bool {
	switch condition {
	case ConditionServiceable, ConditionNotServiceable, ConditionNotWorking,
		ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// ValidItemStatus reports whether the status is one of the known values.
func ValidItemStatus(status string) bool {
	switch status {
	case ItemStatusPending, ItemStatusInStock, ItemStatusIssued,
		ItemStatusReturned, ItemStatusLowStock, ItemStatusOutOfStock:
		return true
	}
	return false
}

// Remaining returns the units available for new issuance. Must not be
// cached across a mutation: the ledger re-reads quantities under lock.
func (i *Item) Remaining() int {
	return i.QuantityTotal - i.QuantityIssued
}

// IsExpired reports whether the item's expiration date has passed. Items
// without one never expire. Advisory like Status: the ledger does not
// block mutations on expired stock.
func (i *Item) IsExpired() bool {
	return i.ExpirationDate != nil && i.ExpirationDate.Before(time.Now())
}
