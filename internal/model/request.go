package model

import "time"

// Request represents a requestor's ask for units of one item, from
// submission through issuance to return or cancellation.
type Request struct {
	ID               int64      `json:"id"`
	ItemID           int64      `json:"item_id"`
	RequestorID      int64      `json:"requestor_id"`
	Quantity         int        `json:"quantity"`
	Reason           string     `json:"reason,omitempty"`
	Status           string     `json:"status"`
	ReturnedQuantity int        `json:"returned_quantity"`
	ApplicationDate  time.Time  `json:"application_date"`
	DateRequested    time.Time  `json:"date_requested"`
	DateIssued       *time.Time `json:"date_issued,omitempty"`

	// Joined fields (not always populated).
	ItemName      string `json:"item_name,omitempty"`
	RequestorName string `json:"requestor_name,omitempty"`
}

// Request statuses.
const (
	RequestPending           = "Pending"
	RequestApproved          = "Approved"
	RequestRejected          = "Rejected"
	RequestCancelled         = "Cancelled"
	RequestIssued            = "Issued"
	RequestPartiallyReturned = "Partially Returned"
	RequestFullyReturned     = "Fully Returned"
)

// requestTransitions is the full status machine. A status missing from the
// map is terminal. No transition moves backward.
var requestTransitions = map[string][]string{
	RequestPending:           {RequestApproved, RequestRejected, RequestCancelled},
	RequestApproved:          {RequestIssued, RequestRejected, RequestCancelled},
	RequestIssued:            {RequestPartiallyReturned, RequestFullyReturned},
	RequestPartiallyReturned: {RequestPartiallyReturned, RequestFullyReturned},
}

// CanTransition reports whether a request may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range requestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// QuantityToBeReturned returns the issued units not yet returned against
// this request. Once it reaches zero the request is Fully Returned.
func (r *Request) QuantityToBeReturned() int {
	return r.Quantity - r.ReturnedQuantity
}
