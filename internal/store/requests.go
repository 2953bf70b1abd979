package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/zaloga/internal/model"
)

// SubmitRequest creates a Pending request. Submission never deducts stock;
// it only checks feasibility against current remaining stock and rejects a
// second Pending request by the same requestor for the same item. The
// deduction happens at issuance, re-checked under lock.
func SubmitRequest(ctx context.Context, db *sql.DB, itemID, requestorID int64, quantity int, reason string) (*model.Request, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the item so the feasibility and duplicate checks serialize
	// with concurrent submissions and issues.
	item, err := lockItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Remaining() < quantity {
		return nil, fmt.Errorf("%q has %d remaining, requested %d: %w",
			item.Name, item.Remaining(), quantity, model.ErrInsufficientStock)
	}

	var pending int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM requests WHERE item_id = ? AND requestor_id = ? AND status = ?`,
		itemID, requestorID, model.RequestPending,
	).Scan(&pending)
	if err != nil {
		return nil, fmt.Errorf("checking for pending request: %w", err)
	}
	if pending > 0 {
		return nil, fmt.Errorf("%q: %w", item.Name, model.ErrDuplicatePending)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO requests (item_id, requestor_id, quantity, reason) VALUES (?, ?, ?, ?)`,
		itemID, requestorID, quantity, strings.TrimSpace(reason),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting request id: %w", err)
	}

	if err := enqueueNotification(ctx, tx, requestorID, model.EventRequestSubmitted,
		item.Name, fmt.Sprintf("request for %d unit(s) submitted", quantity)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing request: %w", err)
	}

	return GetRequest(ctx, db, id)
}

// ApproveRequest moves a Pending request to Approved. No stock changes
// until issuance.
func ApproveRequest(ctx context.Context, db *sql.DB, requestID int64) (*model.Request, error) {
	return transitionRequest(ctx, db, requestID, model.RequestApproved, model.EventRequestApproved, nil)
}

// RejectRequest moves a Pending or Approved request to Rejected.
func RejectRequest(ctx context.Context, db *sql.DB, requestID int64) (*model.Request, error) {
	return transitionRequest(ctx, db, requestID, model.RequestRejected, model.EventRequestRejected, nil)
}

// CancelRequest lets a requestor withdraw their own Pending request.
// Nothing was deducted at submission, so there is no stock to restore.
func CancelRequest(ctx context.Context, db *sql.DB, requestID, byUser int64) (*model.Request, error) {
	return transitionRequest(ctx, db, requestID, model.RequestCancelled, model.EventRequestCancelled, &byUser)
}

// transitionRequest applies a stockless status change: guard against the
// status machine, persist, queue the notification, commit. Issuance and
// returns have their own paths in the ledger since they also move stock.
func transitionRequest(ctx context.Context, db *sql.DB, requestID int64, toStatus, event string, mustBeOwnedBy *int64) (*model.Request, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	request, err := getRequestForUpdate(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if mustBeOwnedBy != nil && request.RequestorID != *mustBeOwnedBy {
		return nil, fmt.Errorf("request %d: %w", requestID, model.ErrNotOwner)
	}
	if mustBeOwnedBy != nil && request.Status != model.RequestPending {
		// Requestors may only cancel while the request still sits in the
		// queue; clerk decisions are not theirs to undo.
		return nil, fmt.Errorf("request %d is %q, only Pending requests can be cancelled: %w",
			requestID, request.Status, model.ErrInvalidTransition)
	}
	if !model.CanTransition(request.Status, toStatus) {
		return nil, fmt.Errorf("request %d cannot move from %q to %q: %w",
			requestID, request.Status, toStatus, model.ErrInvalidTransition)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE requests SET status = ? WHERE id = ?`,
		toStatus, requestID,
	); err != nil {
		return nil, fmt.Errorf("updating request status: %w", err)
	}

	if err := enqueueNotification(ctx, tx, request.RequestorID, event, request.ItemName, ""); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing status change: %w", err)
	}

	return GetRequest(ctx, db, requestID)
}

const requestColumns = `r.id, r.item_id, r.requestor_id, r.quantity, r.reason, r.status,
       r.returned_quantity, r.application_date, r.date_requested, r.date_issued,
       i.name AS item_name, u.username AS requestor_name`

const requestJoins = ` FROM requests r
          JOIN items i ON i.id = r.item_id
          JOIN users u ON u.id = r.requestor_id`

// GetRequest returns a request by ID.
func GetRequest(ctx context.Context, db *sql.DB, id int64) (*model.Request, error) {
	r, err := scanRequest(db.QueryRowContext(ctx,
		`SELECT `+requestColumns+requestJoins+` WHERE r.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting request: %w", err)
	}
	return r, nil
}

// RequestFilter narrows a request listing. Zero values mean "no filter".
type RequestFilter struct {
	RequestorID int64
	ItemID      int64
	Status      string
}

// ListRequests returns requests, newest first.
func ListRequests(ctx context.Context, db *sql.DB, filter RequestFilter) ([]model.Request, error) {
	query := `SELECT ` + requestColumns + requestJoins + ` WHERE 1=1`
	var args []any

	if filter.RequestorID > 0 {
		query += ` AND r.requestor_id = ?`
		args = append(args, filter.RequestorID)
	}
	if filter.ItemID > 0 {
		query += ` AND r.item_id = ?`
		args = append(args, filter.ItemID)
	}
	if filter.Status != "" {
		query += ` AND r.status = ?`
		args = append(args, filter.Status)
	}

	query += ` ORDER BY r.date_requested DESC, r.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

// ListReturnableRequests returns issued requests that still have units
// outstanding. Partially returned requests stay eligible until the balance
// reaches zero.
func ListReturnableRequests(ctx context.Context, db *sql.DB) ([]model.Request, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+requestColumns+requestJoins+`
		 WHERE r.status IN (?, ?) AND r.returned_quantity < r.quantity
		 ORDER BY r.date_issued DESC, r.id DESC`,
		model.RequestIssued, model.RequestPartiallyReturned,
	)
	if err != nil {
		return nil, fmt.Errorf("listing returnable requests: %w", err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

func scanRequest(row interface{ Scan(...any) error }) (*model.Request, error) {
	r := &model.Request{}
	err := row.Scan(&r.ID, &r.ItemID, &r.RequestorID, &r.Quantity, &r.Reason, &r.Status,
		&r.ReturnedQuantity, &r.ApplicationDate, &r.DateRequested, &r.DateIssued,
		&r.ItemName, &r.RequestorName)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func scanRequests(rows *sql.Rows) ([]model.Request, error) {
	var requests []model.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}
