package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/zaloga/internal/model"
)

// Every clerk-facing stock mutation follows the same protocol: open a
// transaction, take the write lock on the item up front, re-check the
// guard against the freshly read quantities, apply the delta, append
// exactly one journal entry, transition the linked request, queue the
// notification, commit. Guard failures abort before anything is written,
// so callers never observe a partial mutation.

// lockItem takes the database write lock via a self-assignment on the item
// row, then reads the quantities. SQLite escalates a deferred transaction
// to a write transaction on the first write; doing it before the guard
// reads means two concurrent mutations serialize instead of both passing
// a check against stale data.
func lockItem(ctx context.Context, tx *sql.Tx, itemID int64) (*model.Item, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE items SET updated_at = updated_at WHERE id = ?`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("locking item: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("locking item: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("item %d: %w", itemID, model.ErrNotFound)
	}

	item := &model.Item{ID: itemID}
	err = tx.QueryRowContext(ctx,
		`SELECT name, quantity_total, quantity_issued, quantity_returned FROM items WHERE id = ?`,
		itemID,
	).Scan(&item.Name, &item.QuantityTotal, &item.QuantityIssued, &item.QuantityReturned)
	if err != nil {
		return nil, fmt.Errorf("reading item quantities: %w", err)
	}
	return item, nil
}

// getRequestForUpdate takes the write lock via a self-assignment on the
// request row, then reads it with the requestor's username joined for
// journal attribution. Locking before the read keeps the status guard on
// the same side of the lock as the mutation, like lockItem does for
// quantities.
func getRequestForUpdate(ctx context.Context, tx *sql.Tx, requestID int64) (*model.Request, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE requests SET status = status WHERE id = ?`, requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("locking request: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("locking request: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("request %d: %w", requestID, model.ErrNotFound)
	}

	r := &model.Request{}
	err = tx.QueryRowContext(ctx,
		`SELECT r.id, r.item_id, r.requestor_id, r.quantity, r.reason, r.status,
		        r.returned_quantity, r.application_date, r.date_requested, r.date_issued,
		        i.name, u.username
		 FROM requests r
		 JOIN items i ON i.id = r.item_id
		 JOIN users u ON u.id = r.requestor_id
		 WHERE r.id = ?`, requestID,
	).Scan(&r.ID, &r.ItemID, &r.RequestorID, &r.Quantity, &r.Reason, &r.Status,
		&r.ReturnedQuantity, &r.ApplicationDate, &r.DateRequested, &r.DateIssued,
		&r.ItemName, &r.RequestorName)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("request %d: %w", requestID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting request: %w", err)
	}
	return r, nil
}

// IssueFromRequest releases the requested units for an Approved request.
// The availability check runs against the locked quantities, never a value
// computed earlier.
func IssueFromRequest(ctx context.Context, db *sql.DB, requestID int64, recordedBy *int64) (*model.Request, *model.StockTransaction, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	request, err := getRequestForUpdate(ctx, tx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if request.Status != model.RequestApproved {
		return nil, nil, fmt.Errorf("request %d is %q, must be Approved to issue: %w",
			requestID, request.Status, model.ErrInvalidTransition)
	}

	item, err := lockItem(ctx, tx, request.ItemID)
	if err != nil {
		return nil, nil, err
	}
	if item.Remaining() < request.Quantity {
		return nil, nil, fmt.Errorf("%q has %d remaining, request needs %d: %w",
			item.Name, item.Remaining(), request.Quantity, model.ErrInsufficientStock)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET quantity_issued = quantity_issued + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		request.Quantity, item.ID,
	); err != nil {
		return nil, nil, fmt.Errorf("updating issued quantity: %w", err)
	}

	transactionID, err := appendTransaction(ctx, tx, item.ID, &request.ID, model.TransactionIssue,
		request.Quantity, request.RequestorName,
		fmt.Sprintf("Issued for request %d (%s)", request.ID, item.Name), recordedBy)
	if err != nil {
		return nil, nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE requests SET status = ?, date_issued = CURRENT_TIMESTAMP WHERE id = ?`,
		model.RequestIssued, request.ID,
	); err != nil {
		return nil, nil, fmt.Errorf("updating request status: %w", err)
	}

	if err := enqueueNotification(ctx, tx, request.RequestorID, model.EventRequestIssued,
		item.Name, fmt.Sprintf("%d unit(s) issued, ready for pickup", request.Quantity)); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("committing issue: %w", err)
	}

	return reloadPair(ctx, db, request.ID, transactionID)
}

// IssueDirect releases units to a recipient without an originating request
// (walk-up issuance).
func IssueDirect(ctx context.Context, db *sql.DB, itemID int64, quantity int, issuedTo string, recordedBy *int64) (*model.StockTransaction, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	if issuedTo == "" {
		return nil, fmt.Errorf("recipient is required")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := lockItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Remaining() < quantity {
		return nil, fmt.Errorf("%q has %d remaining, need %d: %w",
			item.Name, item.Remaining(), quantity, model.ErrInsufficientStock)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET quantity_issued = quantity_issued + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		quantity, itemID,
	); err != nil {
		return nil, fmt.Errorf("updating issued quantity: %w", err)
	}

	transactionID, err := appendTransaction(ctx, tx, itemID, nil, model.TransactionIssue,
		quantity, issuedTo, fmt.Sprintf("Direct issue to %s", issuedTo), recordedBy)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing issue: %w", err)
	}

	return GetTransaction(ctx, db, transactionID)
}

// AdjustStock changes an item's total by a signed delta: receipts and
// audit corrections add, write-offs remove. The journal keeps the signed
// value since an Adjustment entry alone cannot say which way it went.
func AdjustStock(ctx context.Context, db *sql.DB, itemID int64, delta int, reason string, recordedBy *int64) (*model.StockTransaction, error) {
	if delta == 0 {
		return nil, fmt.Errorf("delta must be non-zero")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := lockItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	newTotal := item.QuantityTotal + delta
	if newTotal < 0 {
		return nil, fmt.Errorf("%q total is %d, adjusting by %d: %w",
			item.Name, item.QuantityTotal, delta, model.ErrNegativeStock)
	}
	if newTotal < item.QuantityIssued {
		return nil, fmt.Errorf("%q has %d issued, total cannot drop below that: %w",
			item.Name, item.QuantityIssued, model.ErrNegativeStock)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET quantity_total = quantity_total + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		delta, itemID,
	); err != nil {
		return nil, fmt.Errorf("updating total quantity: %w", err)
	}

	transactionID, err := appendTransaction(ctx, tx, itemID, nil, model.TransactionAdjustment,
		delta, "", reason, recordedBy)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing adjustment: %w", err)
	}

	return GetTransaction(ctx, db, transactionID)
}

// ReturnForRequest takes back units issued against a request. The item's
// issued count drops and the total rises by the same amount, so remaining
// stock grows; quantity_returned on the item is a pure audit counter. The
// request moves to Partially or Fully Returned depending on the balance.
func ReturnForRequest(ctx context.Context, db *sql.DB, requestID int64, quantity int, reason string, recordedBy *int64) (*model.Request, *model.StockTransaction, error) {
	if quantity <= 0 {
		return nil, nil, fmt.Errorf("return quantity must be positive")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	request, err := getRequestForUpdate(ctx, tx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if request.Status != model.RequestIssued && request.Status != model.RequestPartiallyReturned {
		return nil, nil, fmt.Errorf("request %d is %q, nothing to return: %w",
			requestID, request.Status, model.ErrInvalidTransition)
	}
	if quantity > request.QuantityToBeReturned() {
		return nil, nil, fmt.Errorf("request %d has %d unit(s) outstanding, cannot return %d: %w",
			requestID, request.QuantityToBeReturned(), quantity, model.ErrOverReturn)
	}

	item, err := lockItem(ctx, tx, request.ItemID)
	if err != nil {
		return nil, nil, err
	}
	if quantity > item.QuantityIssued {
		return nil, nil, fmt.Errorf("%q has only %d unit(s) issued: %w",
			item.Name, item.QuantityIssued, model.ErrOverReturn)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET quantity_issued = quantity_issued - ?,
		        quantity_total = quantity_total + ?,
		        quantity_returned = quantity_returned + ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		quantity, quantity, quantity, item.ID,
	); err != nil {
		return nil, nil, fmt.Errorf("updating quantities for return: %w", err)
	}

	transactionID, err := appendTransaction(ctx, tx, item.ID, &request.ID, model.TransactionReturn,
		quantity, "", reason, recordedBy)
	if err != nil {
		return nil, nil, err
	}

	newReturned := request.ReturnedQuantity + quantity
	newStatus := model.RequestPartiallyReturned
	event := model.EventPartiallyReturned
	if newReturned == request.Quantity {
		newStatus = model.RequestFullyReturned
		event = model.EventFullyReturned
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE requests SET returned_quantity = ?, status = ? WHERE id = ?`,
		newReturned, newStatus, request.ID,
	); err != nil {
		return nil, nil, fmt.Errorf("updating request return state: %w", err)
	}

	if err := enqueueNotification(ctx, tx, request.RequestorID, event,
		item.Name, fmt.Sprintf("%d/%d unit(s) returned", newReturned, request.Quantity)); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("committing return: %w", err)
	}

	return reloadPair(ctx, db, request.ID, transactionID)
}

// reloadPair fetches the committed request and journal entry for return to
// the caller.
func reloadPair(ctx context.Context, db *sql.DB, requestID, transactionID int64) (*model.Request, *model.StockTransaction, error) {
	request, err := GetRequest(ctx, db, requestID)
	if err != nil {
		return nil, nil, err
	}
	transaction, err := GetTransaction(ctx, db, transactionID)
	if err != nil {
		return nil, nil, err
	}
	return request, transaction, nil
}
