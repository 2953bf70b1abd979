package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/zaloga/internal/model"
)

// appendTransaction inserts a journal entry inside an open ledger
// transaction. It does no validation beyond the schema: the calling ledger
// operation has already guarded the mutation. Entries are never updated or
// deleted; corrections are compensating entries.
func appendTransaction(ctx context.Context, tx *sql.Tx, itemID int64, requestID *int64,
	transactionType string, quantity int, issuedTo, reason string, recordedBy *int64) (int64, error) {

	result, err := tx.ExecContext(ctx,
		`INSERT INTO stock_transactions (item_id, request_id, transaction_type, quantity, issued_to, reason, recorded_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		itemID, requestID, transactionType, quantity, issuedTo, reason, recordedBy,
	)
	if err != nil {
		return 0, fmt.Errorf("recording %s transaction: %w", transactionType, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting transaction id: %w", err)
	}
	return id, nil
}

const transactionColumns = `t.id, t.item_id, t.request_id, t.transaction_type, t.quantity,
       t.issued_to, t.reason, t.recorded_by, t.transaction_date,
       i.name AS item_name, COALESCE(u.username, '') AS recorded_by_name`

const transactionJoins = ` FROM stock_transactions t
          JOIN items i ON i.id = t.item_id
          LEFT JOIN users u ON u.id = t.recorded_by`

// GetTransaction returns a journal entry by ID.
func GetTransaction(ctx context.Context, db *sql.DB, id int64) (*model.StockTransaction, error) {
	st, err := scanTransaction(db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+transactionJoins+` WHERE t.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transaction: %w", err)
	}
	return st, nil
}

// TransactionFilter narrows a journal listing. Zero values mean "no filter".
// From and To are dates in YYYY-MM-DD form, inclusive.
type TransactionFilter struct {
	ItemID    int64
	RequestID int64
	Type      string
	From      string
	To        string
	Limit     int
}

// ListTransactions returns journal entries, most recent first. The insert
// id breaks timestamp ties so ordering stays stable within one second.
func ListTransactions(ctx context.Context, db *sql.DB, filter TransactionFilter) ([]model.StockTransaction, error) {
	query := `SELECT ` + transactionColumns + transactionJoins + ` WHERE 1=1`
	var args []any

	if filter.ItemID > 0 {
		query += ` AND t.item_id = ?`
		args = append(args, filter.ItemID)
	}
	if filter.RequestID > 0 {
		query += ` AND t.request_id = ?`
		args = append(args, filter.RequestID)
	}
	if filter.Type != "" {
		query += ` AND t.transaction_type = ?`
		args = append(args, filter.Type)
	}
	if filter.From != "" {
		query += ` AND date(t.transaction_date) >= date(?)`
		args = append(args, filter.From)
	}
	if filter.To != "" {
		query += ` AND date(t.transaction_date) <= date(?)`
		args = append(args, filter.To)
	}

	query += ` ORDER BY t.transaction_date DESC, t.id DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.StockTransaction
	for rows.Next() {
		st, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		transactions = append(transactions, *st)
	}
	return transactions, rows.Err()
}

func scanTransaction(row interface{ Scan(...any) error }) (*model.StockTransaction, error) {
	st := &model.StockTransaction{}
	err := row.Scan(&st.ID, &st.ItemID, &st.RequestID, &st.Type, &st.Quantity,
		&st.IssuedTo, &st.Reason, &st.RecordedBy, &st.TransactionDate,
		&st.ItemName, &st.RecordedByName)
	if err != nil {
		return nil, err
	}
	return st, nil
}
