package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/zaloga/internal/model"
)

// ItemParams holds the attributes for creating or updating an item.
type ItemParams struct {
	Name             string
	SerialNumber     string
	Category         string
	Condition        string
	Status           string
	ExpirationDate   *time.Time
	QuantityTotal    int
	QuantityIssued   int
	QuantityReturned int
	CreatedBy        *int64
}

func (p *ItemParams) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("item name is required")
	}
	if p.Condition == "" {
		p.Condition = model.ConditionServiceable
	}
	if p.Status == "" {
		p.Status = model.ItemStatusInStock
	}
	if !model.ValidCondition(p.Condition) {
		return fmt.Errorf("unknown condition %q", p.Condition)
	}
	if !model.ValidItemStatus(p.Status) {
		return fmt.Errorf("unknown status %q", p.Status)
	}
	if p.QuantityTotal < 0 || p.QuantityIssued < 0 || p.QuantityReturned < 0 {
		return fmt.Errorf("quantities cannot be negative")
	}
	if p.QuantityIssued > p.QuantityTotal {
		return fmt.Errorf("quantity issued cannot be greater than total quantity")
	}
	return nil
}

const itemColumns = `id, name, serial_number, category, condition, status, expiration_date,
       quantity_total, quantity_issued, quantity_returned, image_mime,
       created_by, created_at, updated_at, deleted_at`

func scanItem(row interface{ Scan(...any) error }) (*model.Item, error) {
	item := &model.Item{}
	var serial, imageMime sql.NullString
	err := row.Scan(&item.ID, &item.Name, &serial, &item.Category, &item.Condition, &item.Status,
		&item.ExpirationDate,
		&item.QuantityTotal, &item.QuantityIssued, &item.QuantityReturned, &imageMime,
		&item.CreatedBy, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt)
	if err != nil {
		return nil, err
	}
	item.SerialNumber = serial.String
	item.ImageMime = imageMime.String
	item.QuantityRemaining = item.Remaining()
	item.Expired = item.IsExpired()
	return item, nil
}

// serialOrNull maps an empty serial number to NULL so the partial unique
// index only applies to real serials.
func serialOrNull(serial string) any {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return nil
	}
	return serial
}

// CreateItem creates a new inventory item. A nonzero starting total is
// journaled as a Receive transaction so the audit trail explains every
// unit ever stocked. This is initial stocking, not a ledger delta: later
// changes go through the mutation protocol.
func CreateItem(ctx context.Context, db *sql.DB, p ItemParams) (*model.Item, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO items (name, serial_number, category, condition, status, expiration_date,
		                    quantity_total, quantity_issued, quantity_returned, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(p.Name), serialOrNull(p.SerialNumber), strings.TrimSpace(p.Category),
		p.Condition, p.Status, p.ExpirationDate,
		p.QuantityTotal, p.QuantityIssued, p.QuantityReturned, p.CreatedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	if p.QuantityTotal > 0 {
		_, err = appendTransaction(ctx, tx, id, nil, model.TransactionReceive,
			p.QuantityTotal, "", "Initial stock", p.CreatedBy)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item creation: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all non-deleted items, optionally filtered by a search
// query (matched against name, serial number and category) and status.
func ListItems(ctx context.Context, db *sql.DB, query, status string) ([]model.Item, error) {
	q := `SELECT ` + itemColumns + ` FROM items WHERE deleted_at IS NULL`
	var args []any

	if query != "" {
		q += ` AND (name LIKE ? OR serial_number LIKE ? OR category LIKE ?)`
		pattern := "%" + query + "%"
		args = append(args, pattern, pattern, pattern)
	}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}

	q += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ListAvailableItems returns non-deleted items with remaining stock,
// the only view requestors see.
func ListAvailableItems(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE deleted_at IS NULL AND quantity_total - quantity_issued > 0
		 ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing available items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem updates an item's descriptive fields. Quantities are not
// touched here: they change only through the mutation protocol.
func UpdateItem(ctx context.Context, db *sql.DB, id int64, name, serialNumber, category, condition, status string, expirationDate *time.Time) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("item name is required")
	}
	if !model.ValidCondition(condition) {
		return fmt.Errorf("unknown condition %q", condition)
	}
	if !model.ValidItemStatus(status) {
		return fmt.Errorf("unknown status %q", status)
	}

	_, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, serial_number = ?, category = ?, condition = ?, status = ?,
		        expiration_date = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		strings.TrimSpace(name), serialOrNull(serialNumber), strings.TrimSpace(category),
		condition, status, expirationDate, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// DeleteItem soft-deletes an item. Requests and transactions keep their
// references; the item stays fetchable by ID for history.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportItems creates one item per row, each in its own transaction so one
// bad row does not abort the rest. Rows without a name, or with a serial
// number already in stock, are skipped.
func ImportItems(ctx context.Context, db *sql.DB, rows []ItemParams, createdBy *int64) ImportResult {
	var result ImportResult
	for i, p := range rows {
		p.CreatedBy = createdBy
		if strings.TrimSpace(p.Name) == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: missing item name", i+1))
			continue
		}
		if _, err := CreateItem(ctx, db, p); err != nil {
			result.Skipped++
			if isUniqueViolation(err) {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: serial number %q already in stock", i+1, p.SerialNumber))
			} else {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			}
			continue
		}
		result.Imported++
	}
	return result
}

// isUniqueViolation reports whether an error came from a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
