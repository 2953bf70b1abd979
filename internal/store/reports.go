package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/zaloga/internal/model"
)

// SummaryReport aggregates the ledger for dashboards and exports.
type SummaryReport struct {
	TotalStock        int            `json:"total_stock"`
	TotalIssued       int            `json:"total_issued"`
	TotalReturned     int            `json:"total_returned"`
	TotalRequests     int            `json:"total_requests"`
	RequestsByStatus  map[string]int `json:"requests_by_status"`
	ReturnableCount   int            `json:"returnable_count"`
	TotalReturnedQty  int            `json:"total_returned_quantity"`
	TopRequestedItems []ItemDemand   `json:"top_requested_items"`
}

// ItemDemand is one row of the top-requested-items report.
type ItemDemand struct {
	ItemID       int64  `json:"item_id"`
	ItemName     string `json:"item_name"`
	RequestCount int    `json:"request_count"`
	TotalWanted  int    `json:"total_quantity_requested"`
}

// GetSummaryReport computes the aggregate stock and request figures.
func GetSummaryReport(ctx context.Context, db *sql.DB, topItems int) (*SummaryReport, error) {
	report := &SummaryReport{RequestsByStatus: make(map[string]int)}

	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity_total), 0), COALESCE(SUM(quantity_issued), 0), COALESCE(SUM(quantity_returned), 0)
		 FROM items WHERE deleted_at IS NULL`,
	).Scan(&report.TotalStock, &report.TotalIssued, &report.TotalReturned)
	if err != nil {
		return nil, fmt.Errorf("summing stock quantities: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM requests GROUP BY status`,
	)
	if err != nil {
		return nil, fmt.Errorf("counting requests by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning request count: %w", err)
		}
		report.RequestsByStatus[status] = count
		report.TotalRequests += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM requests
		 WHERE status IN (?, ?) AND returned_quantity < quantity`,
		model.RequestIssued, model.RequestPartiallyReturned,
	).Scan(&report.ReturnableCount)
	if err != nil {
		return nil, fmt.Errorf("counting returnable requests: %w", err)
	}

	err = db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(returned_quantity), 0) FROM requests`,
	).Scan(&report.TotalReturnedQty)
	if err != nil {
		return nil, fmt.Errorf("summing returned quantities: %w", err)
	}

	if topItems > 0 {
		report.TopRequestedItems, err = topRequestedItems(ctx, db, topItems)
		if err != nil {
			return nil, err
		}
	}

	return report, nil
}

func topRequestedItems(ctx context.Context, db *sql.DB, limit int) ([]ItemDemand, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT r.item_id, i.name, COUNT(*), COALESCE(SUM(r.quantity), 0)
		 FROM requests r
		 JOIN items i ON i.id = r.item_id
		 GROUP BY r.item_id, i.name
		 ORDER BY COUNT(*) DESC, i.name
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing top requested items: %w", err)
	}
	defer rows.Close()

	var demands []ItemDemand
	for rows.Next() {
		var d ItemDemand
		if err := rows.Scan(&d.ItemID, &d.ItemName, &d.RequestCount, &d.TotalWanted); err != nil {
			return nil, fmt.Errorf("scanning item demand: %w", err)
		}
		demands = append(demands, d)
	}
	return demands, rows.Err()
}
