package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/model"
)

func TestListTransactionsOrderingAndFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	clerk := createTestUser(t, database, "clerk", model.RoleClerk)
	tent := createTestItem(t, database, "Tent", 10)
	rope := createTestItem(t, database, "Rope", 20)

	IssueDirect(ctx, database, tent.ID, 2, "crew", &clerk.ID)
	AdjustStock(ctx, database, rope.ID, -5, "write-off", &clerk.ID)

	all, err := ListTransactions(ctx, database, TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	// Two Receive entries from item creation plus the two mutations.
	if len(all) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(all))
	}

	// Most recent first; id breaks ties within the same second.
	for i := 1; i < len(all); i++ {
		if all[i-1].TransactionDate.Before(all[i].TransactionDate) {
			t.Errorf("entries out of order at %d", i)
		}
		if all[i-1].TransactionDate.Equal(all[i].TransactionDate) && all[i-1].ID < all[i].ID {
			t.Errorf("tie not broken by id at %d", i)
		}
	}

	byItem, _ := ListTransactions(ctx, database, TransactionFilter{ItemID: tent.ID})
	if len(byItem) != 2 {
		t.Errorf("expected 2 entries for tent, got %d", len(byItem))
	}

	byType, _ := ListTransactions(ctx, database, TransactionFilter{Type: model.TransactionAdjustment})
	if len(byType) != 1 || byType[0].Quantity != -5 {
		t.Errorf("expected the single adjustment, got %+v", byType)
	}

	limited, _ := ListTransactions(ctx, database, TransactionFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d", len(limited))
	}
}

func TestListTransactionsDateRange(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	createTestItem(t, database, "Tent", 10)

	today := time.Now().UTC().Format("2006-01-02")
	inRange, err := ListTransactions(ctx, database, TransactionFilter{From: today, To: today})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(inRange) != 1 {
		t.Errorf("expected today's receive entry, got %d", len(inRange))
	}

	outOfRange, _ := ListTransactions(ctx, database, TransactionFilter{To: "2000-01-01"})
	if len(outOfRange) != 0 {
		t.Errorf("expected no entries before 2000, got %d", len(outOfRange))
	}
}

func TestGetTransaction(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	clerk := createTestUser(t, database, "clerk", model.RoleClerk)
	item := createTestItem(t, database, "Tent", 10)

	created, _ := IssueDirect(ctx, database, item.ID, 1, "crew", &clerk.ID)

	got, err := GetTransaction(ctx, database, created.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.ItemName != "Tent" || got.RecordedByName != "clerk" {
		t.Errorf("expected joined names, got %+v", got)
	}

	missing, err := GetTransaction(ctx, database, 999)
	if err != nil || missing != nil {
		t.Errorf("expected nil for missing entry, got %+v, %v", missing, err)
	}
}
