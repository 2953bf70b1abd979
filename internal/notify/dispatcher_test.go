package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

type recordingNotifier struct {
	delivered []model.Notification
	fail      bool
}

func (r *recordingNotifier) Notify(_ context.Context, n model.Notification) error {
	if r.fail {
		return errors.New("delivery down")
	}
	r.delivered = append(r.delivered, n)
	return nil
}

func TestDispatchPending(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, database, "alice", "alice@example.com", "hash", model.RoleRequestor)
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	item, err := store.CreateItem(ctx, database, store.ItemParams{Name: "Tent", QuantityTotal: 5})
	if err != nil {
		t.Fatalf("creating item: %v", err)
	}
	if _, err := store.SubmitRequest(ctx, database, item.ID, user.ID, 1, ""); err != nil {
		t.Fatalf("submitting request: %v", err)
	}

	notifier := &recordingNotifier{}
	dispatcher := &Dispatcher{DB: database, Notifier: notifier}

	if err := dispatcher.DispatchPending(ctx); err != nil {
		t.Fatalf("DispatchPending: %v", err)
	}
	if len(notifier.delivered) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(notifier.delivered))
	}
	if notifier.delivered[0].Event != model.EventRequestSubmitted {
		t.Errorf("expected submitted event, got %q", notifier.delivered[0].Event)
	}
	if notifier.delivered[0].Email != "alice@example.com" {
		t.Errorf("expected recipient email joined, got %q", notifier.delivered[0].Email)
	}

	// Delivered entries are not re-sent.
	if err := dispatcher.DispatchPending(ctx); err != nil {
		t.Fatalf("second DispatchPending: %v", err)
	}
	if len(notifier.delivered) != 1 {
		t.Errorf("expected no redelivery, got %d", len(notifier.delivered))
	}
}

func TestDispatchFailureStaysPending(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := store.CreateUser(ctx, database, "alice", "alice@example.com", "hash", model.RoleRequestor)
	item, _ := store.CreateItem(ctx, database, store.ItemParams{Name: "Tent", QuantityTotal: 5})
	store.SubmitRequest(ctx, database, item.ID, user.ID, 1, "")

	notifier := &recordingNotifier{fail: true}
	dispatcher := &Dispatcher{DB: database, Notifier: notifier}

	if err := dispatcher.DispatchPending(ctx); err != nil {
		t.Fatalf("DispatchPending: %v", err)
	}

	// Still pending after the failed pass; a recovered notifier picks it up.
	pending, _ := store.ListPendingNotifications(ctx, database, 0)
	if len(pending) != 1 {
		t.Fatalf("failed delivery should stay pending, got %d", len(pending))
	}

	notifier.fail = false
	dispatcher.DispatchPending(ctx)
	if len(notifier.delivered) != 1 {
		t.Errorf("expected delivery after recovery, got %d", len(notifier.delivered))
	}
}
