package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/model"
)

func TestSubmitRequest(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requestor := createTestUser(t, database, "alice", model.RoleRequestor)
	item := createTestItem(t, database, "Projector", 5)

	request, err := SubmitRequest(ctx, database, item.ID, requestor.ID, 3, "team event")
	if err != nil {
		t.Fatalf("SubmitRequest: %v", err)
	}
	if request.Status != model.RequestPending {
		t.Errorf("expected Pending, got %q", request.Status)
	}
	if request.ItemName != "Projector" || request.RequestorName != "alice" {
		t.Errorf("expected joined names, got %+v", request)
	}

	// Submission never moves stock.
	got, _ := GetItem(ctx, database, item.ID)
	if got.QuantityIssued != 0 || got.QuantityTotal != 5 {
		t.Errorf("submission must not change quantities: %+v", got)
	}
}

func TestSubmitRequestInsufficientStock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requestor := createTestUser(t, database, "alice", model.RoleRequestor)
	item := createTestItem(t, database, "Tent", 2)

	_, err := SubmitRequest(ctx, database, item.ID, requestor.ID, 3, "")
	if !errors.Is(err, model.ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestSubmitRequestDuplicatePending(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, database, "alice", model.RoleRequestor)
	bob := createTestUser(t, database, "bob", model.RoleRequestor)
	item := createTestItem(t, database, "Tent", 10)

	if _, err := SubmitRequest(ctx, database, item.ID, alice.ID, 1, ""); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err := SubmitRequest(ctx, database, item.ID, alice.ID, 2, "")
	if !errors.Is(err, model.ErrDuplicatePending) {
		t.Errorf("expected ErrDuplicatePending, got %v", err)
	}

	// Another requestor is not blocked.
	if _, err := SubmitRequest(ctx, database, item.ID, bob.ID, 1, ""); err != nil {
		t.Errorf("bob's submit should succeed: %v", err)
	}
}

func TestSubmitRequestMissingItem(t *testing.T) {
	database := db.NewTestDB(t)
	requestor := createTestUser(t, database, "alice", model.RoleRequestor)

	_, err := SubmitRequest(context.Background(), database, 999, requestor.ID, 1, "")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestApproveAndRejectRequest(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	requestor := createTestUser(t, database, "alice", model.RoleRequestor)
	item := createTestItem(t, database, "Tent", 10)

	request, _ := SubmitRequest(ctx, database, item.ID, requestor.ID, 2, "")

	approved, err := ApproveRequest(ctx, database, request.ID)
	if err != nil {
		t.Fatalf("ApproveRequest: %v", err)
	}
	if approved.Status != model.RequestApproved {
		t.Errorf("expected Approved, got %q", approved.Status)
	}

	// Approving twice is an invalid transition.
	_, err = ApproveRequest(ctx, database, request.ID)
	if !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	// An approved request can still be rejected before issuance.
	rejected, err := RejectRequest(ctx, database, request.ID)
	if err != nil {
		t.Fatalf("RejectRequest: %v", err)
	}
	if rejected.Status != model.RequestRejected {
		t.Errorf("expected Rejected, got %q", rejected.Status)
	}

	// Rejected is terminal.
	_, err = ApproveRequest(ctx, database, request.ID)
	if !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition after terminal state, got %v", err)
	}
}

func TestCancelRequest(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, database, "alice", model.RoleRequestor)
	bob := createTestUser(t, database, "bob", model.RoleRequestor)
	item := createTestItem(t, database, "Tent", 10)

	request, _ := SubmitRequest(ctx, database, item.ID, alice.ID, 1, "")

	// Only the owner may cancel.
	_, err := CancelRequest(ctx, database, request.ID, bob.ID)
	if !errors.Is(err, model.ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}

	cancelled, err := CancelRequest(ctx, database, request.ID, alice.ID)
	if err != nil {
		t.Fatalf("CancelRequest: %v", err)
	}
	if cancelled.Status != model.RequestCancelled {
		t.Errorf("expected Cancelled, got %q", cancelled.Status)
	}

	// Approved requests are out of the requestor's hands.
	second, _ := SubmitRequest(ctx, database, item.ID, alice.ID, 1, "")
	ApproveRequest(ctx, database, second.ID)
	_, err = CancelRequest(ctx, database, second.ID, alice.ID)
	if !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for approved request, got %v", err)
	}
}

func TestListRequestsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, database, "alice", model.RoleRequestor)
	bob := createTestUser(t, database, "bob", model.RoleRequestor)
	tent := createTestItem(t, database, "Tent", 10)
	rope := createTestItem(t, database, "Rope", 10)

	SubmitRequest(ctx, database, tent.ID, alice.ID, 1, "")
	SubmitRequest(ctx, database, rope.ID, alice.ID, 2, "")
	bobReq, _ := SubmitRequest(ctx, database, tent.ID, bob.ID, 3, "")
	ApproveRequest(ctx, database, bobReq.ID)

	all, err := ListRequests(ctx, database, RequestFilter{})
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 requests, got %d", len(all))
	}

	mine, _ := ListRequests(ctx, database, RequestFilter{RequestorID: alice.ID})
	if len(mine) != 2 {
		t.Errorf("expected 2 requests for alice, got %d", len(mine))
	}

	tents, _ := ListRequests(ctx, database, RequestFilter{ItemID: tent.ID})
	if len(tents) != 2 {
		t.Errorf("expected 2 tent requests, got %d", len(tents))
	}

	approved, _ := ListRequests(ctx, database, RequestFilter{Status: model.RequestApproved})
	if len(approved) != 1 || approved[0].RequestorName != "bob" {
		t.Errorf("expected bob's approved request, got %+v", approved)
	}
}

func TestListReturnableRequests(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, database, "alice", model.RoleRequestor)
	bob := createTestUser(t, database, "bob", model.RoleRequestor)
	item := createTestItem(t, database, "Tent", 10)

	issued, _ := SubmitRequest(ctx, database, item.ID, alice.ID, 3, "")
	ApproveRequest(ctx, database, issued.ID)
	IssueFromRequest(ctx, database, issued.ID, nil)

	pending, _ := SubmitRequest(ctx, database, item.ID, bob.ID, 1, "")
	_ = pending

	returnable, err := ListReturnableRequests(ctx, database)
	if err != nil {
		t.Fatalf("ListReturnableRequests: %v", err)
	}
	if len(returnable) != 1 || returnable[0].ID != issued.ID {
		t.Fatalf("expected only the issued request, got %+v", returnable)
	}

	// A partial return keeps the request eligible.
	ReturnForRequest(ctx, database, issued.ID, 1, "", nil)
	returnable, _ = ListReturnableRequests(ctx, database)
	if len(returnable) != 1 {
		t.Errorf("partially returned request should stay returnable, got %d", len(returnable))
	}

	// A full return removes it.
	ReturnForRequest(ctx, database, issued.ID, 2, "", nil)
	returnable, _ = ListReturnableRequests(ctx, database)
	if len(returnable) != 0 {
		t.Errorf("fully returned request should not be returnable, got %d", len(returnable))
	}
}
