package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, database
}

// loginAs creates a user with the given role and returns a token for them.
func loginAs(t *testing.T, server *httptest.Server, database *sql.DB, username, role string) string {
	t.Helper()

	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if _, err := store.CreateUser(ctx, database, username, username+"@example.com", string(hash), role); err != nil {
		t.Fatalf("creating %s: %v", username, err)
	}

	body, _ := json.Marshal(map[string]string{"username": username, "password": "password"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	token := loginResp["token"]
	if token == "" {
		t.Fatal("empty token from login")
	}
	return token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func doJSON(t *testing.T, req *http.Request, wantStatus int, target any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		var errBody map[string]string
		json.NewDecoder(resp.Body).Decode(&errBody)
		t.Fatalf("%s %s: expected %d, got %d (%v)", req.Method, req.URL.Path, wantStatus, resp.StatusCode, errBody)
	}
	if target != nil {
		json.NewDecoder(resp.Body).Decode(target)
	}
}

func TestLoginEndpoint(t *testing.T) {
	server, database := setupTestServer(t)
	loginAs(t, server, database, "admin", model.RoleAdmin)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRegisterEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{
		"username": "newuser",
		"email":    "new@example.com",
		"password": "longenough",
	})
	resp, _ := http.Post(server.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var user model.User
	json.NewDecoder(resp.Body).Decode(&user)
	resp.Body.Close()
	if user.Role != model.RoleRequestor {
		t.Errorf("self-registered user should be a requestor, got %q", user.Role)
	}

	// Short password rejected.
	body, _ = json.Marshal(map[string]string{"username": "other", "password": "short"})
	resp, _ = http.Post(server.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for short password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Duplicate username rejected.
	body, _ = json.Marshal(map[string]string{"username": "newuser", "password": "longenough"})
	resp, _ = http.Post(server.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate username, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestItemsAPIFlow(t *testing.T) {
	server, database := setupTestServer(t)
	token := loginAs(t, server, database, "clerk", model.RoleClerk)

	// Create item with initial stock.
	var item model.Item
	req, _ := authRequest("POST", server.URL+"/api/items", token, map[string]any{
		"name":           "Laptop",
		"category":       "Electronics",
		"quantity_total": 5,
	})
	doJSON(t, req, http.StatusCreated, &item)
	if item.QuantityTotal != 5 {
		t.Errorf("expected total 5, got %d", item.QuantityTotal)
	}

	// Initial stock shows up in the item history as a Receive entry.
	var history []model.StockTransaction
	req, _ = authRequest("GET", fmt.Sprintf("%s/api/items/%d/history", server.URL, item.ID), token, nil)
	doJSON(t, req, http.StatusOK, &history)
	if len(history) != 1 || history[0].Type != model.TransactionReceive {
		t.Errorf("expected one Receive entry, got %+v", history)
	}

	// List with a search query.
	var items []model.Item
	req, _ = authRequest("GET", server.URL+"/api/items?q=Lap", token, nil)
	doJSON(t, req, http.StatusOK, &items)
	if len(items) != 1 {
		t.Errorf("expected 1 item from search, got %d", len(items))
	}

	// Update descriptive fields.
	req, _ = authRequest("PUT", fmt.Sprintf("%s/api/items/%d", server.URL, item.ID), token, map[string]any{
		"name":      "Laptop",
		"category":  "Electronics",
		"condition": model.ConditionFair,
	})
	doJSON(t, req, http.StatusOK, &item)
	if item.Condition != model.ConditionFair {
		t.Errorf("expected condition updated, got %q", item.Condition)
	}
}

func TestItemImportEndpoint(t *testing.T) {
	server, database := setupTestServer(t)
	token := loginAs(t, server, database, "clerk", model.RoleClerk)

	var result store.ImportResult
	req, _ := authRequest("POST", server.URL+"/api/items/import", token, []map[string]any{
		{"name": "Tent", "quantity_total": 3},
		{"name": "", "quantity_total": 1},
		{"name": "Stove", "quantity_total": 2},
	})
	doJSON(t, req, http.StatusOK, &result)
	if result.Imported != 2 || result.Skipped != 1 {
		t.Errorf("expected 2 imported and 1 skipped, got %+v", result)
	}
}

func TestRequestLifecycleAPIFlow(t *testing.T) {
	server, database := setupTestServer(t)
	clerkToken := loginAs(t, server, database, "clerk", model.RoleClerk)
	requestorToken := loginAs(t, server, database, "alice", model.RoleRequestor)

	var item model.Item
	req, _ := authRequest("POST", server.URL+"/api/items", clerkToken, map[string]any{
		"name":           "Projector",
		"quantity_total": 10,
	})
	doJSON(t, req, http.StatusCreated, &item)

	// Requestor submits.
	var request model.Request
	req, _ = authRequest("POST", server.URL+"/api/requests", requestorToken, map[string]any{
		"item_id":  item.ID,
		"quantity": 4,
		"reason":   "team event",
	})
	doJSON(t, req, http.StatusCreated, &request)
	if request.Status != model.RequestPending {
		t.Fatalf("expected Pending, got %q", request.Status)
	}

	// A second pending request for the same item is refused.
	req, _ = authRequest("POST", server.URL+"/api/requests", requestorToken, map[string]any{
		"item_id":  item.ID,
		"quantity": 1,
	})
	doJSON(t, req, http.StatusConflict, nil)

	// Requestor cannot approve.
	req, _ = authRequest("POST", fmt.Sprintf("%s/api/requests/%d/approve", server.URL, request.ID), requestorToken, nil)
	doJSON(t, req, http.StatusForbidden, nil)

	// Clerk approves and issues.
	req, _ = authRequest("POST", fmt.Sprintf("%s/api/requests/%d/approve", server.URL, request.ID), clerkToken, nil)
	doJSON(t, req, http.StatusOK, &request)
	if request.Status != model.RequestApproved {
		t.Fatalf("expected Approved, got %q", request.Status)
	}

	var issued struct {
		Request     model.Request          `json:"request"`
		Transaction model.StockTransaction `json:"transaction"`
	}
	req, _ = authRequest("POST", fmt.Sprintf("%s/api/requests/%d/issue", server.URL, request.ID), clerkToken, nil)
	doJSON(t, req, http.StatusOK, &issued)
	if issued.Request.Status != model.RequestIssued {
		t.Errorf("expected Issued, got %q", issued.Request.Status)
	}
	if issued.Transaction.Type != model.TransactionIssue {
		t.Errorf("expected Issue transaction, got %q", issued.Transaction.Type)
	}

	// Issuing again conflicts.
	req, _ = authRequest("POST", fmt.Sprintf("%s/api/requests/%d/issue", server.URL, request.ID), clerkToken, nil)
	doJSON(t, req, http.StatusConflict, nil)

	// Partial return, then the balance.
	var returned struct {
		Request model.Request `json:"request"`
	}
	req, _ = authRequest("POST", fmt.Sprintf("%s/api/requests/%d/return", server.URL, request.ID), clerkToken,
		map[string]any{"quantity": 1})
	doJSON(t, req, http.StatusOK, &returned)
	if returned.Request.Status != model.RequestPartiallyReturned {
		t.Errorf("expected Partially Returned, got %q", returned.Request.Status)
	}

	req, _ = authRequest("POST", fmt.Sprintf("%s/api/requests/%d/return", server.URL, request.ID), clerkToken,
		map[string]any{"quantity": 3})
	doJSON(t, req, http.StatusOK, &returned)
	if returned.Request.Status != model.RequestFullyReturned {
		t.Errorf("expected Fully Returned, got %q", returned.Request.Status)
	}

	// Over-return conflicts.
	req, _ = authRequest("POST", fmt.Sprintf("%s/api/requests/%d/return", server.URL, request.ID), clerkToken,
		map[string]any{"quantity": 1})
	doJSON(t, req, http.StatusConflict, nil)
}

func TestRequestListScoping(t *testing.T) {
	server, database := setupTestServer(t)
	clerkToken := loginAs(t, server, database, "clerk", model.RoleClerk)
	aliceToken := loginAs(t, server, database, "alice", model.RoleRequestor)
	bobToken := loginAs(t, server, database, "bob", model.RoleRequestor)

	var item model.Item
	req, _ := authRequest("POST", server.URL+"/api/items", clerkToken, map[string]any{
		"name":           "Camera",
		"quantity_total": 10,
	})
	doJSON(t, req, http.StatusCreated, &item)

	var aliceRequest model.Request
	req, _ = authRequest("POST", server.URL+"/api/requests", aliceToken, map[string]any{"item_id": item.ID, "quantity": 1})
	doJSON(t, req, http.StatusCreated, &aliceRequest)
	req, _ = authRequest("POST", server.URL+"/api/requests", bobToken, map[string]any{"item_id": item.ID, "quantity": 2})
	doJSON(t, req, http.StatusCreated, nil)

	// Requestors only see their own.
	var requests []model.Request
	req, _ = authRequest("GET", server.URL+"/api/requests", aliceToken, nil)
	doJSON(t, req, http.StatusOK, &requests)
	if len(requests) != 1 {
		t.Errorf("alice should see 1 request, got %d", len(requests))
	}

	// Clerks see everything.
	req, _ = authRequest("GET", server.URL+"/api/requests", clerkToken, nil)
	doJSON(t, req, http.StatusOK, &requests)
	if len(requests) != 2 {
		t.Errorf("clerk should see 2 requests, got %d", len(requests))
	}

	// Bob cannot read or cancel alice's request.
	req, _ = authRequest("GET", fmt.Sprintf("%s/api/requests/%d", server.URL, aliceRequest.ID), bobToken, nil)
	doJSON(t, req, http.StatusForbidden, nil)
	req, _ = authRequest("POST", fmt.Sprintf("%s/api/requests/%d/cancel", server.URL, aliceRequest.ID), bobToken, nil)
	doJSON(t, req, http.StatusForbidden, nil)

	// Alice can cancel her own pending request.
	req, _ = authRequest("POST", fmt.Sprintf("%s/api/requests/%d/cancel", server.URL, aliceRequest.ID), aliceToken, nil)
	doJSON(t, req, http.StatusOK, &aliceRequest)
	if aliceRequest.Status != model.RequestCancelled {
		t.Errorf("expected Cancelled, got %q", aliceRequest.Status)
	}
}

func TestStockEndpoints(t *testing.T) {
	server, database := setupTestServer(t)
	clerkToken := loginAs(t, server, database, "clerk", model.RoleClerk)
	requestorToken := loginAs(t, server, database, "alice", model.RoleRequestor)

	var item model.Item
	req, _ := authRequest("POST", server.URL+"/api/items", clerkToken, map[string]any{
		"name":           "Cable",
		"quantity_total": 8,
	})
	doJSON(t, req, http.StatusCreated, &item)

	// Requestors cannot touch stock.
	req, _ = authRequest("POST", server.URL+"/api/stock/adjust", requestorToken,
		map[string]any{"item_id": item.ID, "delta": 1, "reason": "found one"})
	doJSON(t, req, http.StatusForbidden, nil)

	// Direct issue.
	var transaction model.StockTransaction
	req, _ = authRequest("POST", server.URL+"/api/stock/issue", clerkToken,
		map[string]any{"item_id": item.ID, "quantity": 3, "issued_to": "maintenance"})
	doJSON(t, req, http.StatusCreated, &transaction)
	if transaction.Type != model.TransactionIssue {
		t.Errorf("expected Issue transaction, got %q", transaction.Type)
	}

	// Adjustment below zero conflicts.
	req, _ = authRequest("POST", server.URL+"/api/stock/adjust", clerkToken,
		map[string]any{"item_id": item.ID, "delta": -100, "reason": "bad count"})
	doJSON(t, req, http.StatusConflict, nil)

	// Valid negative adjustment.
	req, _ = authRequest("POST", server.URL+"/api/stock/adjust", clerkToken,
		map[string]any{"item_id": item.ID, "delta": -2, "reason": "write-off"})
	doJSON(t, req, http.StatusCreated, &transaction)
	if transaction.Quantity != -2 {
		t.Errorf("adjustment should keep its sign, got %d", transaction.Quantity)
	}

	// Journal lists all three entries, Receive included.
	var transactions []model.StockTransaction
	req, _ = authRequest("GET", server.URL+"/api/transactions", clerkToken, nil)
	doJSON(t, req, http.StatusOK, &transactions)
	if len(transactions) != 3 {
		t.Errorf("expected 3 journal entries, got %d", len(transactions))
	}
}

func TestReportsSummaryEndpoint(t *testing.T) {
	server, database := setupTestServer(t)
	clerkToken := loginAs(t, server, database, "clerk", model.RoleClerk)

	var item model.Item
	req, _ := authRequest("POST", server.URL+"/api/items", clerkToken, map[string]any{
		"name":           "Drill",
		"quantity_total": 6,
	})
	doJSON(t, req, http.StatusCreated, &item)

	var report store.SummaryReport
	req, _ = authRequest("GET", server.URL+"/api/reports/summary", clerkToken, nil)
	doJSON(t, req, http.StatusOK, &report)
	if report.TotalStock != 6 {
		t.Errorf("expected total stock 6, got %d", report.TotalStock)
	}
}

func TestUsersAdminOnly(t *testing.T) {
	server, database := setupTestServer(t)
	adminToken := loginAs(t, server, database, "admin", model.RoleAdmin)
	clerkToken := loginAs(t, server, database, "clerk", model.RoleClerk)

	// Clerk is not enough for user management.
	req, _ := authRequest("GET", server.URL+"/api/users", clerkToken, nil)
	doJSON(t, req, http.StatusForbidden, nil)

	// Admin creates a clerk account.
	var user model.User
	req, _ = authRequest("POST", server.URL+"/api/users", adminToken, map[string]string{
		"username": "clerk2",
		"password": "longenough",
		"role":     model.RoleClerk,
	})
	doJSON(t, req, http.StatusCreated, &user)
	if user.Role != model.RoleClerk {
		t.Errorf("expected clerk role, got %q", user.Role)
	}

	// Admin cannot delete themselves.
	req, _ = authRequest("GET", server.URL+"/api/users", adminToken, nil)
	var users []model.User
	doJSON(t, req, http.StatusOK, &users)
	var adminID int64
	for _, u := range users {
		if u.Username == "admin" {
			adminID = u.ID
		}
	}
	req, _ = authRequest("DELETE", fmt.Sprintf("%s/api/users/%d", server.URL, adminID), adminToken, nil)
	doJSON(t, req, http.StatusBadRequest, nil)
}

func TestUnauthenticatedRejected(t *testing.T) {
	server, _ := setupTestServer(t)

	resp, _ := http.Get(server.URL + "/api/items")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
