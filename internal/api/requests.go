package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// RequestsHandler handles the request lifecycle endpoints.
type RequestsHandler struct {
	DB *sql.DB
}

type submitRequestRequest struct {
	ItemID   int64  `json:"item_id"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

type returnRequestRequest struct {
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// Create handles POST /api/requests. The request is always filed under the
// authenticated user, regardless of role.
func (h *RequestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req submitRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ItemID <= 0 {
		jsonError(w, http.StatusBadRequest, "item_id required")
		return
	}
	if req.Quantity <= 0 {
		jsonError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	request, err := store.SubmitRequest(r.Context(), h.DB, req.ItemID, claims.UserID, req.Quantity, req.Reason)
	if err != nil {
		storeError(w, err, "failed to submit request")
		return
	}

	slog.Info("request submitted", "request", request.ID, "item", request.ItemName,
		"quantity", request.Quantity, "user", claims.Username)
	jsonResponse(w, http.StatusCreated, request)
}

// List handles GET /api/requests. Requestors only see their own requests;
// clerks and admins see everything and may filter by requestor, item and
// status.
func (h *RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	filter := store.RequestFilter{
		Status: r.URL.Query().Get("status"),
	}
	if v := r.URL.Query().Get("item_id"); v != "" {
		filter.ItemID, _ = strconv.ParseInt(v, 10, 64)
	}

	if model.RoleAtLeast(claims.Role, model.RoleClerk) {
		if v := r.URL.Query().Get("requestor_id"); v != "" {
			filter.RequestorID, _ = strconv.ParseInt(v, 10, 64)
		}
	} else {
		filter.RequestorID = claims.UserID
	}

	requests, err := store.ListRequests(r.Context(), h.DB, filter)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}
	if requests == nil {
		requests = []model.Request{}
	}
	jsonResponse(w, http.StatusOK, requests)
}

// ListReturnable handles GET /api/requests/returnable. Issued and partially
// returned requests with units still out.
func (h *RequestsHandler) ListReturnable(w http.ResponseWriter, r *http.Request) {
	requests, err := store.ListReturnableRequests(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list returnable requests")
		return
	}
	if requests == nil {
		requests = []model.Request{}
	}
	jsonResponse(w, http.StatusOK, requests)
}

// Get handles GET /api/requests/{id}. Requestors can only read their own.
func (h *RequestsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	request, err := store.GetRequest(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get request")
		return
	}
	if request == nil {
		jsonError(w, http.StatusNotFound, "request not found")
		return
	}
	if !model.RoleAtLeast(claims.Role, model.RoleClerk) && request.RequestorID != claims.UserID {
		jsonError(w, http.StatusForbidden, "not your request")
		return
	}
	jsonResponse(w, http.StatusOK, request)
}

// Approve handles POST /api/requests/{id}/approve.
func (h *RequestsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	request, err := store.ApproveRequest(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to approve request")
		return
	}

	slog.Info("request approved", "request", id, "item", request.ItemName)
	jsonResponse(w, http.StatusOK, request)
}

// Reject handles POST /api/requests/{id}/reject.
func (h *RequestsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	request, err := store.RejectRequest(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to reject request")
		return
	}

	slog.Info("request rejected", "request", id, "item", request.ItemName)
	jsonResponse(w, http.StatusOK, request)
}

// Cancel handles POST /api/requests/{id}/cancel. Only the requestor may
// cancel, and only while the request is still Pending.
func (h *RequestsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	request, err := store.CancelRequest(r.Context(), h.DB, id, claims.UserID)
	if err != nil {
		storeError(w, err, "failed to cancel request")
		return
	}

	slog.Info("request cancelled", "request", id, "user", claims.Username)
	jsonResponse(w, http.StatusOK, request)
}

// Issue handles POST /api/requests/{id}/issue. Deducts stock and moves the
// request to Issued in one transaction.
func (h *RequestsHandler) Issue(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	request, transaction, err := store.IssueFromRequest(r.Context(), h.DB, id, &claims.UserID)
	if err != nil {
		storeError(w, err, "failed to issue request")
		return
	}

	slog.Info("request issued", "request", id, "item", request.ItemName,
		"quantity", request.Quantity, "by", claims.Username)
	jsonResponse(w, http.StatusOK, map[string]any{
		"request":     request,
		"transaction": transaction,
	})
}

// Return handles POST /api/requests/{id}/return. Accepts full or partial
// returns against an issued request.
func (h *RequestsHandler) Return(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var req returnRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity <= 0 {
		jsonError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	request, transaction, err := store.ReturnForRequest(r.Context(), h.DB, id, req.Quantity, req.Reason, &claims.UserID)
	if err != nil {
		storeError(w, err, "failed to process return")
		return
	}

	slog.Info("return processed", "request", id, "item", request.ItemName,
		"quantity", req.Quantity, "status", request.Status, "by", claims.Username)
	jsonResponse(w, http.StatusOK, map[string]any{
		"request":     request,
		"transaction": transaction,
	})
}
