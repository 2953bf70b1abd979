package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/zaloga/internal/store"
)

// StockHandler handles direct stock mutations that bypass the request
// lifecycle: walk-up issues and corrective adjustments.
type StockHandler struct {
	DB *sql.DB
}

type issueStockRequest struct {
	ItemID   int64  `json:"item_id"`
	Quantity int    `json:"quantity"`
	IssuedTo string `json:"issued_to"`
}

type adjustStockRequest struct {
	ItemID int64  `json:"item_id"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// Issue handles POST /api/stock/issue.
func (h *StockHandler) Issue(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req issueStockRequest
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
	if req.IssuedTo == "" {
		jsonError(w, http.StatusBadRequest, "issued_to required")
		return
	}

	transaction, err := store.IssueDirect(r.Context(), h.DB, req.ItemID, req.Quantity, req.IssuedTo, &claims.UserID)
	if err != nil {
		storeError(w, err, "failed to issue stock")
		return
	}

	slog.Info("stock issued directly", "item", req.ItemID, "quantity", req.Quantity,
		"to", req.IssuedTo, "by", claims.Username)
	jsonResponse(w, http.StatusCreated, transaction)
}

// Adjust handles POST /api/stock/adjust. Delta may be negative; the ledger
// refuses adjustments that would take stock below what is out on loan.
func (h *StockHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req adjustStockRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ItemID <= 0 {
		jsonError(w, http.StatusBadRequest, "item_id required")
		return
	}
	if req.Delta == 0 {
		jsonError(w, http.StatusBadRequest, "delta cannot be zero")
		return
	}
	if req.Reason == "" {
		jsonError(w, http.StatusBadRequest, "reason required")
		return
	}

	transaction, err := store.AdjustStock(r.Context(), h.DB, req.ItemID, req.Delta, req.Reason, &claims.UserID)
	if err != nil {
		storeError(w, err, "failed to adjust stock")
		return
	}

	slog.Info("stock adjusted", "item", req.ItemID, "delta", req.Delta,
		"reason", req.Reason, "by", claims.Username)
	jsonResponse(w, http.StatusCreated, transaction)
}
