package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// TransactionsHandler serves the read-only stock journal.
type TransactionsHandler struct {
	DB *sql.DB
}

// List handles GET /api/transactions. Supports item_id, request_id, type,
// from, to (dates, YYYY-MM-DD) and limit query parameters.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.TransactionFilter{
		Type: q.Get("type"),
		From: q.Get("from"),
		To:   q.Get("to"),
	}
	if v := q.Get("item_id"); v != "" {
		filter.ItemID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("request_id"); v != "" {
		filter.RequestID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}

	if filter.Type != "" && !model.ValidTransactionType(filter.Type) {
		jsonError(w, http.StatusBadRequest, "invalid transaction type")
		return
	}

	transactions, err := store.ListTransactions(r.Context(), h.DB, filter)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if transactions == nil {
		transactions = []model.StockTransaction{}
	}
	jsonResponse(w, http.StatusOK, transactions)
}

// Get handles GET /api/transactions/{id}.
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	transaction, err := store.GetTransaction(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get transaction")
		return
	}
	if transaction == nil {
		jsonError(w, http.StatusNotFound, "transaction not found")
		return
	}
	jsonResponse(w, http.StatusOK, transaction)
}
