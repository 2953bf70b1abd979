package api

import (
	"bytes"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/zaloga/internal/imaging"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// ItemsHandler handles item CRUD and catalog endpoints.
type ItemsHandler struct {
	DB *sql.DB
}

type itemRequest struct {
	Name           string     `json:"name"`
	SerialNumber   string     `json:"serial_number"`
	Category       string     `json:"category"`
	Condition      string     `json:"condition"`
	Status         string     `json:"status"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	QuantityTotal  int        `json:"quantity_total"`
}

// List handles GET /api/items. Supports ?q= name search and ?status= filter.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	status := r.URL.Query().Get("status")

	items, err := store.ListItems(r.Context(), h.DB, query, status)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// ListAvailable handles GET /api/items/available. Only items with remaining
// stock show up, which is what the request form needs.
func (h *ItemsHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListAvailableItems(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var createdBy *int64
	if claims := GetClaims(r.Context()); claims != nil {
		createdBy = &claims.UserID
	}

	item, err := store.CreateItem(r.Context(), h.DB, store.ItemParams{
		Name:           req.Name,
		SerialNumber:   req.SerialNumber,
		Category:       req.Category,
		Condition:      req.Condition,
		Status:         req.Status,
		ExpirationDate: req.ExpirationDate,
		QuantityTotal:  req.QuantityTotal,
		CreatedBy:      createdBy,
	})
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}. Quantities are deliberately absent;
// stock only moves through issue, return and adjustment endpoints.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	existing, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if existing == nil || existing.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	// Omitted fields keep their current values.
	if req.Condition == "" {
		req.Condition = existing.Condition
	}
	if req.Status == "" {
		req.Status = existing.Status
	}
	if req.ExpirationDate == nil {
		req.ExpirationDate = existing.ExpirationDate
	}
	if !model.ValidCondition(req.Condition) {
		jsonError(w, http.StatusBadRequest, "invalid condition")
		return
	}
	if !model.ValidItemStatus(req.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if err := store.UpdateItem(r.Context(), h.DB, id, req.Name, req.SerialNumber,
		req.Category, req.Condition, req.Status, req.ExpirationDate); err != nil {
		storeError(w, err, "failed to update item")
		return
	}

	item, _ := store.GetItem(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, id); err != nil {
		storeError(w, err, "failed to delete item")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// Import handles POST /api/items/import. Takes a JSON array of items and
// loads them row by row; bad rows are skipped and reported, good rows land.
func (h *ItemsHandler) Import(w http.ResponseWriter, r *http.Request) {
	var reqs []itemRequest
	if err := decodeJSON(r, &reqs); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(reqs) == 0 {
		jsonError(w, http.StatusBadRequest, "no items to import")
		return
	}

	var createdBy *int64
	if claims := GetClaims(r.Context()); claims != nil {
		createdBy = &claims.UserID
	}

	params := make([]store.ItemParams, 0, len(reqs))
	for _, req := range reqs {
		params = append(params, store.ItemParams{
			Name:           req.Name,
			SerialNumber:   req.SerialNumber,
			Category:       req.Category,
			Condition:      req.Condition,
			Status:         req.Status,
			ExpirationDate: req.ExpirationDate,
			QuantityTotal:  req.QuantityTotal,
		})
	}

	result := store.ImportItems(r.Context(), h.DB, params, createdBy)
	jsonResponse(w, http.StatusOK, result)
}

// UploadImage handles PUT /api/items/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	// Limit to 5 MB.
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20)

	if err := r.ParseMultipartForm(5 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(file); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to read image")
		return
	}

	processed, err := imaging.Process(&buf)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, id, processed.Data, processed.MIME); err != nil {
		storeError(w, err, "failed to save image")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// GetHistory handles GET /api/items/{id}/history. Returns the item's slice
// of the stock journal, most recent first.
func (h *ItemsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	history, err := store.ListTransactions(r.Context(), h.DB, store.TransactionFilter{ItemID: id})
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get item history")
		return
	}
	if history == nil {
		history = []model.StockTransaction{}
	}
	jsonResponse(w, http.StatusOK, history)
}
