package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/erazemk/zaloga/internal/store"
)

// ReportsHandler serves aggregate inventory reports.
type ReportsHandler struct {
	DB *sql.DB
}

// Summary handles GET /api/reports/summary. The ?top= parameter controls
// how many most-requested items are included (default 5).
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	top := 5
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, http.StatusBadRequest, "invalid top parameter")
			return
		}
		top = n
	}

	report, err := store.GetSummaryReport(r.Context(), h.DB, top)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	jsonResponse(w, http.StatusOK, report)
}
