package api

import (
	"net/http"
	"strconv"
)

const (
	defaultImportLogLimit = 20
	maxImportLogLimit     = 200
)

// ListImportLogs возвращает последние запуски шагов.
// GET /api/v1/import-logs?source=MaxWeeklyBenefitStep&limit=20
func (h *Handler) ListImportLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultImportLogLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxImportLogLimit)
	}

	logs, err := h.importLogs.ListRecent(r.Context(), r.URL.Query().Get("source"), limit)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ImportLogResponse, len(logs))
	for i, l := range logs {
		result[i] = ImportLogFromDomain(l)
	}

	List(w, result, len(result))
}

// GetImportLog возвращает запуск по ID.
// GET /api/v1/import-logs/{id}
func (h *Handler) GetImportLog(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		BadRequest(w, "invalid import log id")
		return
	}

	l, err := h.importLogs.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "import log not found") {
		return
	}

	Success(w, ImportLogFromDomain(*l))
}
