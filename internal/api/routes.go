package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Catalog
	mux.Handle("GET /api/v1/flows", chain(http.HandlerFunc(h.ListFlows)))
	mux.Handle("GET /api/v1/flows/{id}", chain(http.HandlerFunc(h.GetFlow)))

	// States
	mux.Handle("GET /api/v1/states/counts", chain(http.HandlerFunc(h.StateCounts)))
	mux.Handle("GET /api/v1/states/{id}/stuck", chain(http.HandlerFunc(h.StuckInState)))

	// Entities
	mux.Handle("GET /api/v1/entities/{type}/{id}/flows/{flow}/latest", chain(http.HandlerFunc(h.LatestInFlow)))
	mux.Handle("GET /api/v1/entities/{type}/{id}/flows/{flow}/history", chain(http.HandlerFunc(h.History)))

	// Import logs
	mux.Handle("GET /api/v1/import-logs", chain(http.HandlerFunc(h.ListImportLogs)))
	mux.Handle("GET /api/v1/import-logs/{id}", chain(http.HandlerFunc(h.GetImportLog)))
}
