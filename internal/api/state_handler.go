package api

import (
	"net/http"
	"strconv"

	"github.com/shaiso/Claimflow/internal/domain"
)

// StateCounts возвращает число сущностей в каждом state каталога.
// GET /api/v1/states/counts
func (h *Handler) StateCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.states.GetStateCounts(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]StateCountResponse, len(counts))
	for i, c := range counts {
		result[i] = StateCountFromDomain(c)
	}

	List(w, result, len(result))
}

// StuckInState возвращает сущности, стоящие в state дольше days суток.
// GET /api/v1/states/{id}/stuck?class=payment&days=2
func (h *Handler) StuckInState(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid state id")
		return
	}
	state, ok := domain.StateByID(id)
	if !ok {
		NotFound(w, "state not found")
		return
	}

	class, ok := domain.ParseAssociatedType(r.URL.Query().Get("class"))
	if !ok {
		BadRequest(w, "class must be one of claim, employee, payment, reference_file, none")
		return
	}

	days := 1
	if v := r.URL.Query().Get("days"); v != "" {
		days, err = strconv.Atoi(v)
		if err != nil || days < 0 {
			BadRequest(w, "days must be a non-negative integer")
			return
		}
	}

	now := h.now()
	stuck, err := h.states.GetStateLogsStuckInState(r.Context(), class, state, days, now)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]StateLogResponse, len(stuck))
	for i := range stuck {
		elapsed, err := h.states.GetTimeInCurrentState(r.Context(), &stuck[i], now)
		if HandleRepoError(w, h.logger, err, "") {
			return
		}
		result[i] = StateLogFromDomain(stuck[i]).withTimeInState(elapsed)
	}

	List(w, result, len(result))
}
