package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Claimflow/internal/domain"
	"github.com/shaiso/Claimflow/internal/statelog"
)

// LatestInFlow возвращает текущую запись сущности во flow.
// GET /api/v1/entities/{type}/{id}/flows/{flow}/latest
func (h *Handler) LatestInFlow(w http.ResponseWriter, r *http.Request) {
	entity, flow, ok := entityFromPath(w, r)
	if !ok {
		return
	}

	latest, err := h.states.GetLatestStateLogInFlow(r.Context(), entity, flow)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}
	if latest == nil {
		NotFound(w, "entity has no state in flow")
		return
	}

	elapsed, err := h.states.GetTimeInCurrentState(r.Context(), latest, h.now())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	Success(w, StateLogFromDomain(*latest).withTimeInState(elapsed))
}

// History возвращает историю сущности во flow, от новых записей к старым.
// GET /api/v1/entities/{type}/{id}/flows/{flow}/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	entity, flow, ok := entityFromPath(w, r)
	if !ok {
		return
	}

	history, err := h.states.GetHistory(r.Context(), entity, flow)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]StateLogResponse, len(history))
	for i, l := range history {
		result[i] = StateLogFromDomain(l)
	}

	List(w, result, len(result))
}

func entityFromPath(w http.ResponseWriter, r *http.Request) (statelog.Entity, domain.Flow, bool) {
	class, ok := domain.ParseAssociatedType(r.PathValue("type"))
	if !ok || class == domain.AssociatedTypeNone {
		BadRequest(w, "invalid entity type")
		return nil, domain.Flow{}, false
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid entity id")
		return nil, domain.Flow{}, false
	}

	entity, err := statelog.NewEntity(class, id)
	if err != nil {
		BadRequest(w, err.Error())
		return nil, domain.Flow{}, false
	}

	flow, ok := flowFromPath(w, r, "flow")
	if !ok {
		return nil, domain.Flow{}, false
	}
	return entity, flow, true
}
