package api

import (
	"net/http"
	"strconv"

	"github.com/shaiso/Claimflow/internal/domain"
)

// ListFlows возвращает каталог flows со states.
// GET /api/v1/flows
func (h *Handler) ListFlows(w http.ResponseWriter, r *http.Request) {
	flows := domain.AllFlows()

	result := make([]FlowResponse, len(flows))
	for i, f := range flows {
		result[i] = FlowFromDomain(f)
	}

	List(w, result, len(result))
}

// GetFlow возвращает flow по ID.
// GET /api/v1/flows/{id}
func (h *Handler) GetFlow(w http.ResponseWriter, r *http.Request) {
	flow, ok := flowFromPath(w, r, "id")
	if !ok {
		return
	}

	Success(w, FlowFromDomain(flow))
}

// flowFromPath разбирает ID flow из пути и ищет его в каталоге.
// При ошибке сам отправляет ответ.
func flowFromPath(w http.ResponseWriter, r *http.Request, name string) (domain.Flow, bool) {
	id, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		BadRequest(w, "invalid flow id")
		return domain.Flow{}, false
	}

	flow, ok := domain.FlowByID(id)
	if !ok {
		NotFound(w, "flow not found")
		return domain.Flow{}, false
	}
	return flow, true
}
