package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Claimflow/internal/domain"
)

// Catalog DTOs

// StateResponse: state каталога.
type StateResponse struct {
	ID          int    `json:"id"`
	FlowID      int    `json:"flow_id"`
	Description string `json:"description"`
}

// FlowResponse: flow каталога со своими states.
type FlowResponse struct {
	ID          int             `json:"id"`
	Description string          `json:"description"`
	States      []StateResponse `json:"states,omitempty"`
}

// StateFromDomain конвертирует domain.State в StateResponse.
func StateFromDomain(s domain.State) StateResponse {
	return StateResponse{
		ID:          s.ID,
		FlowID:      s.FlowID,
		Description: s.Description,
	}
}

// FlowFromDomain конвертирует domain.Flow в FlowResponse вместе с его states.
func FlowFromDomain(f domain.Flow) FlowResponse {
	states := domain.StatesInFlow(f.ID)
	resp := FlowResponse{
		ID:          f.ID,
		Description: f.Description,
		States:      make([]StateResponse, len(states)),
	}
	for i, s := range states {
		resp.States[i] = StateFromDomain(s)
	}
	return resp
}

// State DTOs

// StateCountResponse: число сущностей, стоящих в state.
type StateCountResponse struct {
	StateID     int    `json:"state_id"`
	FlowID      int    `json:"flow_id"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

// StateCountFromDomain конвертирует domain.StateCount в StateCountResponse.
func StateCountFromDomain(c domain.StateCount) StateCountResponse {
	return StateCountResponse{
		StateID:     c.State.ID,
		FlowID:      c.State.FlowID,
		Description: c.State.Description,
		Count:       c.Count,
	}
}

// StateLogResponse: запись state_log.
type StateLogResponse struct {
	ID             uuid.UUID      `json:"id"`
	EndStateID     int            `json:"end_state_id"`
	EndState       string         `json:"end_state,omitempty"`
	Outcome        domain.Outcome `json:"outcome"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	EndedAt        time.Time      `json:"ended_at"`
	AssociatedType string         `json:"associated_type"`
	EntityID       *uuid.UUID     `json:"entity_id,omitempty"`
	PrevStateLogID *uuid.UUID     `json:"prev_state_log_id,omitempty"`
	ImportLogID    *int64         `json:"import_log_id,omitempty"`

	// TimeInState: длительность в формате time.Duration.String().
	TimeInState string `json:"time_in_state,omitempty"`
}

// StateLogFromDomain конвертирует domain.StateLog в StateLogResponse.
func StateLogFromDomain(l domain.StateLog) StateLogResponse {
	resp := StateLogResponse{
		ID:             l.ID,
		EndStateID:     l.EndStateID,
		Outcome:        l.Outcome,
		StartedAt:      l.StartedAt,
		EndedAt:        l.EndedAt,
		AssociatedType: l.AssociatedType.String(),
		EntityID:       l.EntityID(),
		PrevStateLogID: l.PrevStateLogID,
		ImportLogID:    l.ImportLogID,
	}
	if s, ok := l.EndState(); ok {
		resp.EndState = s.Description
	}
	return resp
}

// withTimeInState добавляет время пребывания в state.
func (r StateLogResponse) withTimeInState(d time.Duration) StateLogResponse {
	r.TimeInState = d.Round(time.Second).String()
	return r
}

// ImportLog DTOs

// ImportLogResponse: запуск шага или загрузки.
type ImportLogResponse struct {
	ID          int64          `json:"id"`
	Source      string         `json:"source"`
	ImportType  string         `json:"import_type"`
	Status      string         `json:"status"`
	Report      map[string]any `json:"report,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	DurationMS  int64          `json:"duration_ms,omitempty"`
}

// ImportLogFromDomain конвертирует domain.ImportLog в ImportLogResponse.
func ImportLogFromDomain(l domain.ImportLog) ImportLogResponse {
	return ImportLogResponse{
		ID:          l.ID,
		Source:      l.Source,
		ImportType:  l.ImportType,
		Status:      l.Status.String(),
		Report:      l.Report,
		StartedAt:   l.StartedAt,
		CompletedAt: l.CompletedAt,
		DurationMS:  l.Duration().Milliseconds(),
	}
}
