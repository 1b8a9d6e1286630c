package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/Claimflow/internal/domain"
	"github.com/shaiso/Claimflow/internal/statelog"
)

// StateReader: запросы к журналу состояний. Реализация: statelog.Engine.
type StateReader interface {
	GetStateCounts(ctx context.Context) ([]domain.StateCount, error)
	GetStateLogsStuckInState(ctx context.Context, class domain.AssociatedType, endState domain.State, daysStuck int, now time.Time) ([]domain.StateLog, error)
	GetLatestStateLogInFlow(ctx context.Context, entity statelog.Entity, flow domain.Flow) (*domain.StateLog, error)
	GetHistory(ctx context.Context, entity statelog.Entity, flow domain.Flow) ([]domain.StateLog, error)
	GetTimeInCurrentState(ctx context.Context, l *domain.StateLog, now time.Time) (time.Duration, error)
}

// ImportLogReader: чтение import_log. Реализация: repo.ImportLogRepo.
type ImportLogReader interface {
	GetByID(ctx context.Context, id int64) (*domain.ImportLog, error)
	ListRecent(ctx context.Context, source string, limit int) ([]domain.ImportLog, error)
}

// Handler: главный обработчик API с зависимостями.
type Handler struct {
	states     StateReader
	importLogs ImportLogReader
	logger     *slog.Logger
	now        func() time.Time
}

// Config: конфигурация для создания Handler.
type Config struct {
	States     StateReader
	ImportLogs ImportLogReader
	Logger     *slog.Logger

	// Now: часы для расчёта времени в state. По умолчанию time.Now.
	Now func() time.Time
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		states:     cfg.States,
		importLogs: cfg.ImportLogs,
		logger:     logger,
		now:        now,
	}
}
