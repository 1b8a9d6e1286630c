package statelog

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Claimflow/internal/repo"
)

// DB: *pgxpool.Pool или pgx.Tx.
//
// Begin нужен для атомарной записи state_log + latest_state_log:
// у pool он открывает транзакцию, у pgx.Tx создаёт savepoint.
type DB interface {
	repo.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Engine: чтение и запись state_log и latest_state_log.
//
// Engine неизменяем: WithTx и WithImportLog возвращают копию,
// поэтому один экземпляр можно разделять между шагами.
type Engine struct {
	db          DB
	logger      *slog.Logger
	now         func() time.Time
	importLogID *int64
}

// Option настраивает Engine.
type Option func(*Engine)

// WithLogger задаёт логгер движка.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock задаёт источник текущего времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New создаёт Engine поверх пула или транзакции.
func New(db DB, opts ...Option) *Engine {
	e := &Engine{
		db:     db,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithTx возвращает копию Engine, выполняющую запросы в tx.
func (e *Engine) WithTx(tx DB) *Engine {
	c := *e
	c.db = tx
	return &c
}

// WithImportLog возвращает копию Engine, проставляющую import_log_id
// во все новые записи state_log.
func (e *Engine) WithImportLog(id int64) *Engine {
	c := *e
	c.importLogID = &id
	return &c
}

// DB возвращает текущий пул или транзакцию.
func (e *Engine) DB() DB {
	return e.db
}

// ImportLogID возвращает привязанный import_log_id (nil, если не задан).
func (e *Engine) ImportLogID() *int64 {
	return e.importLogID
}

// Now возвращает текущее время по часам движка.
func (e *Engine) Now() time.Time {
	return e.now()
}
