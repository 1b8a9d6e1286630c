package steps

import (
	"context"
	"log/slog"
	"maps"
	"strconv"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Claimflow/internal/domain"
	"github.com/shaiso/Claimflow/internal/statelog"
	"github.com/shaiso/Claimflow/internal/telemetry"
)

// Unit: открытая транзакция шага и движок, привязанный к ней.
type Unit struct {
	Tx     pgx.Tx
	Engine *statelog.Engine
}

// Run: контекст одного запуска шага.
type Run struct {
	step        string
	importLogID int64
	db          statelog.DB
	engine      *statelog.Engine
	logger      *slog.Logger

	mu      sync.Mutex
	metrics map[string]int
	batches map[int64]map[string]int
}

func newRun(step string, importLogID int64, db statelog.DB, engine *statelog.Engine, logger *slog.Logger) *Run {
	return &Run{
		step:        step,
		importLogID: importLogID,
		db:          db,
		engine:      engine,
		logger:      logger,
		metrics:     make(map[string]int),
		batches:     make(map[int64]map[string]int),
	}
}

// Increment увеличивает счётчик name на сумму n (на 1 без n).
func (r *Run) Increment(name string, n ...int) {
	delta := sum(n)

	r.mu.Lock()
	r.metrics[name] += delta
	r.mu.Unlock()

	telemetry.AddStepMetric(r.step, name, delta)
}

// IncrementBatch увеличивает счётчик name в разрезе пакета загрузки
// batch (import_log_id исходных данных) и в общем итоге.
func (r *Run) IncrementBatch(batch int64, name string, n ...int) {
	delta := sum(n)

	r.mu.Lock()
	m, ok := r.batches[batch]
	if !ok {
		m = make(map[string]int)
		r.batches[batch] = m
	}
	m[name] += delta
	r.mu.Unlock()

	r.Increment(name, delta)
}

// Metrics возвращает копию счётчиков.
func (r *Run) Metrics() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.metrics)
}

// BatchMetrics возвращает копию счётчиков по пакетам.
func (r *Run) BatchMetrics() map[int64]map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[int64]map[string]int, len(r.batches))
	for id, m := range r.batches {
		out[id] = maps.Clone(m)
	}
	return out
}

// report собирает import_log.report.
func (r *Run) report() map[string]any {
	report := map[string]any{"metrics": r.Metrics()}

	batches := r.BatchMetrics()
	if len(batches) > 0 {
		byID := make(map[string]map[string]int, len(batches))
		for id, m := range batches {
			byID[strconv.FormatInt(id, 10)] = m
		}
		report["batches"] = byID
	}
	return report
}

// Engine возвращает движок вне транзакции: записи через него
// коммитятся сразу.
func (r *Run) Engine() *statelog.Engine {
	return r.engine
}

// DB возвращает пул для чтения вне транзакций.
func (r *Run) DB() statelog.DB {
	return r.db
}

// ImportLogID возвращает ID import_log этого запуска.
func (r *Run) ImportLogID() int64 {
	return r.importLogID
}

// Logger возвращает логгер с полями step и import_log_id.
func (r *Run) Logger() *slog.Logger {
	return r.logger
}

// InTx: граница коммита. fn выполняется в новой транзакции; nil
// фиксирует её, ошибка откатывает и возвращается без изменений.
func (r *Run) InTx(ctx context.Context, fn func(ctx context.Context, u Unit) error) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, Unit{Tx: tx, Engine: r.engine.WithTx(tx)})
	})
}

// ProcessItem обрабатывает одну сущность в своей транзакции. При
// ошибке транзакция откатывается, а переход обратно в prior пишется
// уже вне неё, поэтому сбой остаётся в истории.
func (r *Run) ProcessItem(
	ctx context.Context,
	prior domain.State,
	entity statelog.Entity,
	fn func(ctx context.Context, u Unit) error,
) error {
	return r.engine.ProcessState(ctx, prior, entity, func(ctx context.Context) error {
		return r.InTx(ctx, fn)
	})
}

func sum(n []int) int {
	if len(n) == 0 {
		return 1
	}
	total := 0
	for _, v := range n {
		total += v
	}
	return total
}
