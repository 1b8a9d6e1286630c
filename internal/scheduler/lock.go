package scheduler

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Lock: лидерство между репликами claimflow-pipeline.
type Lock interface {
	// TryAcquire не ждёт: acquired=false, если лидер уже есть.
	// release вызывается только при acquired=true.
	TryAcquire(ctx context.Context) (release func(), acquired bool, err error)
}

// AdvisoryLock: сессионный pg_advisory_lock на выделенном соединении
// пула. Соединение держится до release, иначе разблокировка может
// уйти в другую сессию.
type AdvisoryLock struct {
	pool *pgxpool.Pool
	key  int64
}

// NewAdvisoryLock создаёт блокировку с ключом key.
func NewAdvisoryLock(pool *pgxpool.Pool, key int64) *AdvisoryLock {
	return &AdvisoryLock{pool: pool, key: key}
}

func (l *AdvisoryLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire conn: %w", err)
	}

	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", l.key).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock %d: %w", l.key, err)
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}

	release := func() {
		_, _ = conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", l.key)
		conn.Release()
	}
	return release, true, nil
}
