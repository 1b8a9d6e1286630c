package steps

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shaiso/Claimflow/internal/config"
	"github.com/shaiso/Claimflow/internal/domain"
)

// Registry: шаги конвейера по имени. Потокобезопасен.
type Registry struct {
	mu    sync.RWMutex
	steps map[string]Step
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		steps: make(map[string]Step),
	}
}

// PipelineDeps: внешние зависимости шагов конвейера.
type PipelineDeps struct {
	// Caps: лимиты пособия. nil: StaticCap из конфига.
	Caps CapProvider

	// Alerts может быть nil.
	Alerts AlertPublisher
}

// PipelineRegistry создаёт реестр со всеми шагами конвейера.
func PipelineRegistry(cfg config.PipelineConfig, deps PipelineDeps) (*Registry, error) {
	caps := deps.Caps
	if caps == nil {
		limit, err := cfg.MaxWeeklyBenefitCapAmount()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		caps = StaticCap{Amount: limit}
	}

	backfill, err := NewClaimStateBackfillStep(cfg.BackfillBatchSize)
	if err != nil {
		return nil, err
	}

	checks, err := StuckChecksFromConfig(cfg.StuckChecks)
	if err != nil {
		return nil, err
	}

	r := NewRegistry()
	r.Register(backfill)
	r.Register(NewMaxWeeklyBenefitStep(caps))
	r.Register(NewStuckStateCheckStep(checks, deps.Alerts))
	return r, nil
}

// StuckChecksFromConfig переводит проверки из конфига в StuckCheck.
func StuckChecksFromConfig(in []config.StuckCheck) ([]StuckCheck, error) {
	out := make([]StuckCheck, 0, len(in))
	for i, c := range in {
		class, ok := domain.ParseAssociatedType(c.Class)
		if !ok {
			return nil, fmt.Errorf("%w: stuck_checks[%d]: unknown class %q", ErrInvalidConfig, i, c.Class)
		}
		state, ok := domain.StateByID(c.StateID)
		if !ok {
			return nil, fmt.Errorf("%w: stuck_checks[%d]: unknown state %d", ErrInvalidConfig, i, c.StateID)
		}
		out = append(out, StuckCheck{Class: class, State: state, Days: c.Days})
	}
	return out, nil
}

// Register регистрирует шаг. Шаг с тем же именем перезаписывается.
func (r *Registry) Register(step Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[step.Name()] = step
}

// Get возвращает шаг по имени или ErrStepNotFound.
func (r *Registry) Get(name string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	step, exists := r.steps[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, name)
	}
	return step, nil
}

// Resolve возвращает шаги в порядке имён. Неизвестные имена
// перечисляются в ошибке все сразу.
func (r *Registry) Resolve(names []string) ([]Step, error) {
	var missing []string
	for _, name := range names {
		if !r.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, strings.Join(missing, ", "))
	}

	out := make([]Step, 0, len(names))
	for _, name := range names {
		step, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, step)
	}
	return out, nil
}

// Has проверяет, зарегистрирован ли шаг.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.steps[name]
	return exists
}

// Names возвращает отсортированные имена шагов.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.steps))
	for n := range r.steps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
