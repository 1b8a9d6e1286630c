package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики процесса. Регистрируются в prometheus.DefaultRegisterer
// и отдаются через promhttp.Handler() на /metrics.
var (
	stepRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimflow_step_runs_total",
		Help: "Total step runs by result",
	}, []string{"step", "result"})

	stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "claimflow_step_duration_seconds",
		Help:    "Step run duration",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"step"})

	stepMetricTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimflow_step_metric_total",
		Help: "Named counters reported by steps via Increment",
	}, []string{"step", "metric"})

	stateTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimflow_state_transitions_total",
		Help: "State log rows written, by flow and end state",
	}, []string{"flow_id", "end_state_id"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimflow_http_requests_total",
		Help: "Total HTTP requests to the status API",
	}, []string{"method", "route", "status"})
)

// ObserveStepRun фиксирует завершение шага.
func ObserveStepRun(step string, seconds float64, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	stepRunsTotal.WithLabelValues(step, result).Inc()
	stepDuration.WithLabelValues(step).Observe(seconds)
}

// AddStepMetric добавляет значение именованного счётчика шага.
func AddStepMetric(step, metric string, n int) {
	if n <= 0 {
		return
	}
	stepMetricTotal.WithLabelValues(step, metric).Add(float64(n))
}

// IncStateTransition учитывает одну запись state_log.
func IncStateTransition(flowID, endStateID int) {
	stateTransitionsTotal.WithLabelValues(strconv.Itoa(flowID), strconv.Itoa(endStateID)).Inc()
}

// IncHTTPRequest учитывает один HTTP-запрос. route: шаблон маршрута
// ServeMux, а не путь, иначе ID сущностей попадут в метки.
func IncHTTPRequest(method, route string, status int) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
