package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/shaiso/buildflow/internal/domain"
)

// PushJob — имя job в Pushgateway.
const PushJob = "buildflow"

// Metrics — Prometheus метрики сборки.
//
// Реализует orchestrator.Observer. У каждого экземпляра свой registry,
// поэтому несколько Metrics не конфликтуют (удобно в тестах).
//
// Процесс выполняет один run, поэтому target не входит в метки:
// он передаётся в Pushgateway как grouping key (см. Push).
type Metrics struct {
	registry *prometheus.Registry

	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
	tasksTotal     *prometheus.CounterVec
	taskDuration   *prometheus.HistogramVec
	eventsReceived *prometheus.CounterVec
}

// NewMetrics создаёт и регистрирует метрики.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "buildflow_runs_total",
			Help: "Total pipeline runs by final status",
		}, []string{"status"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "buildflow_run_duration_seconds",
			Help:    "Pipeline run duration",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		tasksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "buildflow_tasks_total",
			Help: "Total processed tasks by name and status",
		}, []string{"task", "status"}),
		taskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "buildflow_task_duration_seconds",
			Help:    "Task action duration",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		}, []string{"task"}),
		eventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "buildflow_events_received_total",
			Help: "Build events consumed by watch",
		}, []string{"type", "status"}),
	}
}

// Registry возвращает registry метрик.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RunStarted реализует orchestrator.Observer.
func (m *Metrics) RunStarted(ctx context.Context, run *domain.Run) {}

// TaskFinished реализует orchestrator.Observer.
func (m *Metrics) TaskFinished(ctx context.Context, run *domain.Run, task *domain.TaskRecord) {
	m.tasksTotal.WithLabelValues(task.Task, string(task.Status)).Inc()
	if task.Status != domain.TaskStatusSkipped {
		m.taskDuration.WithLabelValues(task.Task).Observe(task.Duration().Seconds())
	}
}

// RunFinished реализует orchestrator.Observer.
func (m *Metrics) RunFinished(ctx context.Context, run *domain.Run) {
	m.runsTotal.WithLabelValues(string(run.Status)).Inc()
	m.runDuration.Observe(run.Duration().Seconds())
}

// ObserveEvent учитывает полученное событие сборки.
func (m *Metrics) ObserveEvent(eventType, status string) {
	m.eventsReceived.WithLabelValues(eventType, status).Inc()
}

// Handler возвращает HTTP handler для /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// PushURL возвращает адрес Pushgateway из PUSHGATEWAY_URL.
// Пустая строка — push отключён.
func PushURL() string {
	return os.Getenv("PUSHGATEWAY_URL")
}

// Push отправляет метрики в Pushgateway.
//
// Процесс сборки живёт недолго, поэтому метрики не скрейпятся,
// а отправляются один раз по завершении run.
func (m *Metrics) Push(ctx context.Context, url string, run *domain.Run) error {
	pusher := push.New(url, PushJob).Gatherer(m.registry)
	if run != nil {
		pusher = pusher.Grouping("target", run.Target)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
