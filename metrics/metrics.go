// Package metrics instruments the engine with Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Instance metrics
	InstanceState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wok_instance_state",
			Help: "Current instance state (enum value, see instance.State)",
		},
	)

	ModulesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wok_modules_total",
			Help: "Total number of modules by kind and state",
		},
		[]string{"kind", "state"},
	)

	TasksTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wok_tasks_total",
			Help: "Total number of tasks by state",
		},
		[]string{"state"},
	)

	// Scheduler loop metrics
	SchedulerIterations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wok_scheduler_iterations_total",
			Help: "Total number of scheduler loop iterations",
		},
	)

	TasksSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wok_tasks_submitted_total",
			Help: "Total number of tasks submitted to the job scheduler",
		},
	)

	TasksReaped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wok_tasks_reaped_total",
			Help: "Total number of tasks reaped, by outcome",
		},
		[]string{"outcome"},
	)

	PartitioningDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wok_partitioning_duration_seconds",
			Help:    "Time spent partitioning a leaf module into tasks",
			Buckets: prometheus.DefBuckets,
		},
	)

	TaskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wok_task_duration_seconds",
			Help:    "Task execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"module_id"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wok_api_requests_total",
			Help: "Total number of control-surface requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wok_api_request_duration_seconds",
			Help:    "Control-surface request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(InstanceState)
	prometheus.MustRegister(ModulesTotal)
	prometheus.MustRegister(TasksTotal)
	prometheus.MustRegister(SchedulerIterations)
	prometheus.MustRegister(TasksSubmitted)
	prometheus.MustRegister(TasksReaped)
	prometheus.MustRegister(PartitioningDuration)
	prometheus.MustRegister(TaskDuration)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation's duration and reports it to a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration reports the elapsed time to histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(t.Duration().Seconds())
}

// ObserveDurationVec reports the elapsed time to a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
