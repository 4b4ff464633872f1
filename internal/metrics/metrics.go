package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quicktable"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code class.",
		},
		[]string{"endpoint", "code"},
	)

	grpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "gRPC requests by full method and status code.",
		},
		[]string{"method", "code"},
	)

	reservationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_created_total",
			Help:      "Reservations stored, by source (customer or staff).",
		},
		[]string{"source"},
	)

	statusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_status_changes_total",
			Help:      "Reservation status updates by target status.",
		},
		[]string{"status"},
	)

	forwardTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forward_tasks_total",
			Help:      "Forward task outcomes by task type.",
		},
		[]string{"task_type", "outcome"},
	)

	slotComputations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "slot_computation_seconds",
			Help:      "Time spent computing the slots of one day.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, grpcRequests, reservationsCreated, statusChanges, forwardTasks, slotComputations)
	})
}

// IncHTTP counts one request; code is the status class, e.g. "2xx".
func IncHTTP(endpoint, code string) {
	httpRequests.WithLabelValues(endpoint, code).Inc()
}

func IncGRPC(method, code string) {
	grpcRequests.WithLabelValues(method, code).Inc()
}

func IncReservationCreated(source string) {
	reservationsCreated.WithLabelValues(source).Inc()
}

func IncStatusChange(status string) {
	statusChanges.WithLabelValues(status).Inc()
}

// IncForwardTask records outcome ("completed", "retry" or "failed") for a task type.
func IncForwardTask(taskType, outcome string) {
	forwardTasks.WithLabelValues(taskType, outcome).Inc()
}

func ObserveSlotComputation(seconds float64) {
	slotComputations.Observe(seconds)
}
