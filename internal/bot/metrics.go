package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	UpdatesProcessed     *prometheus.CounterVec
	StatusChanges        *prometheus.CounterVec
	NotificationsSent    prometheus.Counter
	ErrorsTotal          prometheus.Counter
	UpdateProcessingTime prometheus.Histogram
}

// NewMetrics registers the bot metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UpdatesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quicktable_telegram_updates_total",
			Help: "Telegram updates processed, by kind",
		}, []string{"kind"}),

		StatusChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quicktable_telegram_status_changes_total",
			Help: "Reservation status changes made from Telegram buttons",
		}, []string{"status"}),

		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "quicktable_telegram_notifications_sent_total",
			Help: "Staff notifications delivered",
		}),

		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "quicktable_telegram_errors_total",
			Help: "Panics recovered while handling updates",
		}),

		UpdateProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "quicktable_telegram_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
