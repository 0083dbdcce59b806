package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fire results.
const (
	resultDelivered = "delivered"
	resultFailed    = "failed"
	resultRetry     = "retry"
	resultGone      = "gone"
	resultError     = "error"
)

// Delete reasons.
const (
	reasonCompleted = "completed"
	reasonGone      = "channel_gone"
	reasonExpired   = "expired"
)

type Metrics struct {
	ticks        prometheus.Counter
	tickDuration prometheus.Histogram
	fires        *prometheus.CounterVec
	deleted      *prometheus.CounterVec
	skipped      prometheus.Counter
}

// NewMetrics creates the scheduler collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "remindbot_ticks_total",
			Help: "Completed scheduler ticks.",
		}),
		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "remindbot_tick_duration_seconds",
			Help:    "Wall time of one scheduler tick.",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
		}),
		fires: f.NewCounterVec(prometheus.CounterOpts{
			Name: "remindbot_fires_total",
			Help: "Due reminders processed, by result.",
		}, []string{"result"}),
		deleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "remindbot_reminders_deleted_total",
			Help: "Reminders deleted by the scheduler, by reason.",
		}, []string{"reason"}),
		skipped: f.NewCounter(prometheus.CounterOpts{
			Name: "remindbot_fires_skipped_total",
			Help: "Firing boundaries collapsed by downtime catch-up.",
		}),
	}
}
