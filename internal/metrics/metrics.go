package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sauna_bot"

var (
	once sync.Once

	bookingSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_submitted_total",
			Help:      "Count of booking submissions by result.",
		},
		[]string{"result"},
	)

	bookingCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_cancelled_total",
			Help:      "Count of bookings cancelled by users.",
		},
	)

	slotFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_fetch_total",
			Help:      "Count of availability fetches by outcome.",
		},
		[]string{"outcome"},
	)

	updatesHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Count of Telegram updates by kind.",
		},
		[]string{"kind"},
	)

	updateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Time spent handling one Telegram update.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	throttled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throttled_total",
			Help:      "Count of updates dropped by the per-user rate limit.",
		},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of open booking sessions.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingSubmitted, bookingCancelled, slotFetches,
			updatesHandled, updateDuration, throttled, activeSessions)
	})
}

func IncBookingSubmitted(result string) {
	bookingSubmitted.WithLabelValues(result).Inc()
}

func IncBookingCancelled() {
	bookingCancelled.Inc()
}

func IncSlotFetch(outcome string) {
	slotFetches.WithLabelValues(outcome).Inc()
}

func ObserveUpdate(kind string, seconds float64) {
	updatesHandled.WithLabelValues(kind).Inc()
	updateDuration.WithLabelValues(kind).Observe(seconds)
}

func IncThrottled() {
	throttled.Inc()
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
