package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Total number of bookings committed",
	})

	BookingsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_rejected_total",
		Help: "Total number of rejected booking attempts",
	}, []string{"reason"})

	BookingsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_cancelled_total",
		Help: "Total number of cancelled bookings",
	})

	BookingsPurgedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_purged_total",
		Help: "Total number of expired pending bookings purged",
	})

	AvailabilityRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "availability_requests_total",
		Help: "Total number of availability lookups",
	})

	AvailabilityCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "availability_cache_hits_total",
		Help: "Total number of availability lookups served from cache",
	})

	PaymentRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_retries_total",
		Help: "Total number of charge retries after transient gateway errors",
	})

	RefundsIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refunds_issued_total",
		Help: "Total number of compensating refunds issued",
	})

	RefundsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refunds_failed_total",
		Help: "Total number of compensating refunds that failed",
	})

	RemindersPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reminders_published_total",
		Help: "Total number of reminder events published",
	})

	NotificationsDispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_dispatched_total",
		Help: "Total number of notifications dispatched by type",
	}, []string{"type"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
