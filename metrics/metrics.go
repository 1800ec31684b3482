package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carrental_bookings_created_total",
		Help: "Total number of bookings successfully created.",
	})

	BookingsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carrental_bookings_cancelled_total",
		Help: "Total number of bookings cancelled.",
	})

	CarsReturnedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carrental_cars_returned_total",
		Help: "Total number of cars returned.",
	})

	FinesGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carrental_fines_generated_total",
		Help: "Total number of late-return fines generated.",
	})

	BookingConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carrental_booking_conflicts_total",
		Help: "Total number of booking attempts rejected because of overlapping dates.",
	})

	PaymentWebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carrental_payment_webhook_events_total",
		Help: "Total number of payment gateway webhook events received, by event type.",
	},
		[]string{"type"},
	)

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carrental_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)

	JobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carrental_job_runs_total",
		Help: "Total number of scheduled job runs, by job and outcome.",
	},
		[]string{"job", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "carrental_http_request_duration_seconds",
		Help:    "HTTP request latency by method, route and status code.",
		Buckets: prometheus.DefBuckets,
	},
		[]string{"method", "route", "status"},
	)
)
