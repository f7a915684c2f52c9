package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusevents_dispatch_cycles_total",
		Help: "Total number of completed reminder dispatch cycles.",
	})

	DispatchCyclesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusevents_dispatch_cycles_skipped_total",
		Help: "Total number of wake-ups skipped because a cycle was still running.",
	})

	RemindersSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusevents_reminders_sent_total",
		Help: "Total number of reminders delivered, labelled by threshold kind.",
	}, []string{"kind"})

	DeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusevents_delivery_failures_total",
		Help: "Total number of failed delivery attempts to the notification sink.",
	})

	ReceiptWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusevents_receipt_write_failures_total",
		Help: "Total number of receipt writes that exhausted all retries.",
	})

	EventsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusevents_events_created_total",
		Help: "Total number of events created.",
	})

	EventsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusevents_events_cancelled_total",
		Help: "Total number of events cancelled.",
	})

	ActiveEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "campusevents_active_events",
		Help: "Number of non-cancelled events, refreshed every dispatch cycle.",
	})

	EventsByDepartment = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "campusevents_active_events_by_department",
		Help: "Number of non-cancelled events per creator department, refreshed every dispatch cycle.",
	}, []string{"department"})

	DispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "campusevents_dispatch_cycle_duration_ms",
		Help:    "Dispatch cycle duration in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
)
