package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promoflow_events_enqueued_total",
		Help: "Total number of events placed on the processing queue.",
	})

	EventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promoflow_events_processed_total",
		Help: "Total number of events fully processed by the engine.",
	})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promoflow_events_dropped_total",
		Help: "Total number of events rejected due to a full queue.",
	})

	RulesMatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promoflow_rules_matched_total",
		Help: "Total number of rule matches, labelled by rule ID.",
	}, []string{"rule_id"})

	RuleEvalErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promoflow_rule_eval_errors_total",
		Help: "Total number of rules skipped due to evaluation errors, labelled by rule ID.",
	}, []string{"rule_id"})

	DeliveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promoflow_delivery_attempts_total",
		Help: "Total number of delivery attempts, labelled by channel and status.",
	}, []string{"channel", "status"})

	EventProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "promoflow_event_processing_duration_ms",
		Help:    "End-to-end event processing latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "promoflow_queue_utilization_ratio",
		Help: "Current event queue utilization (0–1).",
	})

	CouponsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "promoflow_coupons_loaded",
		Help: "Number of coupons in the active catalog.",
	})
)
