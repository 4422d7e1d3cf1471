package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdict_evaluations_total",
		Help: "Total number of evaluation requests, labelled by overall result.",
	}, []string{"result"})

	RuleVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdict_rule_verdicts_total",
		Help: "Total number of per-rule verdicts, labelled by rule form and result.",
	}, []string{"form", "result"})

	ComparisonErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdict_comparison_errors_total",
		Help: "Comparisons that could not be performed, labelled by kind.",
	}, []string{"kind"})

	SyntaxErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verdict_expression_syntax_errors_total",
		Help: "Total number of expressions rejected by the parser.",
	})

	EvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "verdict_evaluation_duration_ms",
		Help:    "Evaluation latency per request in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
	})

	RulesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "verdict_rules_loaded",
		Help: "Number of rules currently held by the store.",
	})

	BatchRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verdict_batch_items_rejected_total",
		Help: "Batch items rejected because the evaluation queue was full.",
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "verdict_queue_utilization_ratio",
		Help: "Current batch evaluation queue utilization (0-1).",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verdict_http_requests_total",
		Help: "HTTP requests served, labelled by route pattern, method and status code.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "verdict_http_request_duration_ms",
		Help:    "HTTP request latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"route"})
)
