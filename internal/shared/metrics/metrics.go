package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by route and status",
}, []string{"route", "status"})

var generationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "test_generations_total",
	Help: "Test generation requests by outcome",
}, []string{"outcome"})

var generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "test_generation_duration_seconds",
	Help:    "End-to-end duration of a test generation request.",
	Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 60, 120},
}, []string{"outcome"})

var llmAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "llm_attempts_total",
	Help: "Completion attempts by provider and result reason",
}, []string{"provider", "result"})

var llmLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "llm_attempt_latency_seconds",
	Help:    "Latency of single completion attempts.",
	Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 45, 90},
}, []string{"provider"})

var extractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "document_extractions_total",
	Help: "Per-document text resolution by source or failure",
}, []string{"result"})

var generationsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "test_generations_in_flight",
	Help: "Generation requests currently holding a slot",
})

// ObserveGeneration records the outcome and duration of one generation request.
func ObserveGeneration(outcome string, elapsed time.Duration) {
	generationsTotal.WithLabelValues(outcome).Inc()
	generationDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveLLMAttempt records a single completion attempt.
func ObserveLLMAttempt(provider, result string, elapsed time.Duration) {
	llmAttemptsTotal.WithLabelValues(provider, result).Inc()
	llmLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// IncExtraction counts how a document's text was obtained (cache, extracted) or why it was skipped.
func IncExtraction(result string) {
	extractionsTotal.WithLabelValues(result).Inc()
}

// IncInFlight marks a generation slot as taken.
func IncInFlight() {
	generationsInFlight.Inc()
}

// DecInFlight releases a generation slot.
func DecInFlight() {
	generationsInFlight.Dec()
}

// Middleware counts requests by matched route and status.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
