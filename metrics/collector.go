// Package metrics exposes Prometheus collectors for the answer pipeline.
// All record methods are safe on a nil *Collector.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "policydesk"

// Collector holds the pipeline metrics
type Collector struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	answersTotal   *prometheus.CounterVec
	fallbacksTotal *prometheus.CounterVec

	callsTotal    *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	snapshotLoads *prometheus.CounterVec
	corpusSize    *prometheus.GaugeVec
}

// NewCollector registers the collectors on reg
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		answersTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "answers_total",
				Help:      "Answers produced, by orchestration mode",
			},
			[]string{"mode"},
		),
		fallbacksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallbacks_total",
				Help:      "Fallback decisions, by trigger",
			},
			[]string{"reason"},
		),
		callsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collaborator_calls_total",
				Help:      "External collaborator calls, by service and outcome",
			},
			[]string{"service", "outcome"},
		),
		callDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "collaborator_call_duration_seconds",
				Help:      "External collaborator call latency in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"service"},
		),
		snapshotLoads: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_loads_total",
				Help:      "Corpus snapshot builds, by result",
			},
			[]string{"result"},
		),
		corpusSize: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "corpus_entries",
				Help:      "Entries in the current corpus snapshot",
			},
			[]string{"kind"},
		),
	}
}

// RecordAnswer counts one answer produced in mode.
func (c *Collector) RecordAnswer(mode string) {
	if c == nil {
		return
	}
	c.answersTotal.WithLabelValues(mode).Inc()
}

// RecordFallback counts one fallback decision.
func (c *Collector) RecordFallback(reason string) {
	if c == nil {
		return
	}
	c.fallbacksTotal.WithLabelValues(reason).Inc()
}

// RecordCall records one collaborator call. outcome is "ok" or a failure kind.
func (c *Collector) RecordCall(service, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.callsTotal.WithLabelValues(service, outcome).Inc()
	c.callDuration.WithLabelValues(service).Observe(elapsed.Seconds())
}

// RecordSnapshot records one snapshot build and the resulting sizes.
func (c *Collector) RecordSnapshot(err error, regulations, faqs int) {
	if c == nil {
		return
	}
	if err != nil {
		c.snapshotLoads.WithLabelValues("error").Inc()
		return
	}
	c.snapshotLoads.WithLabelValues("ok").Inc()
	c.corpusSize.WithLabelValues("regulations").Set(float64(regulations))
	c.corpusSize.WithLabelValues("faqs").Set(float64(faqs))
}

// Middleware records request counts and latency per route.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		if c == nil {
			return
		}
		path := ctx.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := ctx.Request.Method
		c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
