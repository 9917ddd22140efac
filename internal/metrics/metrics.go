package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wainbox"

// Outcome labels for webhook deliveries and template sends
const (
	OutcomeStored   = "stored"
	OutcomeSkipped  = "skipped"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"

	OutcomeSent          = "sent"
	OutcomeNotFound      = "not_found"
	OutcomeMissingConfig = "missing_config"
	OutcomeUpstreamError = "upstream_error"
)

// Registry owns every wainbox collector. Each Registry has its own
// prometheus.Registry so servers built in tests do not collide.
// All methods are safe on a nil *Registry and then do nothing.
type Registry struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	webhookDeliveries *prometheus.CounterVec
	recordsStored     prometheus.Counter
	templateSends     *prometheus.CounterVec
	templateDuration  prometheus.Histogram
}

// NewRegistry creates a registry with the process and Go runtime collectors attached
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status_code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		webhookDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_deliveries_total",
				Help:      "Webhook deliveries by outcome.",
			},
			[]string{"outcome"}, // stored, skipped, rejected, failed
		),
		recordsStored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_stored_total",
				Help:      "Incoming messages written to storage.",
			},
		),
		templateSends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "template_sends_total",
				Help:      "Template dispatch attempts by outcome.",
			},
			[]string{"outcome"},
		),
		templateDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "template_send_duration_seconds",
				Help:      "Duration of outbound template calls to the Cloud API.",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpRequests,
		r.httpDuration,
		r.webhookDeliveries,
		r.recordsStored,
		r.templateSends,
		r.templateDuration,
	)
	return r
}

// ObserveHTTPRequest records one served request. route should be a path
// template, not the raw URL, to keep label cardinality bounded.
func (r *Registry) ObserveHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordWebhookDelivery counts one webhook POST and the records it produced
func (r *Registry) RecordWebhookDelivery(outcome string, records int) {
	if r == nil {
		return
	}
	r.webhookDeliveries.WithLabelValues(outcome).Inc()
	if records > 0 {
		r.recordsStored.Add(float64(records))
	}
}

// RecordTemplateSend counts one dispatch. duration is only observed when an
// outbound call was made.
func (r *Registry) RecordTemplateSend(outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	r.templateSends.WithLabelValues(outcome).Inc()
	if duration > 0 {
		r.templateDuration.Observe(duration.Seconds())
	}
}

// Gatherer exposes the underlying registry for tests and custom exporters
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the Prometheus text exposition of this registry
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
