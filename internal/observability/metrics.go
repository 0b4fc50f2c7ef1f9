// Package observability exposes the Prometheus metrics for the vetagent
// services. All metrics are registered on the default registry and served by
// the HTTP server's /metrics endpoint.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled HTTP requests by method, route and
	// status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vetagent_http_requests_total",
		Help: "HTTP requests handled, by method, route and status code.",
	}, []string{"method", "route", "code"})

	// HTTPDuration observes request latency per route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vetagent_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// Turns counts processed conversation turns by resulting session status.
	Turns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vetagent_turns_total",
		Help: "Conversation turns processed, by resulting session status.",
	}, []string{"status"})

	// Diagnoses counts completed diagnosis passes by critic outcome.
	Diagnoses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vetagent_diagnoses_total",
		Help: "Completed diagnosis passes, by critic outcome.",
	}, []string{"outcome"})

	// Retrievals counts hybrid retrieval runs by result size bucket
	// ("hit" when evidence came back, "empty" otherwise).
	Retrievals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vetagent_retrievals_total",
		Help: "Hybrid retrieval runs, by result outcome.",
	}, []string{"result"})

	// ModelErrors counts failed model invocations by operation.
	ModelErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vetagent_model_errors_total",
		Help: "Failed model invocations, by operation.",
	}, []string{"op"})

	// RateLimited counts requests rejected by the rate limiter.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vetagent_rate_limited_total",
		Help: "Requests rejected by the rate limiter.",
	})
)
