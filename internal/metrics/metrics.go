// Package metrics holds the Prometheus collectors exposed at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatbot_leads_http_requests_total",
		Help: "Total inbound webhook requests by route and result.",
	}, []string{"route", "result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chatbot_leads_http_request_duration_seconds",
		Help:    "Inbound webhook handling latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatbot_leads_jobs_processed_total",
		Help: "Jobs successfully processed by queue.",
	}, []string{"queue"})

	JobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatbot_leads_jobs_failed_total",
		Help: "Jobs that exhausted retries and were dropped, by queue.",
	}, []string{"queue"})

	LockAcquireFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatbot_leads_lock_acquire_failures_total",
		Help: "Per-user mutex acquisitions that exhausted retries.",
	})

	BackingStoreDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatbot_leads_backing_store_degraded_total",
		Help: "Operations that proceeded in degraded mode after a backing-store failure.",
	}, []string{"operation"})

	Escalations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatbot_leads_escalations_total",
		Help: "Leads escalated to MANUAL_INTERVENTION, by reason.",
	}, []string{"reason"})
)
