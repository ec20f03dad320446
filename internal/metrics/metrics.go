// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

// Package metrics provides Prometheus instrumentation for the activity
// recorder, device classifier and HTTP boundary.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Activity recorder metrics
	ActivityEntriesEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_entries_emitted_total",
			Help: "Total number of activity log entries handed to the sink",
		},
		[]string{"channel"},
	)

	ActivityEntriesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_entries_dropped_total",
			Help: "Total number of entries dropped because the emit buffer was full",
		},
	)

	ActivitySinkErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_sink_errors_total",
			Help: "Total number of failed sink writes",
		},
	)

	ActivitySinkWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "activity_sink_write_duration_seconds",
			Help:    "Duration of sink writes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	AccessLogThrottled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "access_log_throttled_total",
			Help: "Total number of access events suppressed by the per-subject throttle",
		},
	)

	// Device classification metrics. Cache hit rate is derived:
	// hits = lookups - classifications.
	DeviceLookups = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "device_lookups_total",
			Help: "Total number of device detail lookups (cached or not)",
		},
	)

	DeviceClassifications = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "device_classifications_total",
			Help: "Total number of user-agent parses actually performed",
		},
	)

	DeviceClassificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "device_classification_failures_total",
			Help: "Total number of classifications recovered to unknown placeholders",
		},
	)

	DeviceClassificationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "device_classification_duration_seconds",
			Help:    "Duration of user-agent parsing in seconds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		},
	)

	// HTTP boundary metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP request handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// RecordHTTPRequest records one handled request.
func RecordHTTPRequest(method string, status int, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(seconds)
}
