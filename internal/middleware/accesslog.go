// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

package middleware

import (
	"net/http"
	"time"

	"github.com/vigia-labs/vigia/internal/activity"
	"github.com/vigia-labs/vigia/internal/metrics"
)

// AccessLog records one activity entry per completed request through the
// recorder. It also stashes the client address and user agent in the
// context so entity events triggered further down the handler chain can
// attach device details.
//
// The recorder call happens after the handler returns, with the final
// status code; recording is asynchronous and never delays the response.
func AccessLog(recorder *activity.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := activity.ContextWithRequestInfo(r.Context(), activity.RequestInfo{
				IP:        activity.ClientIP(r),
				UserAgent: r.UserAgent(),
			})
			r = r.WithContext(ctx)

			wrapper := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapper, r)

			recorder.LogAccess(r, wrapper.statusCode)
		})
	}
}

// Metrics instruments requests with Prometheus counters and latency
// histograms.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		metrics.RecordHTTPRequest(r.Method, wrapper.statusCode, time.Since(start).Seconds())
	})
}

// statusResponseWriter wraps http.ResponseWriter to capture the status
// code.
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
