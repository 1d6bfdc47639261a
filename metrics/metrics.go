// Copyright 2024 The ossfs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes the per-operation request counters and
// latency histograms backing the mount's /metrics endpoint.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// op labels the filesystem operations the handler records.
type op string

const (
	OpLookup   op = "lookup"
	OpGetAttr  op = "getattr"
	OpReadDir  op = "readdir"
	OpMknod    op = "mknod"
	OpRead     op = "read"
	OpStatfs   op = "statfs"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ossfs",
		Name:      "requests_total",
		Help:      "Count of filesystem façade calls, by operation and outcome.",
	}, []string{"op", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ossfs",
		Name:      "request_duration_seconds",
		Help:      "Latency of filesystem façade calls, by operation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})
)

// Handler returns the HTTP handler that serves the Prometheus exposition
// format for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Observe records one call to operation, its outcome ("ok" or "error"),
// and its duration.
func Observe(operation op, err error, duration time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	requestsTotal.WithLabelValues(string(operation), outcome).Inc()
	requestDuration.WithLabelValues(string(operation)).Observe(duration.Seconds())
}

// Track times a call to operation and records it when the returned func
// is invoked, typically via defer:
//
//	defer metrics.Track(metrics.OpRead, &err)()
func Track(operation op, err *error) func() {
	start := time.Now()
	return func() {
		Observe(operation, *err, time.Since(start))
	}
}
