/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package metrics holds the process-wide Prometheus collectors shared by
// the pipeline and health packages. A single registry-backed set of
// collectors is exported rather than one per Service, since a reload
// replaces the snapshot but the process (and its /metrics endpoint)
// persists across reloads.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "alb_requests_total",
		Help: "Total requests handled, by pool and response status code.",
	}, []string{"pool", "code"})

	UpstreamErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "alb_upstream_errors_total",
		Help: "Total upstream dial/request failures, by pool and backend address.",
	}, []string{"pool", "backend"})

	BackendHealth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "alb_backend_health",
		Help: "Last observed health state of a backend: 0 unresponsive, 1 slow, 2 healthy.",
	}, []string{"pool", "backend"})
)

func init() {
	prometheus.MustRegister(RequestsTotal, UpstreamErrorsTotal, BackendHealth)
}
