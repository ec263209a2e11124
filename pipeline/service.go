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

package pipeline

import (
	"io"
	"net/http"
	"strconv"

	loglvl "github.com/sabouaram/alb/logger/level"

	liblog "github.com/sabouaram/alb/logger"
	"github.com/sabouaram/alb/matcher"
	"github.com/sabouaram/alb/middleware"
	"github.com/sabouaram/alb/metrics"
	"github.com/sabouaram/alb/strategy"
)

// Service is the main request handler: it holds the live snapshot
// reference and walks pools/health/strategy/middleware/upstream for every
// incoming request.
type Service struct {
	Snapshot *Snapshot
	Log      liblog.FuncLog
}

// entry logs msg at lvl with component="pipeline" plus kv as alternating
// field key/value pairs (e.g. entry(lvl, "upstream call failed", "pool", name)).
func (s *Service) entry(lvl loglvl.Level, msg string, kv ...interface{}) {
	if s.Log == nil {
		return
	}
	if lg := s.Log(); lg != nil {
		ent := lg.Entry(lvl, msg).FieldAdd("component", "pipeline")
		for i := 0; i+1 < len(kv); i += 2 {
			if key, ok := kv[i].(string); ok {
				ent = ent.FieldAdd(key, kv[i+1])
			}
		}
		ent.Log()
	}
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	scheme := matcher.SchemeHTTP
	if middleware.IsHTTPS(r) {
		scheme = matcher.SchemeHTTPS
	}

	req := matcher.FromHTTP(r, scheme)
	snap := s.Snapshot

	pool, werr := snap.SelectPool(req)
	if werr != nil {
		s.entry(loglvl.DebugLevel, "no pool matched request", "path", req.Path)
		metrics.RequestsTotal.WithLabelValues("", "404").Inc()
		writeStatus(w, http.StatusNotFound)
		return
	}

	addresses := pool.healthyAddresses()
	if len(addresses) == 0 {
		s.entry(loglvl.WarnLevel, "pool has no healthy or slow address", "pool", pool.Name)
		metrics.RequestsTotal.WithLabelValues(pool.Name, "502").Inc()
		writeStatus(w, http.StatusBadGateway)
		return
	}

	address, post, perr := pool.Strategy.Pick(addresses, req)
	if perr != nil {
		s.entry(loglvl.ErrorLevel, "strategy could not pick an address", "pool", pool.Name)
		metrics.RequestsTotal.WithLabelValues(pool.Name, "502").Inc()
		writeStatus(w, http.StatusBadGateway)
		return
	}

	terminal := s.terminal(pool, address)
	chain := middleware.NewChain(terminal, pool.Middlewares...)

	resp, herr := chain.Handle(r)

	stratResp := &strategy.Response{Failed: herr != nil}
	if resp != nil {
		stratResp.StatusCode = resp.StatusCode
		stratResp.Header = resp.Header
	}
	if post != nil {
		post(stratResp)
	}

	if herr != nil {
		s.entry(loglvl.WarnLevel, "upstream call failed", "pool", pool.Name, "address", address)
		metrics.UpstreamErrorsTotal.WithLabelValues(pool.Name, address).Inc()
		metrics.RequestsTotal.WithLabelValues(pool.Name, "502").Inc()
		writeStatus(w, http.StatusBadGateway)
		return
	}

	metrics.RequestsTotal.WithLabelValues(pool.Name, strconv.Itoa(resp.StatusCode)).Inc()
	writeResponse(w, resp)
}

func (s *Service) terminal(pool *Pool, address string) middleware.Next {
	return func(req *http.Request) (*http.Response, error) {
		upstreamReq := req.Clone(req.Context())
		upstreamReq.URL.Scheme = "http"
		upstreamReq.URL.Host = address
		upstreamReq.RequestURI = ""

		return pool.Client.Do(upstreamReq)
	}
}

func writeStatus(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
}

func writeResponse(w http.ResponseWriter, resp *http.Response) {
	header := w.Header()
	for k, values := range resp.Header {
		for _, v := range values {
			header.Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != nil {
		defer resp.Body.Close()
		_, _ = io.Copy(w, resp.Body)
	}
}
