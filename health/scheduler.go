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

package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	liblog "github.com/sabouaram/alb/logger"
	loglvl "github.com/sabouaram/alb/logger/level"
	"github.com/sabouaram/alb/metrics"
)

// Target is one address to probe on a tick, carrying the per-pool tuning
// that address's pool was configured with.
type Target struct {
	Pool            string
	Address         string
	ProbePath       string
	TimeoutMs       int
	SlowThresholdMs int
}

// FuncTargets supplies the current set of addresses to probe; the scheduler
// calls it fresh on every tick so a config reload is picked up without
// restarting the scheduler.
type FuncTargets func() []Target

// Scheduler runs one probing goroutine per target on every tick of
// CheckEvery, writing results into Registry. One slow backend cannot delay
// others: each probe has its own timeout-bound context and the tick does
// not wait longer than the slowest individual probe's timeout.
type Scheduler struct {
	Registry   *Registry
	Targets    FuncTargets
	CheckEvery time.Duration
	Log        liblog.FuncLog

	client *http.Client
}

func NewScheduler(reg *Registry, targets FuncTargets, checkEvery time.Duration, defLog liblog.FuncLog) *Scheduler {
	return &Scheduler{
		Registry:   reg,
		Targets:    targets,
		CheckEvery: checkEvery,
		Log:        defLog,
		client:     &http.Client{},
	}
}

func (s *Scheduler) entry(lvl loglvl.Level, msg string, args ...interface{}) {
	if s.Log == nil {
		return
	}
	if lg := s.Log(); lg != nil {
		lg.Entry(lvl, msg, args...).FieldAdd("component", "health").Log()
	}
}

// Run blocks probing on every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.CheckEvery
	if interval <= 0 {
		interval = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	targets := s.Targets()

	s.Registry.ResetSeen()

	var wg sync.WaitGroup
	wg.Add(len(targets))

	for _, t := range targets {
		go func(t Target) {
			defer wg.Done()
			s.Registry.Ensure(t.Address)
			st, latency := s.probe(ctx, t)
			s.Registry.Set(t.Address, st, latency, time.Now())
			metrics.BackendHealth.WithLabelValues(t.Pool, t.Address).Set(float64(st))
		}(t)
	}

	wg.Wait()
	s.Registry.Purge()
}

func (s *Scheduler) probe(ctx context.Context, t Target) (State, time.Duration) {
	timeout := time.Duration(t.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}

	path := t.ProbePath
	if path == "" {
		path = "/"
	}

	slowThreshold := time.Duration(t.SlowThresholdMs) * time.Millisecond
	if slowThreshold <= 0 {
		slowThreshold = 300 * time.Millisecond
	}

	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(pctx, http.MethodGet, "http://"+t.Address+path, nil)
	if err != nil {
		s.entry(loglvl.ErrorLevel, "health probe %s: bad request: %s", t.Address, err.Error())
		return Unresponsive, 0
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	if err != nil {
		s.entry(loglvl.WarnLevel, "health probe %s: %s", t.Address, err.Error())
		return Unresponsive, latency
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.entry(loglvl.WarnLevel, "health probe %s: status %d", t.Address, resp.StatusCode)
		return Unresponsive, latency
	}

	if latency >= slowThreshold {
		return Slow, latency
	}

	return Healthy, latency
}
