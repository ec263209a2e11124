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

// Command alb is a reverse proxy and load balancer that routes requests to
// pools of backend addresses chosen by a configurable matcher and strategy,
// reloading its backend file on SIGHUP or file change without dropping
// in-flight health state.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	liblog "github.com/sabouaram/alb/logger"
	loglvl "github.com/sabouaram/alb/logger/level"
	"github.com/sabouaram/alb/pipeline"
	"github.com/sabouaram/alb/snapshot"

	"github.com/sabouaram/alb/listener"
)

var (
	flagBackend       string
	flagMetricsListen string
)

var rootCmd = &cobra.Command{
	Use:     "alb",
	Short:   "reverse proxy and load balancer",
	Version: Version,
	RunE:    run,
}

func init() {
	rootCmd.Flags().StringVar(&flagBackend, "backend", "", "path to the backend TOML configuration (required)")
	rootCmd.Flags().StringVar(&flagMetricsListen, "metrics-listen", ":9090", "bind address for the /metrics endpoint")
	_ = rootCmd.MarkFlagRequired("backend")
}

// Execute runs the root command; errors are printed and translate to a
// non-zero exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	color.New(color.FgCyan, color.Bold).Printf("alb %s starting\n", Version)

	log := liblog.New(cmd.Context)
	getLog := func() liblog.Logger { return log }

	mgr := snapshot.NewManager(getLog)
	if err := mgr.Load(flagBackend); err != nil {
		return fmt.Errorf("loading backend %q: %w", flagBackend, err)
	}
	if err := mgr.Watch(); err != nil {
		return fmt.Errorf("watching backend %q: %w", flagBackend, err)
	}
	defer mgr.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go mgr.Scheduler().Run(ctx)
	go pruneRateLimiters(ctx, mgr)

	handler := &liveHandler{mgr: mgr, log: getLog}

	listeners, err := startListeners(mgr, handler, getLog)
	if err != nil {
		return err
	}
	defer stopListeners(listeners)

	metricsSrv := &http.Server{Addr: flagMetricsListen, Handler: promhttp.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics listener stopped: " + err.Error())
		}
	}()
	defer func() {
		shCtx, shCancel := context.WithCancel(context.Background())
		defer shCancel()
		_ = metricsSrv.Shutdown(shCtx)
	}()

	log.Entry(loglvl.InfoLevel, "alb ready").
		FieldAdd("backend", flagBackend).
		FieldAdd("metrics", flagMetricsListen).
		Log()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Entry(loglvl.InfoLevel, "shutting down").Log()
	return nil
}

// liveHandler re-resolves the current snapshot on every request so a
// config reload takes effect without restarting the listeners.
type liveHandler struct {
	mgr *snapshot.Manager
	log liblog.FuncLog
}

func (h *liveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	svc := &pipeline.Service{Snapshot: h.mgr.Current(), Log: h.log}
	svc.ServeHTTP(w, r)
}

func startListeners(mgr *snapshot.Manager, handler http.Handler, getLog liblog.FuncLog) ([]listener.Listener, error) {
	snap := mgr.Current()
	cfgs := snapshot.BuildListeners(mgr.Source(), snap.CertResolve)

	out := make([]listener.Listener, 0, len(cfgs))
	for _, cfg := range cfgs {
		l := listener.New(cfg, getLog)
		if err := l.Listen(handler); err != nil {
			stopListeners(out)
			return nil, fmt.Errorf("starting listener %q: %w", cfg.Name, err)
		}
		out = append(out, l)
	}
	return out, nil
}

func stopListeners(listeners []listener.Listener) {
	for _, l := range listeners {
		l.Shutdown()
	}
}

const rateLimiterPruneInterval = time.Minute

// pruneRateLimiters periodically sweeps the rate limiter client tables of
// the current snapshot so expired per-client windows do not accumulate for
// the life of the process.
func pruneRateLimiters(ctx context.Context, mgr *snapshot.Manager) {
	ticker := time.NewTicker(rateLimiterPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mgr.Current().PruneRateLimiters()
		}
	}
}
