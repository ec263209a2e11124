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

package listener

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"

	liberr "github.com/sabouaram/alb/errors"
	liblog "github.com/sabouaram/alb/logger"
	loglvl "github.com/sabouaram/alb/logger/level"
	"github.com/sabouaram/alb/middleware"
)

const timeoutShutdown = 10 * time.Second

// Listener is one plaintext or TLS front of the load balancer.
type Listener interface {
	GetName() string
	GetBindable() string
	IsTLS() bool
	IsRunning() bool

	// Listen starts serving handler on this listener's address in the
	// background. It returns without waiting for the socket to be bound;
	// bind and serve errors are logged, not returned.
	Listen(handler http.Handler) liberr.Error
	Restart(handler http.Handler) liberr.Error
	Shutdown()
}

type listener struct {
	cfg     Config
	log     liblog.FuncLog
	running atomic.Bool
	srv     *http.Server
	cancel  context.CancelFunc
}

// New builds a Listener from cfg. defLog supplies the logger used for
// lifecycle and error messages; a nil defLog disables logging.
func New(cfg Config, defLog liblog.FuncLog) Listener {
	return &listener{cfg: cfg, log: defLog}
}

func (l *listener) GetName() string {
	if l.cfg.Name != "" {
		return l.cfg.Name
	}
	return l.cfg.Listen
}

func (l *listener) GetBindable() string { return l.cfg.Listen }
func (l *listener) IsTLS() bool         { return l.cfg.TLS }
func (l *listener) IsRunning() bool     { return l.running.Load() }

func (l *listener) entry(lvl loglvl.Level, msg string, args ...interface{}) {
	if l.log == nil {
		return
	}
	if lg := l.log(); lg != nil {
		lg.Entry(lvl, msg, args...).FieldAdd("listener", l.GetName()).Log()
	}
}

// schemeStamper wraps handler so every request arriving on this listener
// carries its real arrival scheme (middleware.WithScheme), regardless of
// whether the connection terminated TLS here or arrived plaintext.
type schemeStamper struct {
	https   bool
	handler http.Handler
}

func (s schemeStamper) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, middleware.WithScheme(r, s.https || r.TLS != nil))
}

func (l *listener) Listen(handler http.Handler) liberr.Error {
	srv := &http.Server{
		Addr:              l.cfg.Listen,
		Handler:           schemeStamper{https: l.cfg.TLS, handler: handler},
		ReadTimeout:       l.cfg.ReadTimeout,
		ReadHeaderTimeout: l.cfg.ReadHeaderTimeout,
		WriteTimeout:      l.cfg.WriteTimeout,
		IdleTimeout:       l.cfg.IdleTimeout,
	}

	if l.cfg.MaxHeaderBytes > 0 {
		srv.MaxHeaderBytes = l.cfg.MaxHeaderBytes
	}

	if l.cfg.TLS {
		minVersion, curves, clientAuth, clientCAs, terr := l.cfg.tlsOverlay()
		if terr != nil {
			return terr
		}
		srv.TLSConfig = &tls.Config{
			MinVersion:       minVersion,
			CurvePreferences: curves,
			ClientAuth:       clientAuth,
			ClientCAs:        clientCAs,
			GetCertificate:   l.cfg.getCertificate,
		}
	}

	h2 := &http2.Server{}
	if l.cfg.MaxConcurrentStreams > 0 {
		h2.MaxConcurrentStreams = l.cfg.MaxConcurrentStreams
	}

	if e := http2.ConfigureServer(srv, h2); e != nil {
		return ErrorHTTP2Configure.Error(e)
	}

	if l.running.Load() {
		l.Shutdown()
	}

	if portInUse(l.cfg.Listen) {
		return ErrorPortInUse.Error(nil)
	}

	l.srv = srv

	ctx, cancel := context.WithCancel(l.cfg.getContext())
	l.cancel = cancel
	srv.BaseContext = func(net.Listener) context.Context { return ctx }

	go func() {
		defer func() {
			cancel()
			l.running.Store(false)
		}()

		l.running.Store(true)

		var err error
		if l.cfg.TLS {
			l.entry(loglvl.InfoLevel, "listener '%s' starting tls on %s", l.GetName(), l.cfg.Listen)
			err = srv.ListenAndServeTLS("", "")
		} else {
			l.entry(loglvl.InfoLevel, "listener '%s' starting on %s", l.GetName(), l.cfg.Listen)
			err = srv.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.entry(loglvl.ErrorLevel, "listener '%s' stopped: %s", l.GetName(), err.Error())
		}
	}()

	return nil
}

func (l *listener) Restart(handler http.Handler) liberr.Error {
	return l.Listen(handler)
}

func (l *listener) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), timeoutShutdown)
	defer cancel()

	l.entry(loglvl.InfoLevel, "listener '%s' shutting down", l.GetName())

	if l.cancel != nil {
		l.cancel()
	}

	if l.srv != nil {
		if err := l.srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.entry(loglvl.ErrorLevel, "listener '%s' shutdown error: %s", l.GetName(), err.Error())
		}
	}

	l.running.Store(false)
}
