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

package snapshot

import (
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/sabouaram/alb/health"
	liblog "github.com/sabouaram/alb/logger"
	loglvl "github.com/sabouaram/alb/logger/level"
	"github.com/sabouaram/alb/pipeline"
)

// Manager owns the live *pipeline.Snapshot built from a backend TOML file
// and keeps it current across SIGHUP and file-watch triggered reloads. A
// malformed reload is logged and the prior snapshot stays in place. The
// health.Registry is created once and outlives reloads, so a reconfigure
// never discards in-flight health state.
type Manager struct {
	current  atomic.Pointer[pipeline.Snapshot]
	source   atomic.Pointer[Source]
	registry *health.Registry
	path     string
	log      liblog.FuncLog
	watcher  *fsnotify.Watcher
	signals  chan os.Signal
	done     chan struct{}
}

func NewManager(log liblog.FuncLog) *Manager {
	return &Manager{log: log, registry: health.NewRegistry()}
}

// Scheduler returns a health.Scheduler that probes whatever pools the
// latest successfully loaded Source declares, ticking at that Source's
// CheckEvery (as of the moment Scheduler is called).
func (m *Manager) Scheduler() *health.Scheduler {
	var interval time.Duration
	if src := m.source.Load(); src != nil {
		interval = src.CheckEvery
	}

	return health.NewScheduler(m.registry, func() []health.Target {
		if src := m.source.Load(); src != nil {
			return Targets(src)
		}
		return nil
	}, interval, m.log)
}

// Current returns the live snapshot. Safe for concurrent use.
func (m *Manager) Current() *pipeline.Snapshot {
	return m.current.Load()
}

// Source returns the last successfully decoded backend Source, or nil
// before the first successful Load.
func (m *Manager) Source() *Source {
	return m.source.Load()
}

// Load reads path, builds a Snapshot and installs it as current. Unlike
// Reload it returns the build error instead of swallowing it, since there
// is no prior snapshot to fall back on at startup.
func (m *Manager) Load(path string) error {
	m.path = path

	snap, err := m.readAndBuild(path)
	if err != nil {
		return err
	}

	m.current.Store(snap)
	m.entry(loglvl.InfoLevel, "configuration loaded", "path", path)
	return nil
}

// Reload rereads the backend file in place. On failure the prior snapshot
// is left untouched and the error is logged, never returned to the caller
// of Watch/Serve loops.
func (m *Manager) Reload() {
	snap, err := m.readAndBuild(m.path)
	if err != nil {
		m.entry(loglvl.ErrorLevel, "configuration reload failed, keeping prior snapshot", "path", m.path, "error", err.Error())
		return
	}

	m.current.Store(snap)
	m.entry(loglvl.InfoLevel, "configuration reloaded", "path", m.path)
}

func (m *Manager) readAndBuild(path string) (*pipeline.Snapshot, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, ErrorConfigRead.Error(err)
	}

	var src Source
	if err := v.Unmarshal(&src); err != nil {
		return nil, ErrorConfigDecode.Error(err)
	}

	if err := validator.New().Struct(&src); err != nil {
		return nil, ErrorConfigValidate.Error(err)
	}

	snap, err := Build(&src, m.log, m.registry)
	if err != nil {
		return nil, err
	}

	m.source.Store(&src)
	return snap, nil
}

// Watch installs the SIGHUP handler and an fsnotify watch on the backend
// file's directory; both funnel into Reload. It returns once the watches
// are armed; call Stop to tear them down.
func (m *Manager) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		_ = watcher.Close()
		return err
	}

	m.watcher = watcher
	m.signals = make(chan os.Signal, 1)
	m.done = make(chan struct{})

	signal.Notify(m.signals, syscall.SIGHUP)

	go m.watchLoop()

	return nil
}

func (m *Manager) watchLoop() {
	base := filepath.Base(m.path)

	for {
		select {
		case <-m.done:
			return
		case sig, ok := <-m.signals:
			if !ok {
				return
			}
			m.entry(loglvl.InfoLevel, "reload triggered by signal", "signal", sig.String())
			m.Reload()
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			m.entry(loglvl.InfoLevel, "reload triggered by file change", "path", ev.Name)
			m.Reload()
		case werr, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.entry(loglvl.WarnLevel, "config watcher error", "error", werr.Error())
		}
	}
}

// Stop tears down the signal handler and file watch started by Watch.
func (m *Manager) Stop() {
	if m.signals != nil {
		signal.Stop(m.signals)
	}
	if m.done != nil {
		close(m.done)
	}
	if m.watcher != nil {
		_ = m.watcher.Close()
	}
}

// entry logs msg at lvl with component="snapshot" plus kv as alternating
// field key/value pairs.
func (m *Manager) entry(lvl loglvl.Level, msg string, kv ...interface{}) {
	if m.log == nil {
		return
	}
	if lg := m.log(); lg != nil {
		ent := lg.Entry(lvl, msg).FieldAdd("component", "snapshot")
		for i := 0; i+1 < len(kv); i += 2 {
			if key, ok := kv[i].(string); ok {
				ent = ent.FieldAdd(key, kv[i+1])
			}
		}
		ent.Log()
	}
}
