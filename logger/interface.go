/*
 * MIT License
 *
 * Copyright (c) 2021 Nicolas JUHEL
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

// Package logger wraps logrus into the structured Entry/Fields idiom shared
// across this module: every component obtains a Logger through a FuncLog
// closure and builds Entry values instead of calling logrus directly.
package logger

import (
	"context"

	logcfg "github.com/sabouaram/alb/logger/config"
	logent "github.com/sabouaram/alb/logger/entry"
	logfld "github.com/sabouaram/alb/logger/fields"
	loglvl "github.com/sabouaram/alb/logger/level"
)

// FuncLog returns the current Logger instance. Components store a FuncLog rather
// than a Logger so that a live configuration reload can swap the backing logger
// without requiring every caller to be notified.
type FuncLog func() Logger

// Logger is the structured logging facade used throughout this module.
type Logger interface {
	// SetOptions applies the given options, (re)building the logrus outputs
	// (stdout, files). A nil options pointer applies empty options: stdout
	// only, no files.
	SetOptions(opt *logcfg.Options) error
	GetOptions() *logcfg.Options

	SetLevel(lvl loglvl.Level)
	GetLevel() loglvl.Level

	SetFields(f logfld.Fields)
	GetFields() logfld.Fields

	// Clone returns a new Logger sharing the same outputs but with its own
	// level/fields state, for per-request or per-component field scoping.
	Clone() Logger

	// Entry builds a new log Entry at the given level, pre-seeded with the
	// logger's own fields and bound to this logger's logrus instance.
	Entry(lvl loglvl.Level, msg string, args ...interface{}) logent.Entry

	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warning(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
	Panic(msg string, args ...interface{})

	// CheckError logs at lvlKO when err is not nil, at lvlOK otherwise, and
	// returns true when an error was logged.
	CheckError(lvlKO, lvlOK loglvl.Level, msg string, err ...error) bool

	Close()
}

// New returns a Logger bound to the context returned by ctx. The context
// seeds the fields of each Entry when none were set with SetFields; logging
// calls themselves never block on it.
func New(ctx func() context.Context) Logger {
	if ctx == nil {
		ctx = func() context.Context { return context.Background() }
	}

	l := &logger{
		ctx:   ctx,
		level: loglvl.InfoLevel,
	}
	_ = l.SetOptions(nil)
	return l
}
