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

package logger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	logcfg "github.com/sabouaram/alb/logger/config"
	logent "github.com/sabouaram/alb/logger/entry"
	logfld "github.com/sabouaram/alb/logger/fields"
	loglvl "github.com/sabouaram/alb/logger/level"
)

type logger struct {
	mu sync.RWMutex

	ctx   func() context.Context
	opt   *logcfg.Options
	rus   *logrus.Logger
	level loglvl.Level
	flds  logfld.Fields
	clo   *closer
}

func (l *logger) getLogrus() *logrus.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rus
}

func (l *logger) SetOptions(opt *logcfg.Options) error {
	if opt == nil {
		opt = &logcfg.Options{}
	}

	if e := opt.Validate(); e != nil {
		return e
	}

	rus, clo, e := buildLogrus(opt)
	if e != nil {
		return e
	}

	l.mu.Lock()
	old := l.clo
	l.opt = opt
	l.rus = rus
	l.clo = clo
	l.mu.Unlock()

	if old != nil {
		old.Close()
	}

	return nil
}

func (l *logger) GetOptions() *logcfg.Options {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.opt
}

func (l *logger) SetLevel(lvl loglvl.Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = lvl
	if l.rus != nil {
		l.rus.SetLevel(lvl.Logrus())
	}
}

func (l *logger) GetLevel() loglvl.Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *logger) SetFields(f logfld.Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flds = f
}

func (l *logger) GetFields() logfld.Fields {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.flds
}

func (l *logger) Clone() Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var f logfld.Fields
	if l.flds != nil {
		f = l.flds.Clone()
	}

	return &logger{
		ctx:   l.ctx,
		opt:   l.opt,
		rus:   l.rus,
		level: l.level,
		flds:  f,
		clo:   l.clo,
	}
}

func (l *logger) Entry(lvl loglvl.Level, msg string, args ...interface{}) logent.Entry {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	e := logent.New(lvl).SetLogger(l.getLogrus).SetEntryContext(time.Now(), 0, "", "", 0, msg)

	f := l.GetFields()
	if f == nil {
		f = logfld.New(l.ctx())
	}
	e = e.FieldSet(f.Clone())

	return e
}

func (l *logger) Debug(msg string, args ...interface{})   { l.Entry(loglvl.DebugLevel, msg, args...).Log() }
func (l *logger) Info(msg string, args ...interface{})    { l.Entry(loglvl.InfoLevel, msg, args...).Log() }
func (l *logger) Warning(msg string, args ...interface{}) { l.Entry(loglvl.WarnLevel, msg, args...).Log() }
func (l *logger) Error(msg string, args ...interface{})   { l.Entry(loglvl.ErrorLevel, msg, args...).Log() }
func (l *logger) Fatal(msg string, args ...interface{})   { l.Entry(loglvl.FatalLevel, msg, args...).Log() }
func (l *logger) Panic(msg string, args ...interface{})   { l.Entry(loglvl.PanicLevel, msg, args...).Log() }

func (l *logger) CheckError(lvlKO, lvlOK loglvl.Level, msg string, err ...error) bool {
	e := l.Entry(lvlKO, msg).ErrorAdd(true, err...)
	return e.Check(lvlOK)
}

func (l *logger) Close() {
	l.mu.RLock()
	c := l.clo
	l.mu.RUnlock()

	if c != nil {
		c.Close()
	}
}
