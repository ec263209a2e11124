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
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"

	logcfg "github.com/sabouaram/alb/logger/config"
)

// buildLogrus constructs a logrus.Logger from the given options, wiring stdout
// (optionally colorized, following the teacher's fatih/color + go-colorable pairing)
// and any configured file outputs. It returns the closer tracking opened files so
// a later SetOptions call or Close() can release them.
func buildLogrus(opt *logcfg.Options) (*logrus.Logger, *closer, error) {
	rus := logrus.New()
	rus.SetOutput(io.Discard)
	rus.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: false,
		FullTimestamp:    true,
	})

	clo := &closer{}
	clo.c = make([]io.Closer, 0)

	var writers = make([]io.Writer, 0)

	if opt.Stdout == nil || !opt.Stdout.DisableStandard {
		var out io.Writer = os.Stdout

		if opt.Stdout != nil && opt.Stdout.DisableColor {
			color.NoColor = true
		} else {
			out = colorable.NewColorableStdout()
		}

		writers = append(writers, out)
	}

	for _, f := range opt.LogFile {
		if len(f.Filepath) == 0 {
			continue
		}

		if f.CreatePath {
			pathMode := f.PathMode
			if pathMode == 0 {
				pathMode = 0o755
			}
			_ = os.MkdirAll(dirOf(f.Filepath), pathMode)
		}

		flags := os.O_APPEND | os.O_WRONLY
		if f.Create {
			flags |= os.O_CREATE
		}

		fileMode := f.FileMode
		if fileMode == 0 {
			fileMode = 0o644
		}

		fh, err := os.OpenFile(f.Filepath, flags, fileMode)
		if err != nil {
			return nil, nil, ErrorFileOpen.Error(err)
		}

		clo.Add(fh)
		writers = append(writers, fh)
	}

	if len(writers) > 0 {
		rus.SetOutput(io.MultiWriter(writers...))
	}

	return rus, clo, nil
}

func dirOf(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[:i]
		}
	}
	return "."
}
