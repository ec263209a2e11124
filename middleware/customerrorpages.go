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

package middleware

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"strconv"
)

// CustomErrorPages substitutes a static body, read once at construction,
// for any upstream response whose status code has a configured page.
// The original status code is preserved; only the body is replaced.
type CustomErrorPages struct {
	Pages map[int][]byte
}

// NewCustomErrorPages reads each page's content immediately so a later
// filesystem failure cannot surface mid-request.
func NewCustomErrorPages(files map[int]string) (*CustomErrorPages, error) {
	pages := make(map[int][]byte, len(files))
	for code, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		pages[code] = data
	}
	return &CustomErrorPages{Pages: pages}, nil
}

func (c *CustomErrorPages) Handle(req *http.Request, next Next) (*http.Response, error) {
	resp, err := next(req)
	if err != nil || resp == nil {
		return resp, err
	}

	page, ok := c.Pages[resp.StatusCode]
	if !ok {
		return resp, nil
	}

	if resp.Body != nil {
		_ = resp.Body.Close()
	}

	resp.Body = io.NopCloser(bytes.NewReader(page))
	resp.ContentLength = int64(len(page))
	if resp.Header == nil {
		resp.Header = http.Header{}
	}
	resp.Header.Set("Content-Length", strconv.Itoa(len(page)))

	return resp, nil
}
