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
	"context"
	"net/http"
)

type schemeKeyType struct{}

var schemeKey = schemeKeyType{}

// WithScheme stamps the request's arrival scheme for middlewares (notably
// HttpsRedirector) that cannot observe it on *http.Request directly.
func WithScheme(req *http.Request, https bool) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), schemeKey, https))
}

func isHTTPS(req *http.Request) bool {
	return IsHTTPS(req)
}

// IsHTTPS reports the arrival scheme stamped on req by WithScheme, for
// callers outside the middleware chain (e.g. the pipeline building the
// matcher.Request for pool selection).
func IsHTTPS(req *http.Request) bool {
	v, _ := req.Context().Value(schemeKey).(bool)
	return v
}

// Next issues the next link of the chain (another middleware, or the
// terminal upstream call) and returns its response.
type Next func(req *http.Request) (*http.Response, error)

// Middleware is one link of a pool's chain. It may inspect/modify req, call
// next, inspect/modify the returned response, and return. Returning without
// calling next short-circuits the chain with a synthetic response.
type Middleware interface {
	Handle(req *http.Request, next Next) (*http.Response, error)
}

// Chain drives descent through an ordered middleware sequence, the terminal
// link being the upstream call. Ascent is the exact reverse of descent since
// each middleware's own return path runs after the deeper links return.
type Chain struct {
	middlewares []Middleware
	terminal    Next
}

func NewChain(terminal Next, middlewares ...Middleware) *Chain {
	return &Chain{middlewares: middlewares, terminal: terminal}
}

func (c *Chain) Handle(req *http.Request) (*http.Response, error) {
	return c.dispatch(0, req)
}

func (c *Chain) dispatch(i int, req *http.Request) (*http.Response, error) {
	if i >= len(c.middlewares) {
		return c.terminal(req)
	}
	return c.middlewares[i].Handle(req, func(r *http.Request) (*http.Response, error) {
		return c.dispatch(i+1, r)
	})
}
