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

package matcher

import (
	"net/http"
	"net/url"
)

// Scheme identifies the protocol a request arrived on.
type Scheme uint8

const (
	SchemeHTTP Scheme = iota
	SchemeHTTPS
)

func (s Scheme) String() string {
	if s == SchemeHTTPS {
		return "HTTPS"
	}
	return "HTTP"
}

// Request is the immutable view of an inbound request that matchers,
// strategies and middlewares evaluate against. It is built once per request
// by the main service from the underlying *http.Request and never mutated
// by a matcher; middlewares that need to change the outgoing request build a
// new *http.Request and wrap it, they do not mutate this view's fields.
type Request struct {
	Method     string
	Scheme     Scheme
	Host       string
	Path       string
	Query      url.Values
	Header     http.Header
	RemoteAddr string

	Raw *http.Request
}

// FromHTTP builds a Request view from a standard library request. scheme is
// supplied by the listener since *http.Request carries no TLS flag of its
// own for incoming server requests beyond a nil TLS field.
func FromHTTP(r *http.Request, scheme Scheme) Request {
	return Request{
		Method:     r.Method,
		Scheme:     scheme,
		Host:       r.Host,
		Path:       r.URL.Path,
		Query:      r.URL.Query(),
		Header:     r.Header,
		RemoteAddr: r.RemoteAddr,
		Raw:        r,
	}
}

func (r Request) QueryHas(key, value string) bool {
	for _, v := range r.Query[key] {
		if v == value {
			return true
		}
	}
	return false
}

func hostOnly(host string) string {
	for i := 0; i < len(host); i++ {
		if host[i] == ':' {
			return host[:i]
		}
		if host[i] == '[' {
			for j := i + 1; j < len(host); j++ {
				if host[j] == ']' {
					return host[i+1 : j]
				}
			}
		}
	}
	return host
}
