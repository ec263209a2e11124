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
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/juju/ratelimit"
)

// RateLimiter enforces a fixed-window request count per client IP. Each
// window gets a fresh, fully-stocked bucket so the count resets sharply
// at the window boundary rather than trickling back in.
type RateLimiter struct {
	Requests int64
	Window   time.Duration

	mu      sync.Mutex
	clients map[string]*window
}

type window struct {
	bucket  *ratelimit.Bucket
	expires time.Time
}

func NewRateLimiter(requests int64, perWindow time.Duration) *RateLimiter {
	return &RateLimiter{
		Requests: requests,
		Window:   perWindow,
		clients:  make(map[string]*window),
	}
}

func (r *RateLimiter) Handle(req *http.Request, next Next) (*http.Response, error) {
	if !r.allow(clientIP(req)) {
		header := http.Header{}
		header.Set("Retry-After", formatSeconds(r.Window))
		return synthetic(req, http.StatusTooManyRequests, header, ""), nil
	}
	return next(req)
}

func (r *RateLimiter) allow(key string) bool {
	now := time.Now()

	r.mu.Lock()
	w, ok := r.clients[key]
	if !ok || now.After(w.expires) {
		// fillInterval is set far beyond Window so the bucket's own
		// continuous refill never meaningfully contributes within a
		// window; each window's allowance comes from being reborn full.
		w = &window{
			bucket:  ratelimit.NewBucket(r.Window*1000, r.Requests),
			expires: now.Add(r.Window),
		}
		r.clients[key] = w
	}
	r.mu.Unlock()

	return w.bucket.TakeAvailable(1) == 1
}

// Prune drops every client whose window has already closed. Call it
// periodically (e.g. on the same cadence as the health scheduler) so the
// table does not grow unbounded with one-shot clients.
func (r *RateLimiter) Prune() {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	for key, w := range r.clients {
		if now.After(w.expires) {
			delete(r.clients, key)
		}
	}
}

func clientIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

func formatSeconds(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}
