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

package strategy

import (
	"net/http"

	liberr "github.com/sabouaram/alb/errors"
	"github.com/sabouaram/alb/matcher"
)

// Response is the mutable view of the final response a PostProcessor may
// adjust (e.g. StickyCookie's Set-Cookie) before it is written to the
// client. A PostProcessor always runs, including when the upstream call
// failed; Failed distinguishes that case so LeastConnection still decrements.
type Response struct {
	StatusCode int
	Header     http.Header
	Failed     bool
}

// PostProcessor is invoked once the response (or the upstream failure) is
// known, in strategy-chosen order relative to the middleware chain's ascent.
type PostProcessor func(resp *Response)

// Strategy picks one address from the healthy-filtered candidates for a
// request. Implementations own their per-pool state; a Strategy instance's
// lifetime matches its pool's.
type Strategy interface {
	// Pick returns the chosen address and an optional post-processor. addresses
	// is never empty; callers must filter before calling Pick.
	Pick(addresses []string, req matcher.Request) (address string, post PostProcessor, err liberr.Error)
}
