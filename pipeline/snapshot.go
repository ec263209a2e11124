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

package pipeline

import (
	"github.com/sabouaram/alb/certresolver"
	"github.com/sabouaram/alb/matcher"
	"github.com/sabouaram/alb/middleware"
)

// Snapshot is an immutable grouping of the pool list (in declaration
// order) and the certificate resolver. A
// reload builds a new Snapshot and installs it atomically; in-flight
// requests keep running against the Snapshot they started with.
type Snapshot struct {
	Pools       []*Pool
	CertResolve certresolver.Resolver
}

// SelectPool walks pools in declaration order, choosing the first whose
// matcher evaluates true and whose scheme set accepts req's scheme. A
// matcher hit with a scheme rejection is not a match and search continues.
func (s *Snapshot) SelectPool(req matcher.Request) (*Pool, error) {
	if s == nil {
		return nil, ErrorNoPoolMatched.Error(nil)
	}

	for _, pool := range s.Pools {
		if pool.Matcher == nil || !pool.Matcher.Eval(req) {
			continue
		}
		if !pool.acceptsScheme(req.Scheme) {
			continue
		}
		return pool, nil
	}

	return nil, ErrorNoPoolMatched.Error(nil)
}

// PruneRateLimiters walks every pool's middleware chain and prunes the
// client tables of any middleware.RateLimiter found, so reload does not leave
// the previous snapshot's limiter tables growing forever unattended.
func (s *Snapshot) PruneRateLimiters() {
	if s == nil {
		return
	}
	for _, pool := range s.Pools {
		for _, mw := range pool.Middlewares {
			if rl, ok := mw.(*middleware.RateLimiter); ok {
				rl.Prune()
			}
		}
	}
}
