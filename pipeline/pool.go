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
	"github.com/sabouaram/alb/health"
	"github.com/sabouaram/alb/matcher"
	"github.com/sabouaram/alb/middleware"
	"github.com/sabouaram/alb/strategy"
	"github.com/sabouaram/alb/upstream"
)

// Pool is one named, immutable routing target within a Snapshot: a
// matcher, the schemes it accepts, the addresses it may dispatch to, the
// strategy choosing among them, the middleware chain wrapping the call,
// and the upstream client issuing it.
type Pool struct {
	Name        string
	Matcher     matcher.Expr
	Schemes     map[matcher.Scheme]bool
	Addresses   []string
	Strategy    strategy.Strategy
	Middlewares []middleware.Middleware
	Client      *upstream.Client
	Health      *health.Registry
}

func (p *Pool) acceptsScheme(s matcher.Scheme) bool {
	if len(p.Schemes) == 0 {
		return true
	}
	return p.Schemes[s]
}

func (p *Pool) healthyAddresses() []string {
	if p.Health == nil {
		return p.Addresses
	}
	return p.Health.Filter(p.Addresses)
}
