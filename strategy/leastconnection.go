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
	"math/rand"
	"sync"
	"sync/atomic"

	liberr "github.com/sabouaram/alb/errors"
	"github.com/sabouaram/alb/matcher"
)

// leastConnection keeps one outstanding-request counter per address. Counts
// only ever return to 0 once every in-flight request handed out by Pick has
// run its post-processor, including on failure or client cancellation.
type leastConnection struct {
	mu     sync.Mutex
	counts map[string]*atomic.Int64
}

func NewLeastConnection() Strategy {
	return &leastConnection{counts: make(map[string]*atomic.Int64)}
}

func (s *leastConnection) counter(address string) *atomic.Int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counts[address]
	if !ok {
		c = &atomic.Int64{}
		s.counts[address] = c
	}
	return c
}

func (s *leastConnection) Pick(addresses []string, _ matcher.Request) (string, PostProcessor, liberr.Error) {
	if len(addresses) == 0 {
		return "", nil, ErrorNoAddress.Error(nil)
	}

	// Choose-then-increment is not atomic as a whole: two concurrent Picks may
	// both read the same minimum and both increment it. The strategy trades
	// strict minimality for avoiding a pool-wide lock on the hot path.
	min := int64(-1)
	minima := make([]string, 0, len(addresses))

	for _, a := range addresses {
		load := s.counter(a).Load()
		switch {
		case min < 0 || load < min:
			min = load
			minima = minima[:0]
			minima = append(minima, a)
		case load == min:
			minima = append(minima, a)
		}
	}

	chosen := minima[0]
	if len(minima) > 1 {
		chosen = minima[rand.Intn(len(minima))]
	}

	counter := s.counter(chosen)
	counter.Add(1)

	var once sync.Once
	post := func(_ *Response) {
		once.Do(func() { counter.Add(-1) })
	}

	return chosen, post, nil
}
