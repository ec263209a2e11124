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
	"hash/fnv"
	"net"

	liberr "github.com/sabouaram/alb/errors"
	"github.com/sabouaram/alb/matcher"
)

// ipHash is stateless; the same client address always hashes to the same
// index for a given candidate count, which is stable for the snapshot's
// lifetime since the candidate list only changes across a reload.
type ipHash struct{}

func NewIPHash() Strategy {
	return &ipHash{}
}

func (s *ipHash) Pick(addresses []string, req matcher.Request) (string, PostProcessor, liberr.Error) {
	if len(addresses) == 0 {
		return "", nil, ErrorNoAddress.Error(nil)
	}

	host := req.RemoteAddr
	if h, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
		host = h
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(host))

	return addresses[h.Sum32()%uint32(len(addresses))], nil, nil
}
