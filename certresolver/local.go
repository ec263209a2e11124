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

package certresolver

import (
	"crypto/tls"
	"os"

	tlscrt "github.com/sabouaram/alb/certificates/certs"
)

// Local resolves SNI hostnames to certificates loaded eagerly at startup
// from key/certificate pairs on disk.
type Local struct {
	byHost map[string]*tls.Certificate
}

// Pair names the on-disk PEM files for one SNI hostname's certificate.
type Pair struct {
	KeyFile  string
	CertFile string
}

// NewLocal reads and parses each pair in pairs (keyed by SNI hostname) and
// loads the resulting certificate into memory.
func NewLocal(pairs map[string]Pair) (*Local, error) {
	byHost := make(map[string]*tls.Certificate, len(pairs))

	for host, pair := range pairs {
		keyPEM, err := os.ReadFile(pair.KeyFile)
		if err != nil {
			return nil, err
		}
		certPEM, err := os.ReadFile(pair.CertFile)
		if err != nil {
			return nil, err
		}

		crt, err := tlscrt.ParsePair(string(keyPEM), string(certPEM))
		if err != nil {
			return nil, err
		}
		tlsCert := crt.TLS()
		byHost[normalizeHost(host)] = &tlsCert
	}

	return &Local{byHost: byHost}, nil
}

func (l *Local) Resolve(sni string) (*tls.Certificate, error) {
	if cert, ok := l.byHost[normalizeHost(sni)]; ok {
		return cert, nil
	}
	return nil, ErrorCertNotFound.Error(nil)
}
