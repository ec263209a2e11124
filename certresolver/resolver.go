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
	"strings"
)

// Resolver looks up the certificate to present for a SNI hostname.
type Resolver interface {
	Resolve(sni string) (*tls.Certificate, error)
}

// GetCertificate adapts r to the shape tls.Config.GetCertificate expects.
func GetCertificate(r Resolver) func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return func(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
		return r.Resolve(hello.ServerName)
	}
}

// Chain tries each resolver in order and returns the first hit.
type Chain []Resolver

func (c Chain) Resolve(sni string) (*tls.Certificate, error) {
	var lastErr error
	for _, r := range c {
		cert, err := r.Resolve(sni)
		if err == nil {
			return cert, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ErrorCertNotFound.Error(nil)
	}
	return nil, lastErr
}

func normalizeHost(sni string) string {
	return strings.ToLower(strings.TrimSuffix(sni, "."))
}
