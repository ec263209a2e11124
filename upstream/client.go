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

package upstream

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/sabouaram/alb/certificates"
)

// Config tunes the connection pool backing a single Client. A MaxIdlePerHost
// of 0 disables pooling: every request opens and closes its own connection.
type Config struct {
	MaxIdlePerHost int
	IdleTimeout    time.Duration
	DialTimeout    time.Duration
	TLS            certificates.TLSConfig
}

func (c Config) withDefaults() Config {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 90 * time.Second
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	return c
}

// Client is the pooled HTTP client one backend pool uses to reach any of
// its addresses. It speaks HTTP/1.1 or HTTP/2 depending on what the
// destination negotiates.
type Client struct {
	http *http.Client
}

// New builds a Client from cfg. Call Close when the owning pool is removed
// by a reload so idle connections are released immediately.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()

	var tlsConfig *tls.Config
	if cfg.TLS != nil {
		tlsConfig = cfg.TLS.TlsConfig("")
	}

	transport := &http.Transport{
		Proxy: nil,
		DialContext: (&net.Dialer{
			Timeout: cfg.DialTimeout,
		}).DialContext,
		MaxIdleConns:          0,
		MaxIdleConnsPerHost:   cfg.MaxIdlePerHost,
		MaxConnsPerHost:       0,
		IdleConnTimeout:       cfg.IdleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig:       tlsConfig,
		DisableKeepAlives:     cfg.MaxIdlePerHost == 0,
	}

	// best effort: backends that don't speak h2c/ALPN simply stay on HTTP/1.1
	_ = http2.ConfigureTransport(transport)

	return &Client{http: &http.Client{Transport: transport}}
}

// Do issues req against the upstream and returns its response unmodified.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ErrorUpstreamRequest.Error(err)
	}
	return resp, nil
}

// Close releases all idle connections held by the client. In-flight
// requests already issued are unaffected and finish naturally.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}
