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

// Package listener accepts TCP connections for the plaintext and TLS fronts,
// optionally resolving a per-connection certificate by SNI, and hands the
// negotiated stream to the HTTP/1.1 or HTTP/2 server talking to the main
// service handler.
package listener

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	tlsaut "github.com/sabouaram/alb/certificates/auth"
	tlscas "github.com/sabouaram/alb/certificates/ca"
	tlscrv "github.com/sabouaram/alb/certificates/curves"
	tlsvrs "github.com/sabouaram/alb/certificates/tlsversion"
	liberr "github.com/sabouaram/alb/errors"
)

// Config describes one bindable front (plaintext or TLS) of the load balancer.
type Config struct {
	getParentContext func() context.Context
	getCertificate   func(*tls.ClientHelloInfo) (*tls.Certificate, error)

	// Name identifies this listener in logs and metrics.
	Name string `mapstructure:"name" json:"name" yaml:"name" toml:"name" validate:"required"`

	// Listen is the local bind address (host:port).
	Listen string `mapstructure:"listen" json:"listen" yaml:"listen" toml:"listen" validate:"required,hostname_port"`

	// Expose is the externally reachable URL for this listener, as returned
	// by GetExpose; when empty, GetExpose derives it from TLS and Listen.
	Expose string `mapstructure:"expose" json:"expose" yaml:"expose" toml:"expose" validate:"omitempty,url"`

	// TLS enables SNI-based termination on this listener. When false, the
	// listener serves plaintext HTTP/1.1 and h2c is not offered.
	TLS bool `mapstructure:"tls" json:"tls" yaml:"tls" toml:"tls"`

	ReadTimeout       time.Duration `mapstructure:"read_timeout" json:"read_timeout" yaml:"read_timeout" toml:"read_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" json:"read_header_timeout" yaml:"read_header_timeout" toml:"read_header_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" json:"write_timeout" yaml:"write_timeout" toml:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" json:"idle_timeout" yaml:"idle_timeout" toml:"idle_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes" json:"max_header_bytes" yaml:"max_header_bytes" toml:"max_header_bytes"`

	// MaxConcurrentStreams bounds HTTP/2 streams per connection; zero uses the
	// golang.org/x/net/http2 default (250).
	MaxConcurrentStreams uint32 `mapstructure:"max_concurrent_streams" json:"max_concurrent_streams" yaml:"max_concurrent_streams" toml:"max_concurrent_streams"`

	// MinVersion floors the negotiated TLS version; an unparseable or empty
	// value keeps the TLS 1.2 floor.
	MinVersion string `mapstructure:"min_version" json:"min_version" yaml:"min_version" toml:"min_version"`

	// CurvePreferences orders the elliptic curves offered during the
	// handshake. Empty keeps the crypto/tls default set.
	CurvePreferences []string `mapstructure:"curve_preferences" json:"curve_preferences" yaml:"curve_preferences" toml:"curve_preferences"`

	// ClientAuth is the mTLS policy applied to this listener: "none",
	// "request", "require", "verify" or "require_and_verify". Empty means no
	// client certificate is requested.
	ClientAuth string `mapstructure:"client_auth" json:"client_auth" yaml:"client_auth" toml:"client_auth" validate:"omitempty,oneof=none request require verify require_and_verify"`

	// ClientCAFile is the PEM bundle trusted to sign client certificates when
	// ClientAuth requests or requires one.
	ClientCAFile string `mapstructure:"client_ca_file" json:"client_ca_file" yaml:"client_ca_file" toml:"client_ca_file" validate:"required_with=ClientAuth"`
}

func (c *Config) SetParentContext(f func() context.Context) {
	c.getParentContext = f
}

// SetCertResolver wires the SNI certificate lookup used for TLS listeners.
func (c *Config) SetCertResolver(f func(*tls.ClientHelloInfo) (*tls.Certificate, error)) {
	c.getCertificate = f
}

func (c Config) getContext() context.Context {
	if c.getParentContext != nil {
		if ctx := c.getParentContext(); ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

func (c Config) GetExpose() *url.URL {
	if c.Expose != "" {
		if u, err := url.Parse(c.Expose); err == nil {
			return u
		}
	}

	scheme := "http"
	if c.TLS {
		scheme = "https"
	}

	return &url.URL{Scheme: scheme, Host: c.Listen}
}

func (c Config) Validate() liberr.Error {
	val := validator.New()
	err := val.Struct(c)

	if err == nil {
		return nil
	}

	if e, ok := err.(*validator.InvalidValidationError); ok {
		return ErrorListenerValidate.Error(e)
	}

	out := ErrorListenerValidate.Error(nil)

	for _, e := range err.(validator.ValidationErrors) {
		//nolint goerr113
		out.Add(fmt.Errorf("config field '%s' is not validated by constraint '%s'", e.Field(), e.ActualTag()))
	}

	if out.HasParent() {
		return out
	}

	return nil
}

// tlsOverlay builds the handshake-policy knobs layered onto the per-SNI
// certificate lookup: minimum version, curve preference order, and the
// client-certificate (mTLS) requirement. It is applied on top of the
// tls.Config built from getCertificate.
func (c Config) tlsOverlay() (minVersion uint16, curves []tls.CurveID, clientAuth tls.ClientAuthType, clientCAs *x509.CertPool, err liberr.Error) {
	minVersion = tls.VersionTLS12
	if v := tlsvrs.Parse(c.MinVersion); v != tlsvrs.VersionUnknown {
		minVersion = uint16(v)
	}

	for _, name := range c.CurvePreferences {
		if cv := tlscrv.Parse(name); cv != 0 {
			curves = append(curves, tls.CurveID(cv))
		}
	}

	if c.ClientAuth == "" {
		return minVersion, curves, tls.NoClientCert, nil, nil
	}
	clientAuth = tlsaut.Parse(c.ClientAuth).TLS()

	pem, rerr := os.ReadFile(c.ClientCAFile)
	if rerr != nil {
		return minVersion, curves, clientAuth, nil, ErrorClientCA.Error(rerr)
	}
	ca, perr := tlscas.Parse(string(pem))
	if perr != nil {
		return minVersion, curves, clientAuth, nil, ErrorClientCA.Error(perr)
	}

	clientCAs = x509.NewCertPool()
	ca.AppendPool(clientCAs)

	return minVersion, curves, clientAuth, clientCAs, nil
}

// portInUse dials the listen address to detect a lingering bind from a prior
// instance of this process during a fast restart.
func portInUse(addr string) bool {
	dia := net.Dialer{Timeout: 2 * time.Second}
	con, err := dia.Dial("tcp", addr)
	if err != nil {
		return false
	}
	_ = con.Close()
	return true
}
