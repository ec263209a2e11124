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

package snapshot

import "time"

// Source is the root of the TOML backend file, decoded by viper into this
// shape before Build turns it into an immutable pipeline.Snapshot.
type Source struct {
	CheckEvery time.Duration    `mapstructure:"check_every" json:"check_every" yaml:"check_every" toml:"check_every" validate:"omitempty,min=1s"`
	Listeners  []ListenerSource `mapstructure:"listeners" json:"listeners" yaml:"listeners" toml:"listeners" validate:"required,min=1,dive"`
	Pools      []PoolSource     `mapstructure:"pools" json:"pools" yaml:"pools" toml:"pools" validate:"dive"`
	CertLocal  []LocalCert      `mapstructure:"certificates_local" json:"certificates_local" yaml:"certificates_local" toml:"certificates_local" validate:"dive"`
	CertACME   *ACMESource      `mapstructure:"certificates_acme" json:"certificates_acme" yaml:"certificates_acme" toml:"certificates_acme"`
}

// ListenerSource configures one bindable front; Build turns each into a
// listener.Config that cmd/alb wires to the TLS cert resolver and the
// pipeline.Service handler.
type ListenerSource struct {
	Name              string        `mapstructure:"name" json:"name" yaml:"name" toml:"name" validate:"required"`
	Listen            string        `mapstructure:"listen" json:"listen" yaml:"listen" toml:"listen" validate:"required,hostname_port"`
	Expose            string        `mapstructure:"expose" json:"expose" yaml:"expose" toml:"expose" validate:"omitempty,url"`
	TLS               bool          `mapstructure:"tls" json:"tls" yaml:"tls" toml:"tls"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" json:"read_timeout" yaml:"read_timeout" toml:"read_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" json:"read_header_timeout" yaml:"read_header_timeout" toml:"read_header_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" json:"write_timeout" yaml:"write_timeout" toml:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" json:"idle_timeout" yaml:"idle_timeout" toml:"idle_timeout"`

	// TLS handshake policy, applied only when TLS is set. MinVersion/
	// CurvePreferences tighten what crypto/tls negotiates; ClientAuth turns
	// this front into an mTLS listener trusting ClientCAFile.
	MinVersion       string   `mapstructure:"min_version" json:"min_version" yaml:"min_version" toml:"min_version"`
	CurvePreferences []string `mapstructure:"curve_preferences" json:"curve_preferences" yaml:"curve_preferences" toml:"curve_preferences"`
	ClientAuth       string   `mapstructure:"client_auth" json:"client_auth" yaml:"client_auth" toml:"client_auth" validate:"omitempty,oneof=none request require verify require_and_verify"`
	ClientCAFile     string   `mapstructure:"client_ca_file" json:"client_ca_file" yaml:"client_ca_file" toml:"client_ca_file" validate:"required_with=ClientAuth"`
}

type PoolSource struct {
	Name        string             `mapstructure:"name" json:"name" yaml:"name" toml:"name" validate:"required"`
	Matcher     string             `mapstructure:"matcher" json:"matcher" yaml:"matcher" toml:"matcher" validate:"required"`
	Schemes     []string           `mapstructure:"schemes" json:"schemes" yaml:"schemes" toml:"schemes"`
	Addresses   []string           `mapstructure:"addresses" json:"addresses" yaml:"addresses" toml:"addresses" validate:"required,min=1,dive,hostname_port"`
	Strategy    StrategySource     `mapstructure:"strategy" json:"strategy" yaml:"strategy" toml:"strategy"`
	Middlewares []MiddlewareSource `mapstructure:"middlewares" json:"middlewares" yaml:"middlewares" toml:"middlewares" validate:"dive"`
	Health      HealthSource       `mapstructure:"health" json:"health" yaml:"health" toml:"health"`
	Upstream    UpstreamSource     `mapstructure:"upstream" json:"upstream" yaml:"upstream" toml:"upstream"`
}

type StrategySource struct {
	Kind   string            `mapstructure:"kind" json:"kind" yaml:"kind" toml:"kind" validate:"required,oneof=round_robin random ip_hash least_connection sticky_cookie"`
	Cookie StickyCookieSource `mapstructure:"cookie" json:"cookie" yaml:"cookie" toml:"cookie"`
}

type StickyCookieSource struct {
	Name     string `mapstructure:"name" json:"name" yaml:"name" toml:"name"`
	HTTPOnly bool   `mapstructure:"http_only" json:"http_only" yaml:"http_only" toml:"http_only"`
	Secure   bool   `mapstructure:"secure" json:"secure" yaml:"secure" toml:"secure"`
	SameSite string `mapstructure:"same_site" json:"same_site" yaml:"same_site" toml:"same_site" validate:"omitempty,oneof=Strict Lax None"`
}

type MiddlewareSource struct {
	Kind          string         `mapstructure:"kind" json:"kind" yaml:"kind" toml:"kind" validate:"required,oneof=max_body_size rate_limiter https_redirector custom_error_pages compression authentication"`
	Limit         int64          `mapstructure:"limit" json:"limit" yaml:"limit" toml:"limit"`
	WindowSeconds int64          `mapstructure:"window_seconds" json:"window_seconds" yaml:"window_seconds" toml:"window_seconds"`
	Location      string         `mapstructure:"location" json:"location" yaml:"location" toml:"location"`
	Errors        []int          `mapstructure:"errors" json:"errors" yaml:"errors" toml:"errors"`
	LDAP          LDAPAuthSource `mapstructure:"ldap" json:"ldap" yaml:"ldap" toml:"ldap"`
}

type LDAPAuthSource struct {
	Address       string   `mapstructure:"address" json:"address" yaml:"address" toml:"address"`
	UserDirectory string   `mapstructure:"user_directory" json:"user_directory" yaml:"user_directory" toml:"user_directory"`
	RDNIdentifier string   `mapstructure:"rdn_identifier" json:"rdn_identifier" yaml:"rdn_identifier" toml:"rdn_identifier"`
	Recursive     bool     `mapstructure:"recursive" json:"recursive" yaml:"recursive" toml:"recursive"`
	Realm         string   `mapstructure:"realm" json:"realm" yaml:"realm" toml:"realm"`
	RequireGroups []string `mapstructure:"require_groups" json:"require_groups" yaml:"require_groups" toml:"require_groups"`
}

type HealthSource struct {
	ProbePath        string        `mapstructure:"probe_path" json:"probe_path" yaml:"probe_path" toml:"probe_path"`
	SlowThresholdMs  int64         `mapstructure:"slow_threshold_ms" json:"slow_threshold_ms" yaml:"slow_threshold_ms" toml:"slow_threshold_ms"`
	TimeoutMs        int64         `mapstructure:"timeout_ms" json:"timeout_ms" yaml:"timeout_ms" toml:"timeout_ms"`
}

type UpstreamSource struct {
	MaxIdlePerHost int               `mapstructure:"max_idle_per_host" json:"max_idle_per_host" yaml:"max_idle_per_host" toml:"max_idle_per_host"`
	IdleTimeout    time.Duration     `mapstructure:"idle_timeout" json:"idle_timeout" yaml:"idle_timeout" toml:"idle_timeout"`
	TLS            UpstreamTLSSource `mapstructure:"tls" json:"tls" yaml:"tls" toml:"tls"`
}

// UpstreamTLSSource configures the backend-facing side of a pool's TLS
// connections: trust for the backend's server certificate, an optional
// client certificate for backend mTLS, and the handshake policy.
type UpstreamTLSSource struct {
	RootCAFile     string   `mapstructure:"root_ca_file" json:"root_ca_file" yaml:"root_ca_file" toml:"root_ca_file"`
	ClientCertFile string   `mapstructure:"client_cert_file" json:"client_cert_file" yaml:"client_cert_file" toml:"client_cert_file" validate:"required_with=ClientKeyFile"`
	ClientKeyFile  string   `mapstructure:"client_key_file" json:"client_key_file" yaml:"client_key_file" toml:"client_key_file" validate:"required_with=ClientCertFile"`
	MinVersion     string   `mapstructure:"min_version" json:"min_version" yaml:"min_version" toml:"min_version"`
	MaxVersion     string   `mapstructure:"max_version" json:"max_version" yaml:"max_version" toml:"max_version"`
	CipherSuites   []string `mapstructure:"cipher_suites" json:"cipher_suites" yaml:"cipher_suites" toml:"cipher_suites"`
}

type LocalCert struct {
	Host     string `mapstructure:"host" json:"host" yaml:"host" toml:"host" validate:"required"`
	KeyFile  string `mapstructure:"key_file" json:"key_file" yaml:"key_file" toml:"key_file" validate:"required"`
	CertFile string `mapstructure:"cert_file" json:"cert_file" yaml:"cert_file" toml:"cert_file" validate:"required"`
}

type ACMESource struct {
	Directory  string `mapstructure:"directory" json:"directory" yaml:"directory" toml:"directory"`
	Email      string `mapstructure:"email" json:"email" yaml:"email" toml:"email" validate:"omitempty,email"`
	PersistDir string `mapstructure:"persist_dir" json:"persist_dir" yaml:"persist_dir" toml:"persist_dir" validate:"required_with=Directory"`
	Staging    bool   `mapstructure:"staging" json:"staging" yaml:"staging" toml:"staging"`
}
