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

import (
	"context"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sabouaram/alb/certificates"
	tlscas "github.com/sabouaram/alb/certificates/ca"
	tlscrt "github.com/sabouaram/alb/certificates/certs"
	tlscpr "github.com/sabouaram/alb/certificates/cipher"
	tlsvrs "github.com/sabouaram/alb/certificates/tlsversion"
	"github.com/sabouaram/alb/certresolver"
	"github.com/sabouaram/alb/health"
	"github.com/sabouaram/alb/ldap"
	"github.com/sabouaram/alb/listener"
	liblog "github.com/sabouaram/alb/logger"
	"github.com/sabouaram/alb/matcher"
	"github.com/sabouaram/alb/middleware"
	"github.com/sabouaram/alb/pipeline"
	"github.com/sabouaram/alb/strategy"
	"github.com/sabouaram/alb/upstream"
)

// Build compiles src into a Snapshot against registry, which the caller
// owns across reloads so in-flight health state survives a reconfigure.
// Pools whose matcher fails to parse are skipped (logged, not fatal); the
// rest of the configuration stands.
func Build(src *Source, log liblog.FuncLog, registry *health.Registry) (*pipeline.Snapshot, error) {
	pools := make([]*pipeline.Pool, 0, len(src.Pools))
	for _, ps := range src.Pools {
		pool, err := buildPool(ps, registry)
		if err != nil {
			logSkip(log, ps.Name, err)
			continue
		}
		pools = append(pools, pool)
	}

	resolver, err := buildCertResolver(src)
	if err != nil {
		return nil, err
	}

	return &pipeline.Snapshot{Pools: pools, CertResolve: resolver}, nil
}

func logSkip(log liblog.FuncLog, pool string, err error) {
	if log == nil {
		return
	}
	if lg := log(); lg != nil {
		lg.Error("pool rejected: "+err.Error(), "pool", pool)
	}
}

func buildPool(ps PoolSource, registry *health.Registry) (*pipeline.Pool, error) {
	expr, perr := matcher.Parse(ps.Matcher)
	if perr != nil {
		return nil, ErrorMatcherInvalid.Error(perr)
	}

	for _, addr := range ps.Addresses {
		registry.Ensure(addr)
	}

	strat, serr := buildStrategy(ps.Strategy)
	if serr != nil {
		return nil, serr
	}

	middlewares, merr := buildMiddlewares(ps.Middlewares)
	if merr != nil {
		return nil, merr
	}

	tlsConfig, terr := buildUpstreamTLS(ps.Upstream.TLS)
	if terr != nil {
		return nil, terr
	}

	client := upstream.New(upstream.Config{
		MaxIdlePerHost: ps.Upstream.MaxIdlePerHost,
		IdleTimeout:    ps.Upstream.IdleTimeout,
		TLS:            tlsConfig,
	})

	return &pipeline.Pool{
		Name:        ps.Name,
		Matcher:     expr,
		Schemes:     buildSchemes(ps.Schemes),
		Addresses:   ps.Addresses,
		Strategy:    strat,
		Middlewares: middlewares,
		Client:      client,
		Health:      registry,
	}, nil
}

func buildSchemes(names []string) map[matcher.Scheme]bool {
	if len(names) == 0 {
		return nil
	}
	out := make(map[matcher.Scheme]bool, len(names))
	for _, n := range names {
		switch strings.ToUpper(n) {
		case "HTTP":
			out[matcher.SchemeHTTP] = true
		case "HTTPS":
			out[matcher.SchemeHTTPS] = true
		}
	}
	return out
}

func buildStrategy(s StrategySource) (strategy.Strategy, error) {
	switch s.Kind {
	case "random":
		return strategy.NewRandom(), nil
	case "ip_hash":
		return strategy.NewIPHash(), nil
	case "least_connection":
		return strategy.NewLeastConnection(), nil
	case "sticky_cookie":
		cfg := strategy.StickyCookieConfig{
			CookieName: s.Cookie.Name,
			HTTPOnly:   s.Cookie.HTTPOnly,
			Secure:     s.Cookie.Secure,
			SameSite:   sameSiteOf(s.Cookie.SameSite),
		}
		return strategy.NewStickyCookie(cfg, strategy.NewRoundRobin()), nil
	default:
		return strategy.NewRoundRobin(), nil
	}
}

func sameSiteOf(v string) strategy.SameSite {
	switch v {
	case "Strict":
		return strategy.SameSiteStrict
	case "None":
		return strategy.SameSiteNone
	default:
		return strategy.SameSiteLax
	}
}

func buildMiddlewares(sources []MiddlewareSource) ([]middleware.Middleware, error) {
	out := make([]middleware.Middleware, 0, len(sources))
	for _, ms := range sources {
		mw, err := buildMiddleware(ms)
		if err != nil {
			return nil, err
		}
		out = append(out, mw)
	}
	return out, nil
}

func buildMiddleware(ms MiddlewareSource) (middleware.Middleware, error) {
	switch ms.Kind {
	case "max_body_size":
		return middleware.MaxBodySize{Limit: ms.Limit}, nil
	case "rate_limiter":
		return middleware.NewRateLimiter(ms.Limit, time.Duration(ms.WindowSeconds)*time.Second), nil
	case "https_redirector":
		return middleware.HttpsRedirector{}, nil
	case "custom_error_pages":
		return middleware.NewCustomErrorPages(errorPageFiles(ms))
	case "compression":
		return middleware.Compression{}, nil
	case "authentication":
		return buildAuthentication(ms)
	default:
		return nil, ErrorConfigValidate.Error(nil)
	}
}

func errorPageFiles(ms MiddlewareSource) map[int]string {
	files := make(map[int]string, len(ms.Errors))
	for _, code := range ms.Errors {
		files[code] = ms.Location + "/" + strconv.Itoa(code) + ".html"
	}
	return files
}

func buildAuthentication(ms MiddlewareSource) (middleware.Middleware, error) {
	host, port, err := net.SplitHostPort(ms.LDAP.Address)
	if err != nil {
		return nil, ErrorConfigValidate.Error(err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, ErrorConfigValidate.Error(err)
	}

	cnf := ldap.NewConfig()
	cnf.Uri = host
	cnf.PortLdap = portNum
	cnf.Basedn = ms.LDAP.UserDirectory
	cnf.FilterUser = "(%s=%s)"
	cnf.FilterGroup = "(&(objectClass=groupOfNames)(%s=%s))"

	helper, lerr := ldap.NewLDAP(context.Background(), cnf, ldap.GetDefaultAttributes())
	if lerr != nil {
		return nil, lerr
	}

	return middleware.Authentication{
		Realm:         ms.LDAP.Realm,
		UserDirectory: ms.LDAP.UserDirectory,
		RDNIdentifier: ms.LDAP.RDNIdentifier,
		Recursive:     ms.LDAP.Recursive,
		RequireGroups: ms.LDAP.RequireGroups,
		LDAP:          helper,
	}, nil
}

// buildUpstreamTLS turns ts into a certificates.TLSConfig trusted by the
// pool's Client when dialing its backends. It returns nil, nil when ts is
// entirely empty so plain HTTP/HTTPS upstream dialing keeps using the
// platform's default trust store.
func buildUpstreamTLS(ts UpstreamTLSSource) (certificates.TLSConfig, error) {
	if ts.RootCAFile == "" && ts.ClientCertFile == "" && ts.ClientKeyFile == "" {
		return nil, nil
	}

	cnf := &certificates.Config{
		VersionMin: tlsvrs.Parse(ts.MinVersion),
		VersionMax: tlsvrs.Parse(ts.MaxVersion),
	}

	for _, name := range ts.CipherSuites {
		if c := tlscpr.Parse(name); tlscpr.Check(c.Uint16()) {
			cnf.CipherList = append(cnf.CipherList, c)
		}
	}

	if ts.RootCAFile != "" {
		pem, err := os.ReadFile(ts.RootCAFile)
		if err != nil {
			return nil, ErrorConfigValidate.Error(err)
		}
		ca, err := tlscas.Parse(string(pem))
		if err != nil {
			return nil, ErrorConfigValidate.Error(err)
		}
		cnf.RootCA = append(cnf.RootCA, ca)
	}

	if ts.ClientCertFile != "" {
		keyPEM, err := os.ReadFile(ts.ClientKeyFile)
		if err != nil {
			return nil, ErrorConfigValidate.Error(err)
		}
		certPEM, err := os.ReadFile(ts.ClientCertFile)
		if err != nil {
			return nil, ErrorConfigValidate.Error(err)
		}
		pair, err := tlscrt.ParsePair(string(keyPEM), string(certPEM))
		if err != nil {
			return nil, ErrorConfigValidate.Error(err)
		}
		certif, ok := pair.(*tlscrt.Certif)
		if !ok {
			return nil, ErrorConfigValidate.Error(nil)
		}
		cnf.Certs = append(cnf.Certs, *certif)
	}

	return cnf.New(), nil
}

// Targets flattens src's pools into the probe list a health.Scheduler
// walks on every tick.
func Targets(src *Source) []health.Target {
	var out []health.Target
	for _, ps := range src.Pools {
		for _, addr := range ps.Addresses {
			out = append(out, health.Target{
				Pool:            ps.Name,
				Address:         addr,
				ProbePath:       ps.Health.ProbePath,
				TimeoutMs:       int(ps.Health.TimeoutMs),
				SlowThresholdMs: int(ps.Health.SlowThresholdMs),
			})
		}
	}
	return out
}

// BuildListeners turns src's listener declarations into listener.Config
// values, wiring resolve as the SNI certificate lookup on every TLS-enabled
// entry. cmd/alb owns the resulting listener.Listener lifecycle.
func BuildListeners(src *Source, resolve certresolver.Resolver) []listener.Config {
	out := make([]listener.Config, 0, len(src.Listeners))
	for _, ls := range src.Listeners {
		cfg := listener.Config{
			Name:              ls.Name,
			Listen:            ls.Listen,
			Expose:            ls.Expose,
			TLS:               ls.TLS,
			ReadTimeout:       ls.ReadTimeout,
			ReadHeaderTimeout: ls.ReadHeaderTimeout,
			WriteTimeout:      ls.WriteTimeout,
			IdleTimeout:       ls.IdleTimeout,
			MinVersion:        ls.MinVersion,
			CurvePreferences:  ls.CurvePreferences,
			ClientAuth:        ls.ClientAuth,
			ClientCAFile:      ls.ClientCAFile,
		}
		if ls.TLS && resolve != nil {
			cfg.SetCertResolver(certresolver.GetCertificate(resolve))
		}
		out = append(out, cfg)
	}
	return out
}

func buildCertResolver(src *Source) (certresolver.Resolver, error) {
	var chain certresolver.Chain

	if len(src.CertLocal) > 0 {
		pairs := make(map[string]certresolver.Pair, len(src.CertLocal))
		for _, c := range src.CertLocal {
			pairs[c.Host] = certresolver.Pair{KeyFile: c.KeyFile, CertFile: c.CertFile}
		}
		local, err := certresolver.NewLocal(pairs)
		if err != nil {
			return nil, err
		}
		chain = append(chain, local)
	}

	if src.CertACME != nil && src.CertACME.Directory != "" {
		directory := src.CertACME.Directory
		if src.CertACME.Staging {
			directory = certresolver.LetsEncryptStaging
		}
		solver := certresolver.NewHTTP01Solver()
		chain = append(chain, certresolver.NewACME(directory, src.CertACME.Email, src.CertACME.PersistDir, solver))
	}

	return chain, nil
}
