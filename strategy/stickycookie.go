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
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/google/uuid"

	liberr "github.com/sabouaram/alb/errors"
	"github.com/sabouaram/alb/matcher"
)

// SameSite mirrors the TOML-friendly values accepted in the config file.
type SameSite string

const (
	SameSiteStrict SameSite = "Strict"
	SameSiteLax    SameSite = "Lax"
	SameSiteNone   SameSite = "None"
)

func (s SameSite) http() http.SameSite {
	switch s {
	case SameSiteStrict:
		return http.SameSiteStrictMode
	case SameSiteNone:
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

type StickyCookieConfig struct {
	CookieName string
	HTTPOnly   bool
	Secure     bool
	SameSite   SameSite
}

// stickyCookie has no server-side state of its own; the binding lives
// entirely in the client-held cookie. It delegates to Inner whenever the
// cookie is absent, malformed, or names an address no longer in the
// filtered candidate list. The token is salted with a per-instance random
// value so a cookie minted by one process incarnation never decodes
// against another, and a client cannot simply guess one for an address it
// was never assigned.
type stickyCookie struct {
	cfg   StickyCookieConfig
	inner Strategy
	salt  string
}

func NewStickyCookie(cfg StickyCookieConfig, inner Strategy) Strategy {
	return &stickyCookie{cfg: cfg, inner: inner, salt: uuid.NewString()}
}

func (s *stickyCookie) encodeAddress(address string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s.salt + "|" + address))
}

func (s *stickyCookie) decodeAddress(token string) (string, bool) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", false
	}
	prefix := s.salt + "|"
	if !strings.HasPrefix(string(b), prefix) {
		return "", false
	}
	return strings.TrimPrefix(string(b), prefix), true
}

func (s *stickyCookie) Pick(addresses []string, req matcher.Request) (string, PostProcessor, liberr.Error) {
	if len(addresses) == 0 {
		return "", nil, ErrorNoAddress.Error(nil)
	}

	if req.Raw != nil {
		if c, err := req.Raw.Cookie(s.cfg.CookieName); err == nil {
			if address, ok := s.decodeAddress(c.Value); ok && containsString(addresses, address) {
				return address, nil, nil
			}
		}
	}

	chosen, innerPost, e := s.inner.Pick(addresses, req)
	if e != nil {
		return "", nil, e
	}

	cfg := s.cfg
	post := func(resp *Response) {
		if innerPost != nil {
			innerPost(resp)
		}
		if resp == nil {
			return
		}
		cookie := &http.Cookie{
			Name:     cfg.CookieName,
			Value:    s.encodeAddress(chosen),
			HttpOnly: cfg.HTTPOnly,
			Secure:   cfg.Secure,
			SameSite: cfg.SameSite.http(),
			Path:     "/",
		}
		if resp.Header == nil {
			resp.Header = http.Header{}
		}
		resp.Header.Add("Set-Cookie", cookie.String())
	}

	return chosen, post, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
