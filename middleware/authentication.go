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

package middleware

import (
	"net/http"
	"strings"

	"github.com/sabouaram/alb/ldap"
)

// Authentication gates a pool behind HTTP Basic auth, binding the
// submitted credentials against an LDAP directory. It never retains the
// password: each request binds and closes its own connection.
//
// UserDirectory and RDNIdentifier compose the bind DN as
// "<RDNIdentifier>=<user>,<UserDirectory>". When Recursive is set, the
// user's DN is instead resolved by a subtree search (using LDAP's own
// configured service credentials) before binding with the submitted
// password.
//
// When RequireGroups is non-empty, a successful bind is not enough: the
// user must also be a member of at least one of the listed groups, checked
// with a second directory search over the bound connection.
type Authentication struct {
	Realm         string
	UserDirectory string
	RDNIdentifier string
	Recursive     bool
	RequireGroups []string
	LDAP          *ldap.HelperLDAP
}

func (a Authentication) Handle(req *http.Request, next Next) (*http.Response, error) {
	username, password, ok := req.BasicAuth()
	if !ok || !a.bind(username, password) || !a.authorize(username) {
		return synthetic(req, http.StatusUnauthorized, a.challenge(), ""), nil
	}
	return next(req)
}

func (a Authentication) authorize(username string) bool {
	if len(a.RequireGroups) == 0 {
		return true
	}

	conn := a.LDAP.Clone()
	defer conn.Close()

	ok, err := conn.UserIsInGroup(username, a.RequireGroups)
	return err == nil && ok
}

func (a Authentication) bind(username, password string) bool {
	if username == "" || password == "" {
		return false
	}

	dn, ok := a.resolveDN(username)
	if !ok {
		return false
	}

	conn := a.LDAP.Clone()
	defer conn.Close()

	return conn.AuthUser(dn, password) == nil
}

func (a Authentication) resolveDN(username string) (string, bool) {
	if !a.Recursive {
		return a.rdnIdentifier() + "=" + escapeRDNValue(username) + "," + a.UserDirectory, true
	}

	info, err := a.LDAP.UserInfoByField(username, a.rdnIdentifier())
	if err != nil {
		return "", false
	}

	dn, ok := info["DN"]
	if !ok || dn == "" {
		return "", false
	}
	return dn, true
}

func (a Authentication) rdnIdentifier() string {
	if a.RDNIdentifier == "" {
		return "uid"
	}
	return a.RDNIdentifier
}

func escapeRDNValue(v string) string {
	r := strings.NewReplacer(",", `\,`, "+", `\+`, `"`, `\"`, "\\", `\\`, "<", `\<`, ">", `\>`, ";", `\;`)
	return r.Replace(v)
}

func (a Authentication) challenge() http.Header {
	realm := a.Realm
	if realm == "" {
		realm = "restricted"
	}
	header := http.Header{}
	header.Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
	return header
}
