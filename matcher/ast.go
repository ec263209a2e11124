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

package matcher

import (
	"regexp"
	"strings"
)

// Expr is a node of the compiled matcher tree. Every node owns its children;
// there are no shared nodes and no cycles.
type Expr interface {
	Eval(r Request) bool
	String() string
}

type andNode struct{ children []Expr }

func (n *andNode) Eval(r Request) bool {
	for _, c := range n.children {
		if !c.Eval(r) {
			return false
		}
	}
	return true
}

func (n *andNode) String() string {
	return joinNodes(n.children, " && ")
}

type orNode struct{ children []Expr }

func (n *orNode) Eval(r Request) bool {
	for _, c := range n.children {
		if c.Eval(r) {
			return true
		}
	}
	return false
}

func (n *orNode) String() string {
	return joinNodes(n.children, " || ")
}

func joinNodes(nodes []Expr, sep string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, sep)
}

type hostNode struct{ host string }

func (n *hostNode) Eval(r Request) bool {
	return strings.EqualFold(hostOnly(r.Host), n.host)
}

func (n *hostNode) String() string { return "Host('" + n.host + "')" }

type hostRegexpNode struct {
	raw string
	re  *regexp.Regexp
}

func (n *hostRegexpNode) Eval(r Request) bool {
	return n.re.MatchString(hostOnly(r.Host))
}

func (n *hostRegexpNode) String() string { return "HostRegexp('" + n.raw + "')" }

type methodNode struct{ method string }

func (n *methodNode) Eval(r Request) bool { return r.Method == n.method }

func (n *methodNode) String() string { return "Method('" + n.method + "')" }

type pathNode struct{ path string }

func (n *pathNode) Eval(r Request) bool { return r.Path == n.path }

func (n *pathNode) String() string { return "Path('" + n.path + "')" }

type pathRegexpNode struct {
	raw string
	re  *regexp.Regexp
}

func (n *pathRegexpNode) Eval(r Request) bool { return n.re.MatchString(r.Path) }

func (n *pathRegexpNode) String() string { return "PathRegexp('" + n.raw + "')" }

type queryNode struct{ key, value string }

func (n *queryNode) Eval(r Request) bool { return r.QueryHas(n.key, n.value) }

func (n *queryNode) String() string { return "Query('" + n.key + "','" + n.value + "')" }
