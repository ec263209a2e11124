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
	"fmt"
	"regexp"

	liberr "github.com/sabouaram/alb/errors"
)

// names recognized by the call production, per the grammar.
var callArgCount = map[string]int{
	"Host":       1,
	"HostRegexp": 1,
	"Method":     1,
	"Path":       1,
	"PathRegexp": 1,
	"Query":      2,
}

type parser struct {
	lex *lexer
	tok token
}

// Parse compiles a matcher expression string into an Expr tree.
func Parse(s string) (Expr, liberr.Error) {
	p := &parser{lex: newLexer(s)}
	if e := p.advance(); e != nil {
		return nil, e
	}

	expr, e := p.parseExpr()
	if e != nil {
		return nil, e
	}

	if p.tok.kind != tokEOF {
		//nolint goerr113
		return nil, ErrorUnexpectedToken.Error(fmt.Errorf("trailing input at offset %d", p.tok.pos))
	}

	return expr, nil
}

func (p *parser) advance() liberr.Error {
	t, e := p.lex.next()
	if e != nil {
		return e
	}
	p.tok = t
	return nil
}

// parseExpr parses a flat chain of primaries joined by a single operator
// kind (all && or all ||). Encountering the other operator at the same
// level, outside of a parenthesized primary, is an ambiguous-precedence
// error: the caller must parenthesize to disambiguate.
func (p *parser) parseExpr() (Expr, liberr.Error) {
	first, e := p.parsePrimary()
	if e != nil {
		return nil, e
	}

	if p.tok.kind != tokAnd && p.tok.kind != tokOr {
		return first, nil
	}

	op := p.tok.kind
	nodes := []Expr{first}

	for p.tok.kind == op {
		if e = p.advance(); e != nil {
			return nil, e
		}
		next, e2 := p.parsePrimary()
		if e2 != nil {
			return nil, e2
		}
		nodes = append(nodes, next)
	}

	if (op == tokAnd && p.tok.kind == tokOr) || (op == tokOr && p.tok.kind == tokAnd) {
		//nolint goerr113
		return nil, ErrorAmbiguousPrecedence.Error(fmt.Errorf("mixed operators at offset %d require parentheses", p.tok.pos))
	}

	if op == tokAnd {
		return &andNode{children: nodes}, nil
	}
	return &orNode{children: nodes}, nil
}

func (p *parser) parsePrimary() (Expr, liberr.Error) {
	if p.tok.kind == tokLParen {
		if e := p.advance(); e != nil {
			return nil, e
		}
		inner, e := p.parseExpr()
		if e != nil {
			return nil, e
		}
		if p.tok.kind != tokRParen {
			//nolint goerr113
			return nil, ErrorUnexpectedToken.Error(fmt.Errorf("expected ')' at offset %d", p.tok.pos))
		}
		if e = p.advance(); e != nil {
			return nil, e
		}
		return inner, nil
	}

	return p.parseCall()
}

func (p *parser) parseCall() (Expr, liberr.Error) {
	if p.tok.kind != tokIdent {
		//nolint goerr113
		return nil, ErrorUnexpectedToken.Error(fmt.Errorf("expected call name at offset %d", p.tok.pos))
	}

	name := p.tok.text
	argc, known := callArgCount[name]
	if !known {
		//nolint goerr113
		return nil, ErrorUnknownCall.Error(fmt.Errorf("%q at offset %d", name, p.tok.pos))
	}

	if e := p.advance(); e != nil {
		return nil, e
	}
	if p.tok.kind != tokLParen {
		//nolint goerr113
		return nil, ErrorUnexpectedToken.Error(fmt.Errorf("expected '(' after %s at offset %d", name, p.tok.pos))
	}
	if e := p.advance(); e != nil {
		return nil, e
	}

	args := make([]string, 0, argc)
	for {
		if p.tok.kind != tokString {
			//nolint goerr113
			return nil, ErrorUnexpectedToken.Error(fmt.Errorf("expected quoted argument at offset %d", p.tok.pos))
		}
		args = append(args, p.tok.text)
		if e := p.advance(); e != nil {
			return nil, e
		}
		if p.tok.kind != tokComma {
			break
		}
		if e := p.advance(); e != nil {
			return nil, e
		}
	}

	if p.tok.kind != tokRParen {
		//nolint goerr113
		return nil, ErrorUnexpectedToken.Error(fmt.Errorf("expected ')' at offset %d", p.tok.pos))
	}
	if e := p.advance(); e != nil {
		return nil, e
	}

	if len(args) != argc {
		//nolint goerr113
		return nil, ErrorWrongArgCount.Error(fmt.Errorf("%s wants %d argument(s), got %d", name, argc, len(args)))
	}

	return buildCall(name, args)
}

func buildCall(name string, args []string) (Expr, liberr.Error) {
	switch name {
	case "Host":
		return &hostNode{host: args[0]}, nil
	case "HostRegexp":
		re, err := regexp.Compile(args[0])
		if err != nil {
			return nil, ErrorInvalidRegexp.Error(err)
		}
		return &hostRegexpNode{raw: args[0], re: re}, nil
	case "Method":
		return &methodNode{method: args[0]}, nil
	case "Path":
		return &pathNode{path: args[0]}, nil
	case "PathRegexp":
		re, err := regexp.Compile(args[0])
		if err != nil {
			return nil, ErrorInvalidRegexp.Error(err)
		}
		return &pathRegexpNode{raw: args[0], re: re}, nil
	case "Query":
		return &queryNode{key: args[0], value: args[1]}, nil
	}
	//nolint goerr113
	return nil, ErrorUnknownCall.Error(fmt.Errorf("%q", name))
}
