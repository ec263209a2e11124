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

	liberr "github.com/sabouaram/alb/errors"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokLParen
	tokRParen
	tokComma
	tokAnd
	tokOr
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	src []rune
	pos int
}

func newLexer(s string) *lexer {
	return &lexer{src: []rune(s)}
}

func (l *lexer) peekRune() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *lexer) skipSpace() {
	for {
		r, ok := l.peekRune()
		if !ok || (r != ' ' && r != '\t' && r != '\n' && r != '\r') {
			return
		}
		l.pos++
	}
}

// next returns the next token. A quoted-string token strips its surrounding
// quotes; an unterminated quote yields an error.
func (l *lexer) next() (token, liberr.Error) {
	l.skipSpace()

	start := l.pos
	r, ok := l.peekRune()
	if !ok {
		return token{kind: tokEOF, pos: start}, nil
	}

	switch r {
	case '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case ',':
		l.pos++
		return token{kind: tokComma, text: ",", pos: start}, nil
	case '\'':
		l.pos++
		var sb []rune
		for {
			c, ok2 := l.peekRune()
			if !ok2 {
				return token{}, newUnterminatedString(start)
			}
			if c == '\'' {
				l.pos++
				break
			}
			sb = append(sb, c)
			l.pos++
		}
		return token{kind: tokString, text: string(sb), pos: start}, nil
	case '&':
		if l.pos+1 < len(l.src) && l.src[l.pos+1] == '&' {
			l.pos += 2
			return token{kind: tokAnd, text: "&&", pos: start}, nil
		}
		return token{}, newUnexpectedToken(start, "&")
	case '|':
		if l.pos+1 < len(l.src) && l.src[l.pos+1] == '|' {
			l.pos += 2
			return token{kind: tokOr, text: "||", pos: start}, nil
		}
		return token{}, newUnexpectedToken(start, "|")
	}

	if isIdentStart(r) {
		for {
			c, ok2 := l.peekRune()
			if !ok2 || !isIdentPart(c) {
				break
			}
			l.pos++
		}
		return token{kind: tokIdent, text: string(l.src[start:l.pos]), pos: start}, nil
	}

	return token{}, newUnexpectedToken(start, string(r))
}

func isIdentStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func newUnexpectedToken(pos int, text string) liberr.Error {
	//nolint goerr113
	return ErrorUnexpectedToken.Error(fmt.Errorf("unexpected %q at offset %d", text, pos))
}

func newUnterminatedString(pos int) liberr.Error {
	//nolint goerr113
	return ErrorUnterminatedString.Error(fmt.Errorf("unterminated quote starting at offset %d", pos))
}
