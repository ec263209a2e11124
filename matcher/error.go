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

// Package matcher parses and evaluates the boolean request-matching
// expressions used to select a backend pool.
package matcher

import "github.com/sabouaram/alb/errors"

const (
	ErrorUnexpectedToken errors.CodeError = iota + errors.MinPkgMatcher
	ErrorUnknownCall
	ErrorAmbiguousPrecedence
	ErrorUnterminatedString
	ErrorInvalidRegexp
	ErrorWrongArgCount
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorUnexpectedToken)
	errors.RegisterIdFctMessage(ErrorUnexpectedToken, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UNK_ERROR:
		return ""
	case ErrorUnexpectedToken:
		return "unexpected token in matcher expression"
	case ErrorUnknownCall:
		return "unknown call name in matcher expression"
	case ErrorAmbiguousPrecedence:
		return "mixed && and || at the same level requires parentheses"
	case ErrorUnterminatedString:
		return "unterminated quoted argument"
	case ErrorInvalidRegexp:
		return "invalid regular expression argument"
	case ErrorWrongArgCount:
		return "call has the wrong number of arguments"
	}

	return ""
}
