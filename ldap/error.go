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

package ldap

import "github.com/sabouaram/alb/errors"

const (
	ErrorParamEmpty errors.CodeError = iota + errors.MinPkgLDAP
	ErrorLDAPValidatorError
	ErrorLDAPContext
	ErrorLDAPServerConfig
	ErrorLDAPServerDial
	ErrorLDAPServerDialClosing
	ErrorLDAPServerTLS
	ErrorLDAPServerStartTLS
	ErrorLDAPServerConnection
	ErrorLDAPBind
	ErrorLDAPSearch
	ErrorLDAPInvalidDN
	ErrorLDAPInvalidUID
	ErrorLDAPUserNotUniq
	ErrorLDAPUserNotFound
	ErrorLDAPAttributeEmpty
	ErrorLDAPAttributeNotFound
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorParamEmpty)
	errors.RegisterIdFctMessage(ErrorParamEmpty, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UNK_ERROR:
		return ""
	case ErrorParamEmpty:
		return "given parameter is empty"
	case ErrorLDAPValidatorError:
		return "ldap config did not pass validation"
	case ErrorLDAPContext:
		return "ldap context is closed or invalid"
	case ErrorLDAPServerConfig:
		return "ldap server config is not well defined"
	case ErrorLDAPServerDial:
		return "dialing ldap server failed"
	case ErrorLDAPServerDialClosing:
		return "closing ldap server dial failed"
	case ErrorLDAPServerTLS:
		return "cannot dial ldap server with tls mode"
	case ErrorLDAPServerStartTLS:
		return "cannot init starttls mode on ldap connection"
	case ErrorLDAPServerConnection:
		return "ldap server connection is not established"
	case ErrorLDAPBind:
		return "error binding user/pass to ldap server"
	case ErrorLDAPSearch:
		return "error running search on ldap server"
	case ErrorLDAPInvalidDN:
		return "resolved distinguished name is invalid"
	case ErrorLDAPInvalidUID:
		return "username is invalid"
	case ErrorLDAPUserNotUniq:
		return "user uid is not unique"
	case ErrorLDAPUserNotFound:
		return "user uid is not found"
	case ErrorLDAPAttributeEmpty:
		return "requested attribute is empty"
	case ErrorLDAPAttributeNotFound:
		return "requested attribute was not found"
	}

	return ""
}
