package core

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// OAuth 2.0 bearer token error codes (RFC 6750 section 3.1).
const (
	OAuthInvalidRequest    = "invalid_request"
	OAuthInvalidToken      = "invalid_token"
	OAuthInsufficientScope = "insufficient_scope"
)

// Realm is the realm advertised when no credentials were offered.
const Realm = "AppID"

// Failure describes a rejected request in HTTP terms: the status code and
// the WWW-Authenticate challenge to send back. It wraps the error that caused
// the rejection.
type Failure struct {
	StatusCode  int
	OAuthError  string
	Description string
	Scope       string
	Err         error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	msg := strconv.Itoa(f.StatusCode)
	if f.OAuthError != "" {
		msg += " " + f.OAuthError
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Challenge returns the WWW-Authenticate header value for the failure.
func (f *Failure) Challenge() string {
	if f.OAuthError == "" {
		return fmt.Sprintf("Bearer realm=%q", Realm)
	}

	var b strings.Builder
	b.WriteString("Bearer ")
	fmt.Fprintf(&b, "scope=%q, error=%q", f.Scope, f.OAuthError)
	if f.Description != "" {
		fmt.Fprintf(&b, ", error_description=%q", f.Description)
	}
	return b.String()
}

// noCredentials is the pass response: 401 with a bare realm challenge.
func noCredentials() *Failure {
	return &Failure{
		StatusCode: http.StatusUnauthorized,
		Err:        ErrNoCredentials,
	}
}

// FailureFor maps a validation error to its HTTP failure for the given
// required scope.
func FailureFor(err error, scope string) *Failure {
	f := &Failure{Scope: scope, Err: err}

	if errors.Is(err, ErrInvalidAuthorizationHeader) {
		f.StatusCode = http.StatusBadRequest
		f.OAuthError = OAuthInvalidRequest
		f.Description = "Authorization header format must be Bearer <access_token> [<identity_token>]"
		return f
	}

	switch KindOf(err) {
	case KindInsufficientScope:
		f.StatusCode = http.StatusForbidden
		f.OAuthError = OAuthInsufficientScope
	case KindExpiredToken:
		f.StatusCode = http.StatusUnauthorized
		f.OAuthError = OAuthInvalidToken
		f.Description = "Token is expired"
	default:
		f.StatusCode = http.StatusUnauthorized
		f.OAuthError = OAuthInvalidToken
		f.Description = "Token is invalid"
	}

	return f
}
