package core

import (
	"errors"
	"fmt"
)

// Kind tags an Error with the validation step or subsystem that produced it.
// The string values are stable and may appear in logs and error descriptions.
type Kind string

// Token format errors.
const (
	KindInvalidTokenFormat Kind = "invalidTokenFormat"
	KindInvalidAlgorithm   Kind = "invalidAlgorithm"
	KindMissingTokenKid    Kind = "missingTokenKid"
)

// Signature and key errors.
const (
	KindMissingPublicKey      Kind = "missingPublicKey"
	KindPublicKeyNotFound     Kind = "publicKeyNotFound"
	KindInvalidTokenSignature Kind = "invalidTokenSignature"
)

// Claim errors.
const (
	KindExpiredToken    Kind = "expiredToken"
	KindInvalidTenant   Kind = "invalidTenant"
	KindInvalidAudience Kind = "invalidAudience"
	KindInvalidIssuer   Kind = "invalidIssuer"
)

// Authorization and transport errors.
const (
	KindInsufficientScope Kind = "insufficientScope"
	KindInvalidToken      Kind = "invalidToken"
	KindTransport         Kind = "transportError"
)

// Error is the tagged error returned by every validation step. Two Errors
// match under errors.Is when their kinds are equal, so callers can test
// against the sentinels below regardless of message or wrapped details.
type Error struct {
	// Kind identifies the failed step.
	Kind Kind

	// Message is a human-readable description.
	Message string

	// Details contains the underlying error, if any.
	Details error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Details != nil {
		msg += ": " + e.Details.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Details
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NewError creates a new Error of the given kind.
func NewError(kind Kind, message string, details error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Details: details,
	}
}

// Errorf creates a new Error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf returns the kind of the outermost *Error in err's chain, or the empty
// kind if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Sentinels for use with errors.Is.
var (
	ErrInvalidTokenFormat    = &Error{Kind: KindInvalidTokenFormat}
	ErrInvalidAlgorithm      = &Error{Kind: KindInvalidAlgorithm}
	ErrMissingTokenKid       = &Error{Kind: KindMissingTokenKid}
	ErrMissingPublicKey      = &Error{Kind: KindMissingPublicKey}
	ErrPublicKeyNotFound     = &Error{Kind: KindPublicKeyNotFound}
	ErrInvalidTokenSignature = &Error{Kind: KindInvalidTokenSignature}
	ErrExpiredToken          = &Error{Kind: KindExpiredToken}
	ErrInvalidTenant         = &Error{Kind: KindInvalidTenant}
	ErrInvalidAudience       = &Error{Kind: KindInvalidAudience}
	ErrInvalidIssuer         = &Error{Kind: KindInvalidIssuer}
	ErrInsufficientScope     = &Error{Kind: KindInsufficientScope}
	ErrInvalidToken          = &Error{Kind: KindInvalidToken}
	ErrTransport             = &Error{Kind: KindTransport}
)

// ErrNoCredentials is reported when a request carries no bearer credentials
// at all. It is not a validation failure: strategies treat it as a pass.
var ErrNoCredentials = errors.New("no bearer credentials offered")

// ErrInvalidAuthorizationHeader is returned when a Bearer authorization header
// does not carry exactly one access token and at most one identity token.
var ErrInvalidAuthorizationHeader = errors.New("invalid authorization header format")

// ErrAuthContextNotFound is returned when no authorization context is stored
// in a context.Context.
var ErrAuthContextNotFound = errors.New("authorization context not found in context")
