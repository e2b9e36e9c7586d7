package grpc

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/appid-oss/go-appid-middleware/core"
)

// ErrorHandler converts a rejected call into the error returned to the client.
type ErrorHandler func(failure *core.Failure) error

// DefaultErrorHandler maps the failure's HTTP status to a gRPC status code:
//
//	400 -> InvalidArgument
//	401 -> Unauthenticated
//	403 -> PermissionDenied
//
// The message is the failure's description, which never reveals more than
// the HTTP challenge would.
func DefaultErrorHandler(failure *core.Failure) error {
	if failure == nil {
		return nil
	}

	msg := failure.Description
	switch {
	case errors.Is(failure, core.ErrNoCredentials):
		msg = "missing credentials"
	case failure.OAuthError == core.OAuthInsufficientScope:
		msg = "insufficient scope, required: " + failure.Scope
	}

	switch failure.StatusCode {
	case http.StatusBadRequest:
		return status.Error(codes.InvalidArgument, msg)
	case http.StatusForbidden:
		return status.Error(codes.PermissionDenied, msg)
	case http.StatusUnauthorized:
		return status.Error(codes.Unauthenticated, msg)
	default:
		return status.Error(codes.Internal, "unable to verify token")
	}
}
