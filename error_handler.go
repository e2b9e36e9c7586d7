package appidmiddleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/appid-oss/go-appid-middleware/core"
)

// ErrorHandler is called when the middleware rejects a request. err wraps a
// *core.Failure carrying the status code and WWW-Authenticate challenge; use
// errors.As to read it and errors.Is with the core sentinels to tell causes
// apart. If you implement your own ErrorHandler you MUST respond, otherwise
// the request ends with an empty 200.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// ErrorResponse is the JSON body written by DefaultErrorHandler.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// DefaultErrorHandler is the default error handler implementation for the
// Middleware. It answers with the failure's status code, its
// WWW-Authenticate challenge and an ErrorResponse body:
//
//	401 (no credentials): WWW-Authenticate: Bearer realm="AppID"
//	400 invalid_request, 401 invalid_token, 403 insufficient_scope:
//	    WWW-Authenticate: Bearer scope="...", error="..."[, error_description="..."]
//
// Errors that are not a *core.Failure produce a 500.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json")

	var failure *core.Failure
	if !errors.As(err, &failure) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Something went wrong while checking the token.",
		})
		return
	}

	w.Header().Set("WWW-Authenticate", failure.Challenge())
	w.WriteHeader(failure.StatusCode)
	_ = json.NewEncoder(w).Encode(NewErrorResponse(failure))
}

// NewErrorResponse returns the response body for a failure.
func NewErrorResponse(failure *core.Failure) ErrorResponse {
	if failure.OAuthError == "" {
		return ErrorResponse{
			Error:            "unauthorized",
			ErrorDescription: "Bearer credentials are required.",
		}
	}
	return ErrorResponse{Error: failure.OAuthError, ErrorDescription: failure.Description}
}
