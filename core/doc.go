/*
Package core provides the framework-agnostic App ID authentication engine and
the model shared by the rest of the module.

The Core type runs the API (bearer token) strategy without any dependency on a
specific transport. Transport adapters hand it the Authorization header value
and translate the returned Result into a response.

# Architecture

	┌─────────────────────────────────────────────┐
	│         Transport Adapters                  │
	│  (net/http, gin, echo, gRPC)                │
	└────────────────┬────────────────────────────┘
	                 │ Authorization header
	                 ▼
	┌─────────────────────────────────────────────┐
	│          Core Engine (THIS PACKAGE)         │
	│  • Bearer header parsing                    │
	│  • Scope check                              │
	│  • Identity token → profile                 │
	└────────────────┬────────────────────────────┘
	                 │ token + ValidationContext
	                 ▼
	┌─────────────────────────────────────────────┐
	│          validator.Validator                │
	│  (parse → alg → kid → key → signature →     │
	│   exp → tenant → aud/iss)                   │
	└────────────────┬────────────────────────────┘
	                 │ kid
	                 ▼
	┌─────────────────────────────────────────────┐
	│          jwks.KeyCache                      │
	│  (coalesced /publickeys refresh)            │
	└─────────────────────────────────────────────┘

# Results

Authenticate returns one of three outcomes:

  - OutcomePass: no bearer credentials were offered. The Failure carries a
    401 with the challenge `Bearer realm="AppID"`; adapters may continue
    down the chain instead when credentials are optional.
  - OutcomeFailure: the Failure carries the status (400, 401 or 403) and a
    challenge of the form
    `Bearer scope="appid_default", error="invalid_token", error_description="..."`.
  - OutcomeSuccess: the Profile and AuthorizationContext of the request.

# Errors

Every validation step reports a *Error tagged with a Kind. Errors match by
kind under errors.Is:

	if errors.Is(err, core.ErrExpiredToken) {
	    // ...
	}

# Context

Adapters store the authorization context and profile with
SetAuthorizationContext; handlers read them back:

	ac, err := core.GetAuthorizationContext(r.Context())
	profile, _ := core.GetProfile(r.Context())
*/
package core
