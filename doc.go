/*
Package appidmiddleware protects net/http handlers with IBM App ID bearer
tokens.

Requests carry "Authorization: Bearer <access_token> [<identity_token>]".
The access token is verified against the tenant's published RS256 keys, its
tenant claim and its scope. An identity token, when present, supplies the
user profile. The package is the HTTP adapter over package core; adapters
for gin, echo, iris and gRPC live under framework/ and integrations/, and the
browser login flow lives in package web.

# Quick Start

	import (
	    appidmiddleware "github.com/appid-oss/go-appid-middleware"
	    "github.com/appid-oss/go-appid-middleware/config"
	)

	func main() {
	    cfg, err := config.FromEnv()
	    if err != nil {
	        log.Fatal(err)
	    }

	    middleware, err := appidmiddleware.New(
	        appidmiddleware.WithConfig(cfg),
	    )
	    if err != nil {
	        log.Fatal(err)
	    }

	    http.Handle("/api/", middleware.CheckToken(apiHandler))
	    http.Handle("/api/admin", middleware.RequireScope("admin")(adminHandler))
	    http.ListenAndServe(":8080", nil)
	}

# Accessing the Authorization Context

	func apiHandler(w http.ResponseWriter, r *http.Request) {
	    ac, err := core.GetAuthorizationContext(r.Context())
	    if err != nil {
	        http.Error(w, "Unauthorized", http.StatusUnauthorized)
	        return
	    }
	    profile, _ := core.GetProfile(r.Context())

	    fmt.Fprintf(w, "Hello, %s! (%v)", profile.DisplayName, ac.AccessTokenPayload["scope"])
	}

The profile is empty when no identity token was sent or the identity token
did not validate. The access token alone authorizes the request.

# Configuration Options

Required (one of):
  - WithConfig: App ID credentials; ServerURL and TenantID are used
  - WithCore: a preconfigured core.Core

Optional:
  - WithScope: scope words required on every request besides appid_default
  - WithHTTPClient: client used to fetch the public keys
  - WithCredentialsOptional: let requests without credentials through
  - WithValidateOnOptions: validate tokens on OPTIONS requests
  - WithErrorHandler: custom rejection response
  - WithTokenExtractor: read the token from somewhere else
  - WithExclusionUrls: URLs that skip authentication
  - WithLogger: structured logging (compatible with log/slog)
  - WithMetrics: e.g. NewPrometheusMetrics
  - WithTracer: e.g. NewOpenTelemetryTracer

A configuration without a tenant does not fail construction. The problem is
logged and every request is rejected with 401.

# Responses

DefaultErrorHandler answers rejected requests like this:

	no credentials      401  WWW-Authenticate: Bearer realm="AppID"
	malformed header    400  Bearer scope="appid_default", error="invalid_request", ...
	invalid token       401  Bearer scope="appid_default", error="invalid_token", error_description="Token is invalid"
	expired token       401  Bearer scope="appid_default", error="invalid_token", error_description="Token is expired"
	missing scope       403  Bearer scope="appid_default admin", error="insufficient_scope"

The error passed to an ErrorHandler wraps a *core.Failure and the
validation error behind it:

	func myErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	    if errors.Is(err, core.ErrExpiredToken) {
	        w.Header().Set("X-Token-Expired", "true")
	    }
	    appidmiddleware.DefaultErrorHandler(w, r, err)
	}

# Token Extraction

The default extractor reads the Authorization header. Tokens can also come
from a cookie or a query parameter:

	appidmiddleware.WithTokenExtractor(appidmiddleware.MultiTokenExtractor(
	    appidmiddleware.AuthHeaderTokenExtractor,
	    appidmiddleware.CookieTokenExtractor("access_token"),
	))

# Logging, Metrics and Tracing

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	middleware, err := appidmiddleware.New(
	    appidmiddleware.WithConfig(cfg),
	    appidmiddleware.WithLogger(logger),
	    appidmiddleware.WithMetrics(appidmiddleware.NewPrometheusMetrics(nil)),
	    appidmiddleware.WithTracer(appidmiddleware.NewOpenTelemetryTracer(otel.Tracer("api"))),
	)

Zap, zerolog and logrus loggers are wrapped with NewZapLogger,
NewZerologLogger and NewLogrusLogger.
*/
package appidmiddleware
