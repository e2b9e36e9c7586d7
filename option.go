package appidmiddleware

import (
	"errors"
	"net/http"

	"github.com/appid-oss/go-appid-middleware/config"
	"github.com/appid-oss/go-appid-middleware/core"
)

// Option configures the Middleware.
// Returns error for validation failures.
type Option func(*Middleware) error

// WithConfig builds the middleware from App ID credentials. Only ServerURL
// and TenantID are used by the API strategy.
//
// Example:
//
//	middleware, err := appidmiddleware.New(
//	    appidmiddleware.WithConfig(config.Config{
//	        ServerURL: "https://us-south.appid.cloud.ibm.com/oauth/v4/<tenant>",
//	        TenantID:  "<tenant>",
//	    }),
//	)
func WithConfig(cfg config.Config) Option {
	return func(m *Middleware) error {
		m.cfg = &cfg
		return nil
	}
}

// WithCore uses a preconfigured core instead of building one from a
// configuration. WithScope, WithHTTPClient, WithMetrics and WithTracer have
// no effect on a core supplied this way.
func WithCore(c *core.Core) Option {
	return func(m *Middleware) error {
		if c == nil {
			return ErrCoreNil
		}
		m.core = c
		return nil
	}
}

// WithScope sets scope words required on every request in addition to
// appid_default.
func WithScope(scope string) Option {
	return func(m *Middleware) error {
		m.scope = scope
		return nil
	}
}

// WithHTTPClient sets the client used to reach the App ID server.
//
// Default: a client with the configured HTTPTimeout (30s)
func WithHTTPClient(client *http.Client) Option {
	return func(m *Middleware) error {
		if client == nil {
			return ErrHTTPClientNil
		}
		m.httpClient = client
		return nil
	}
}

// WithCredentialsOptional sets whether credentials are optional.
// If set to true, a request without bearer credentials reaches the next
// handler without an authorization context.
//
// Default: false (credentials required)
func WithCredentialsOptional(value bool) Option {
	return func(m *Middleware) error {
		m.credentialsOptional = value
		return nil
	}
}

// WithValidateOnOptions sets whether OPTIONS requests should have their token validated.
//
// Default: true (OPTIONS requests are validated)
func WithValidateOnOptions(value bool) Option {
	return func(m *Middleware) error {
		m.validateOnOptions = value
		return nil
	}
}

// WithErrorHandler sets the handler called when a request is rejected.
// See the ErrorHandler type for more information.
//
// Default: DefaultErrorHandler
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *Middleware) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		m.errorHandler = h
		return nil
	}
}

// WithTokenExtractor sets the function to extract the authorization value from the request.
//
// Default: AuthHeaderTokenExtractor
func WithTokenExtractor(e TokenExtractor) Option {
	return func(m *Middleware) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		m.tokenExtractor = e
		return nil
	}
}

// WithExclusionUrls configures URL patterns to exclude from token validation.
// URLs can be full URLs or just paths.
func WithExclusionUrls(exclusions []string) Option {
	return func(m *Middleware) error {
		if len(exclusions) == 0 {
			return ErrExclusionUrlsEmpty
		}
		m.exclusionURLHandler = func(r *http.Request) bool {
			requestFullURL := r.URL.String()
			requestPath := r.URL.Path

			for _, exclusion := range exclusions {
				if requestFullURL == exclusion || requestPath == exclusion {
					return true
				}
			}
			return false
		}
		return nil
	}
}

// WithLogger sets an optional logger for the middleware.
// The logger is passed down to the core, the validator and the key cache.
//
// The logger interface is compatible with log/slog.Logger; see NewZapLogger,
// NewZerologLogger and NewLogrusLogger for other loggers.
func WithLogger(logger Logger) Option {
	return func(m *Middleware) error {
		if logger == nil {
			return ErrLoggerNil
		}
		m.logger = logger
		return nil
	}
}

// WithMetrics sets an optional metrics sink, e.g. NewPrometheusMetrics.
func WithMetrics(metrics core.Metrics) Option {
	return func(m *Middleware) error {
		if metrics == nil {
			return ErrMetricsNil
		}
		m.metrics = metrics
		return nil
	}
}

// WithTracer sets an optional tracer, e.g. NewOpenTelemetryTracer.
func WithTracer(tracer core.Tracer) Option {
	return func(m *Middleware) error {
		if tracer == nil {
			return ErrTracerNil
		}
		m.tracer = tracer
		return nil
	}
}

// Sentinel errors for configuration validation
var (
	ErrConfigRequired     = errors.New("configuration is required (use WithConfig or WithCore)")
	ErrCoreNil            = errors.New("core cannot be nil")
	ErrHTTPClientNil      = errors.New("HTTP client cannot be nil")
	ErrErrorHandlerNil    = errors.New("errorHandler cannot be nil")
	ErrTokenExtractorNil  = errors.New("tokenExtractor cannot be nil")
	ErrExclusionUrlsEmpty = errors.New("exclusion URLs list cannot be empty")
	ErrLoggerNil          = errors.New("logger cannot be nil")
	ErrMetricsNil         = errors.New("metrics cannot be nil")
	ErrTracerNil          = errors.New("tracer cannot be nil")
)
