package grpc

import (
	"errors"

	"github.com/appid-oss/go-appid-middleware/core"
)

// Option configures the interceptor.
type Option func(*Interceptor) error

// WithCore sets the core that authenticates calls (REQUIRED).
//
// Example:
//
//	interceptor, _ := grpc.New(
//	    grpc.WithCore(c),
//	    grpc.WithLogger(slog.Default()),
//	)
func WithCore(c *core.Core) Option {
	return func(i *Interceptor) error {
		if c == nil {
			return errors.New("core cannot be nil")
		}
		i.core = c
		return nil
	}
}

// WithCredentialsOptional allows calls without credentials to proceed.
// Such calls carry no authorization context.
//
// Default: false (credentials required)
func WithCredentialsOptional(optional bool) Option {
	return func(i *Interceptor) error {
		i.credentialsOptional = optional
		return nil
	}
}

// WithLogger sets an optional logger for the interceptor.
//
// The logger interface is compatible with log/slog.Logger and similar loggers.
func WithLogger(logger core.Logger) Option {
	return func(i *Interceptor) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		i.logger = logger
		return nil
	}
}

// WithTokenExtractor sets a custom token extractor function.
// Default is MetadataTokenExtractor which reads the "authorization" metadata.
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(i *Interceptor) error {
		if extractor == nil {
			return errors.New("token extractor cannot be nil")
		}
		i.tokenExtractor = extractor
		return nil
	}
}

// WithErrorHandler sets a custom error handler function.
// Default is DefaultErrorHandler which maps failures to gRPC status codes.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(i *Interceptor) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		i.errorHandler = handler
		return nil
	}
}

// WithExcludedMethods excludes specific gRPC methods from authentication.
// Methods should be provided in the format: "/package.Service/Method"
// Example: "/myapp.MyService/PublicMethod", "/grpc.health.v1.Health/Check"
func WithExcludedMethods(methods ...string) Option {
	return func(i *Interceptor) error {
		for _, method := range methods {
			i.excludedMethods[method] = true
		}
		return nil
	}
}

// WithMethodScope requires scope words for one method in addition to the
// core's scope.
func WithMethodScope(method, scope string) Option {
	return func(i *Interceptor) error {
		if method == "" {
			return errors.New("method cannot be empty")
		}
		i.methodScopes[method] = scope
		return nil
	}
}
