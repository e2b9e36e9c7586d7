package appidiris

import (
	"github.com/kataras/iris/v12"

	appidmiddleware "github.com/appid-oss/go-appid-middleware"
	"github.com/appid-oss/go-appid-middleware/core"
)

// Option is a function that configures the middleware
type Option func(*IrisMiddlewareConfig)

// WithErrorHandler sets a custom error handler
func WithErrorHandler(handler func(iris.Context, *core.Failure)) Option {
	return func(config *IrisMiddlewareConfig) {
		config.errorHandler = handler
	}
}

// WithTokenExtractor sets a custom token extractor
func WithTokenExtractor(extractor appidmiddleware.TokenExtractor) Option {
	return func(config *IrisMiddlewareConfig) {
		config.tokenExtractor = extractor
	}
}

// WithScope requires scope words in addition to the core's scope
func WithScope(scope string) Option {
	return func(config *IrisMiddlewareConfig) {
		config.scope = scope
	}
}

// WithCredentialsOptional lets requests without credentials through
func WithCredentialsOptional(optional bool) Option {
	return func(config *IrisMiddlewareConfig) {
		config.credentialsOptional = optional
	}
}
