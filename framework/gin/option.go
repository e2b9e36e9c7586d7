package appidgin

import (
	"github.com/gin-gonic/gin"

	appidmiddleware "github.com/appid-oss/go-appid-middleware"
	"github.com/appid-oss/go-appid-middleware/core"
)

// Option defines a functional option for configuring the middleware
type Option func(*ginMiddlewareConfig)

// WithErrorHandler sets a custom error handler for the middleware
func WithErrorHandler(handler func(*gin.Context, *core.Failure)) Option {
	return func(config *ginMiddlewareConfig) {
		config.errorHandler = handler
	}
}

// WithTokenExtractor sets a custom token extractor
func WithTokenExtractor(extractor appidmiddleware.TokenExtractor) Option {
	return func(config *ginMiddlewareConfig) {
		config.tokenExtractor = extractor
	}
}

// WithScope requires scope words in addition to the core's scope
func WithScope(scope string) Option {
	return func(config *ginMiddlewareConfig) {
		config.scope = scope
	}
}

// WithCredentialsOptional lets requests without credentials through
func WithCredentialsOptional(optional bool) Option {
	return func(config *ginMiddlewareConfig) {
		config.credentialsOptional = optional
	}
}
