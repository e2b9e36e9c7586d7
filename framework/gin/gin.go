package appidgin

import (
	"errors"

	"github.com/gin-gonic/gin"

	appidmiddleware "github.com/appid-oss/go-appid-middleware"
	"github.com/appid-oss/go-appid-middleware/core"
)

// ProfileKey is the gin context key of the core.Profile. The authorization
// context is stored under core.AuthContextKey.
const ProfileKey = "APPID_PROFILE"

var (
	ErrMissingAuthContext = errors.New("no authorization context found in gin context")
	ErrInvalidAuthContext = errors.New("invalid authorization context type")
)

type ginMiddlewareConfig struct {
	errorHandler        func(*gin.Context, *core.Failure)
	tokenExtractor      appidmiddleware.TokenExtractor
	scope               string
	credentialsOptional bool
}

// New creates a gin middleware that authenticates requests with c. The
// authorization context and profile are stored in the gin context and in
// the request context.
func New(c *core.Core, opts ...Option) gin.HandlerFunc {
	config := &ginMiddlewareConfig{
		errorHandler:   DefaultErrorHandler,
		tokenExtractor: appidmiddleware.AuthHeaderTokenExtractor,
	}

	for _, opt := range opts {
		opt(config)
	}
	if config.errorHandler == nil {
		config.errorHandler = DefaultErrorHandler
	}
	if config.tokenExtractor == nil {
		config.tokenExtractor = appidmiddleware.AuthHeaderTokenExtractor
	}

	return func(ctx *gin.Context) {
		authorization, err := config.tokenExtractor(ctx.Request)
		if err != nil {
			config.errorHandler(ctx, core.FailureFor(errors.Join(core.ErrInvalidAuthorizationHeader, err), c.RequiredScope(config.scope)))
			return
		}

		result := c.Authenticate(ctx.Request.Context(), authorization, config.scope)

		switch result.Outcome {
		case core.OutcomeSuccess:
			ctx.Set(core.AuthContextKey, result.AuthContext)
			ctx.Set(ProfileKey, result.Profile)
			ctx.Request = ctx.Request.WithContext(core.SetAuthorizationContext(ctx.Request.Context(), result.AuthContext, result.Profile))
			ctx.Next()
		case core.OutcomePass:
			if config.credentialsOptional {
				ctx.Next()
				return
			}
			config.errorHandler(ctx, result.Failure)
		default:
			config.errorHandler(ctx, result.Failure)
		}
	}
}

// DefaultErrorHandler aborts with the failure's status, challenge and an
// appidmiddleware.ErrorResponse body.
func DefaultErrorHandler(c *gin.Context, failure *core.Failure) {
	c.Header("WWW-Authenticate", failure.Challenge())
	c.AbortWithStatusJSON(failure.StatusCode, appidmiddleware.NewErrorResponse(failure))
}

// GetAuthorizationContext returns the authorization context stored by the
// middleware.
func GetAuthorizationContext(c *gin.Context) (*core.AuthorizationContext, error) {
	value, exists := c.Get(core.AuthContextKey)
	if !exists {
		return nil, ErrMissingAuthContext
	}

	ac, ok := value.(*core.AuthorizationContext)
	if !ok {
		return nil, ErrInvalidAuthContext
	}

	return ac, nil
}

// GetProfile returns the profile stored by the middleware.
func GetProfile(c *gin.Context) (core.Profile, bool) {
	value, exists := c.Get(ProfileKey)
	if !exists {
		return core.Profile{}, false
	}
	profile, ok := value.(core.Profile)
	return profile, ok
}
