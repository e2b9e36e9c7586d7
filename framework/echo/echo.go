package appidecho

import (
	"errors"

	"github.com/labstack/echo/v4"

	appidmiddleware "github.com/appid-oss/go-appid-middleware"
	"github.com/appid-oss/go-appid-middleware/core"
)

// ProfileKey is the echo context key of the core.Profile. The authorization
// context is stored under core.AuthContextKey.
const ProfileKey = "APPID_PROFILE"

// echoMiddlewareConfig holds all configuration for the middleware
type echoMiddlewareConfig struct {
	errorHandler        func(echo.Context, *core.Failure) error
	tokenExtractor      appidmiddleware.TokenExtractor
	scope               string
	credentialsOptional bool
}

// New creates an echo middleware that authenticates requests with c.
func New(c *core.Core, opts ...Option) echo.MiddlewareFunc {
	config := &echoMiddlewareConfig{
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

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			r := ctx.Request()

			authorization, err := config.tokenExtractor(r)
			if err != nil {
				return config.errorHandler(ctx, core.FailureFor(errors.Join(core.ErrInvalidAuthorizationHeader, err), c.RequiredScope(config.scope)))
			}

			result := c.Authenticate(r.Context(), authorization, config.scope)

			switch result.Outcome {
			case core.OutcomeSuccess:
				ctx.Set(core.AuthContextKey, result.AuthContext)
				ctx.Set(ProfileKey, result.Profile)
				ctx.SetRequest(r.WithContext(core.SetAuthorizationContext(r.Context(), result.AuthContext, result.Profile)))
				return next(ctx)
			case core.OutcomePass:
				if config.credentialsOptional {
					return next(ctx)
				}
				return config.errorHandler(ctx, result.Failure)
			default:
				return config.errorHandler(ctx, result.Failure)
			}
		}
	}
}

// DefaultErrorHandler answers with the failure's status, challenge and an
// appidmiddleware.ErrorResponse body.
func DefaultErrorHandler(c echo.Context, failure *core.Failure) error {
	c.Response().Header().Set("WWW-Authenticate", failure.Challenge())
	return c.JSON(failure.StatusCode, appidmiddleware.NewErrorResponse(failure))
}

// GetAuthorizationContext extracts the authorization context from the Echo context
func GetAuthorizationContext(c echo.Context) (*core.AuthorizationContext, bool) {
	ac, ok := c.Get(core.AuthContextKey).(*core.AuthorizationContext)
	return ac, ok
}

// GetProfile extracts the profile from the Echo context
func GetProfile(c echo.Context) (core.Profile, bool) {
	profile, ok := c.Get(ProfileKey).(core.Profile)
	return profile, ok
}
