package appidiris

import (
	"errors"

	"github.com/kataras/iris/v12"

	appidmiddleware "github.com/appid-oss/go-appid-middleware"
	"github.com/appid-oss/go-appid-middleware/core"
)

// ProfileKey is the iris context value key of the core.Profile. The
// authorization context is stored under core.AuthContextKey.
const ProfileKey = "APPID_PROFILE"

var (
	ErrMissingAuthContext = errors.New("no authorization context found in iris context")
	ErrInvalidAuthContext = errors.New("invalid authorization context type")
)

// IrisMiddlewareConfig holds configuration for the Iris adapter.
type IrisMiddlewareConfig struct {
	errorHandler        func(iris.Context, *core.Failure)
	tokenExtractor      appidmiddleware.TokenExtractor
	scope               string
	credentialsOptional bool
}

// New creates an Iris middleware that authenticates requests with c.
//
// The authorization context and profile are stored both in the iris context
// values and in the request context. Use appidiris.GetAuthorizationContext(c)
// and appidiris.GetProfile(c) to read them in handlers.
func New(c *core.Core, opts ...Option) iris.Handler {
	config := &IrisMiddlewareConfig{
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

	return func(ctx iris.Context) {
		authorization, err := config.tokenExtractor(ctx.Request())
		if err != nil {
			config.errorHandler(ctx, core.FailureFor(errors.Join(core.ErrInvalidAuthorizationHeader, err), c.RequiredScope(config.scope)))
			return
		}

		result := c.Authenticate(ctx.Request().Context(), authorization, config.scope)

		switch result.Outcome {
		case core.OutcomeSuccess:
			ctx.Values().Set(core.AuthContextKey, result.AuthContext)
			ctx.Values().Set(ProfileKey, result.Profile)
			ctx.ResetRequest(ctx.Request().WithContext(
				core.SetAuthorizationContext(ctx.Request().Context(), result.AuthContext, result.Profile)))
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

// GetAuthorizationContext returns the authorization context stored by the
// middleware.
//
// Example usage:
//
//	func MyHandler(c iris.Context) {
//		ac, err := appidiris.GetAuthorizationContext(c)
//		if err != nil {
//			c.StopWithJSON(iris.StatusUnauthorized, iris.Map{"error": err.Error()})
//			return
//		}
//		c.JSON(iris.Map{"subject": ac.AccessTokenPayload["sub"]})
//	}
func GetAuthorizationContext(c iris.Context) (*core.AuthorizationContext, error) {
	value := c.Values().Get(core.AuthContextKey)
	if value == nil {
		return nil, ErrMissingAuthContext
	}

	ac, ok := value.(*core.AuthorizationContext)
	if !ok {
		return nil, ErrInvalidAuthContext
	}

	return ac, nil
}

// GetProfile returns the profile stored by the middleware.
func GetProfile(c iris.Context) (core.Profile, bool) {
	profile, ok := c.Values().Get(ProfileKey).(core.Profile)
	return profile, ok
}

// MustGetAuthorizationContext returns the authorization context or stops
// execution with a 401 if the request was not authenticated.
func MustGetAuthorizationContext(c iris.Context) *core.AuthorizationContext {
	ac, err := GetAuthorizationContext(c)
	if err != nil {
		_ = c.StopWithJSON(iris.StatusUnauthorized, map[string]string{"message": "Failed to get the authorization context."})
		return nil
	}
	return ac
}

// DefaultErrorHandler stops execution with the failure's status, challenge
// and an appidmiddleware.ErrorResponse body.
func DefaultErrorHandler(c iris.Context, failure *core.Failure) {
	c.Header("WWW-Authenticate", failure.Challenge())
	_ = c.StopWithJSON(failure.StatusCode, appidmiddleware.NewErrorResponse(failure))
}
