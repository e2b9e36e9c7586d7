package grpc

import (
	"context"

	"github.com/appid-oss/go-appid-middleware/core"
)

// GetAuthorizationContext returns the authorization context stored by the
// interceptors.
func GetAuthorizationContext(ctx context.Context) (*core.AuthorizationContext, error) {
	return core.GetAuthorizationContext(ctx)
}

// GetProfile returns the profile stored by the interceptors.
func GetProfile(ctx context.Context) (core.Profile, bool) {
	return core.GetProfile(ctx)
}

// HasAuthorizationContext reports whether the call was authenticated.
func HasAuthorizationContext(ctx context.Context) bool {
	return core.HasAuthorizationContext(ctx)
}
