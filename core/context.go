package core

import "context"

// AuthContextKey is the fixed name under which the authorization context is
// stored by adapters whose request storage is keyed by strings (gin, echo)
// and by the web strategy in the session.
const AuthContextKey = "APPID_AUTH_CONTEXT"

// ValidationContext is the per-call policy for validating one token.
type ValidationContext struct {
	// TenantID is the tenant every token must be issued for. Required.
	TenantID string

	// ClientID is the expected audience. Only checked when
	// VerifyAudienceAndIssuer is set.
	ClientID string

	// Issuer is the expected token issuer (host[:port]). Only checked when
	// VerifyAudienceAndIssuer is set.
	Issuer string

	// VerifyAudienceAndIssuer enables the audience and issuer gates. The API
	// flow leaves it off because it does not know the calling client.
	VerifyAudienceAndIssuer bool
}

// AuthorizationContext is the validated token material of one authenticated
// request or session. It is owned by the caller.
type AuthorizationContext struct {
	AccessToken          string         `json:"accessToken"`
	AccessTokenPayload   map[string]any `json:"accessTokenPayload"`
	IdentityToken        string         `json:"identityToken,omitempty"`
	IdentityTokenPayload map[string]any `json:"identityTokenPayload,omitempty"`
}

// IsAnonymous reports whether the access token was issued to an anonymous
// user, i.e. its amr claim contains "appid_anon".
func (a *AuthorizationContext) IsAnonymous() bool {
	if a == nil {
		return false
	}
	switch amr := a.AccessTokenPayload["amr"].(type) {
	case []any:
		for _, v := range amr {
			if s, ok := v.(string); ok && s == AnonymousIDP {
				return true
			}
		}
	case []string:
		for _, s := range amr {
			if s == AnonymousIDP {
				return true
			}
		}
	case string:
		return amr == AnonymousIDP
	}
	return false
}

// AnonymousIDP is the identity provider name App ID uses for anonymous users.
const AnonymousIDP = "appid_anon"

// Profile is the minimal user profile derived from an identity token.
// The zero value is the anonymous profile.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Provider    string `json:"provider"`
}

// ProfileFromPayload builds a Profile from a decoded identity token payload:
// sub, name and the provider of the first linked identity.
func ProfileFromPayload(payload map[string]any) Profile {
	p := Profile{}
	if payload == nil {
		return p
	}
	p.ID, _ = payload["sub"].(string)
	p.DisplayName, _ = payload["name"].(string)
	if identities, ok := payload["identities"].([]any); ok && len(identities) > 0 {
		if first, ok := identities[0].(map[string]any); ok {
			p.Provider, _ = first["provider"].(string)
		}
	}
	return p
}

type contextKey int

const (
	authContextKey contextKey = iota
	profileKey
)

// SetAuthorizationContext stores the authorization context and profile in ctx.
func SetAuthorizationContext(ctx context.Context, ac *AuthorizationContext, profile Profile) context.Context {
	ctx = context.WithValue(ctx, authContextKey, ac)
	return context.WithValue(ctx, profileKey, profile)
}

// GetAuthorizationContext retrieves the authorization context from ctx.
func GetAuthorizationContext(ctx context.Context) (*AuthorizationContext, error) {
	ac, ok := ctx.Value(authContextKey).(*AuthorizationContext)
	if !ok || ac == nil {
		return nil, ErrAuthContextNotFound
	}
	return ac, nil
}

// GetProfile retrieves the profile from ctx.
func GetProfile(ctx context.Context) (Profile, bool) {
	p, ok := ctx.Value(profileKey).(Profile)
	return p, ok
}

// HasAuthorizationContext checks if an authorization context exists in ctx.
func HasAuthorizationContext(ctx context.Context) bool {
	_, err := GetAuthorizationContext(ctx)
	return err == nil
}
