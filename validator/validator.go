package validator

import (
	"context"
	"crypto/rsa"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/appid-oss/go-appid-middleware/core"
	"github.com/appid-oss/go-appid-middleware/token"
)

// RS256 is the only signature algorithm App ID issues tokens with.
const RS256 = "RS256"

// KeyProvider resolves a key id to a PEM encoded RSA public key.
// *jwks.KeyCache implements it.
type KeyProvider interface {
	GetKey(ctx context.Context, kid string) (string, error)
}

// Validator validates App ID tokens.
type Validator struct {
	keys   KeyProvider // Required.
	logger core.Logger // Optional.

	now func() time.Time // Internal.

	// parsed caches PEM -> *rsa.PublicKey.
	parsed sync.Map
}

// ValidateToken runs the validation gates in order and returns the token's
// payload once every gate passed:
//
//  1. the token parses (invalidTokenFormat)
//  2. alg is RS256 (invalidAlgorithm)
//  3. kid is present (missingTokenKid)
//  4. the key for kid resolves (missingPublicKey, or invalidTokenSignature
//     wrapping publicKeyNotFound)
//  5. the RS256 signature verifies (invalidTokenSignature)
//  6. exp is in the future (expiredToken)
//  7. tenant matches vc.TenantID (invalidTenant)
//  8. with vc.VerifyAudienceAndIssuer, aud contains vc.ClientID
//     (invalidAudience) and iss equals vc.Issuer (invalidIssuer)
//
// The first failing gate's *core.Error is returned and nothing else.
func (v *Validator) ValidateToken(ctx context.Context, raw string, vc core.ValidationContext) (map[string]any, error) {
	tok, err := token.Parse(raw)
	if err != nil {
		return nil, err
	}

	if alg := tok.Algorithm(); alg != RS256 {
		return nil, core.Errorf(core.KindInvalidAlgorithm, "unsupported algorithm %q, expected %s", alg, RS256)
	}

	kid := tok.KeyID()
	if kid == "" {
		return nil, core.Errorf(core.KindMissingTokenKid, "token header has no kid")
	}

	publicKey, err := v.resolveKey(ctx, kid)
	if err != nil {
		return nil, err
	}

	if err := verifySignature(tok, publicKey); err != nil {
		return nil, err
	}

	if err := v.validateExpiry(tok); err != nil {
		return nil, err
	}

	if tenant := tok.Tenant(); vc.TenantID == "" || tenant != vc.TenantID {
		return nil, core.Errorf(core.KindInvalidTenant, "token tenant %q does not match %q", tenant, vc.TenantID)
	}

	if vc.VerifyAudienceAndIssuer {
		if aud := tok.Audience(); vc.ClientID == "" || !slices.Contains(aud, vc.ClientID) {
			return nil, core.Errorf(core.KindInvalidAudience, "token audience %v does not contain %q", aud, vc.ClientID)
		}
		if iss := tok.Issuer(); vc.Issuer == "" || iss != vc.Issuer {
			return nil, core.Errorf(core.KindInvalidIssuer, "token issuer %q does not match %q", iss, vc.Issuer)
		}
	}

	if v.logger != nil {
		v.logger.Debug("token validated", "kid", kid, "tenant", vc.TenantID)
	}

	return tok.Payload, nil
}

func (v *Validator) resolveKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	pemKey, err := v.keys.GetKey(ctx, kid)
	if err != nil {
		if v.logger != nil {
			v.logger.Warn("public key lookup failed", "kid", kid, "error", err)
		}
		switch {
		case errors.Is(err, core.ErrPublicKeyNotFound):
			return nil, core.NewError(core.KindInvalidTokenSignature, "no public key matches the token kid", err)
		case errors.Is(err, core.ErrMissingPublicKey):
			return nil, err
		default:
			return nil, core.NewError(core.KindMissingPublicKey, "public key lookup failed", err)
		}
	}

	if cached, ok := v.parsed.Load(pemKey); ok {
		return cached.(*rsa.PublicKey), nil
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemKey))
	if err != nil {
		return nil, core.NewError(core.KindMissingPublicKey, "public key is not a valid RSA PEM", err)
	}
	v.parsed.Store(pemKey, publicKey)

	return publicKey, nil
}

func verifySignature(tok *token.Token, publicKey *rsa.PublicKey) error {
	signature, err := tok.DecodedSignature()
	if err != nil {
		return core.NewError(core.KindInvalidTokenSignature, "signature is not base64url", err)
	}

	if err := jwt.SigningMethodRS256.Verify(tok.SigningInput(), signature, publicKey); err != nil {
		return core.NewError(core.KindInvalidTokenSignature, "signature verification failed", err)
	}

	return nil
}

func (v *Validator) validateExpiry(tok *token.Token) error {
	exp, ok := tok.Expiry()
	if !ok {
		return core.Errorf(core.KindExpiredToken, "token has no exp claim")
	}

	if v.now().Unix() >= exp {
		return core.Errorf(core.KindExpiredToken, "token expired at %s", time.Unix(exp, 0).UTC().Format(time.RFC3339))
	}

	return nil
}
