/*
Package validator validates App ID access and identity tokens.

Tokens are RS256 signed JWTs. The public key for a token is looked up by its
kid header through a KeyProvider, normally a *jwks.KeyCache.

	cache, err := jwks.New(jwks.WithPublicKeysURL(publicKeysURL))
	if err != nil {
	    log.Fatal(err)
	}

	v, err := validator.New(validator.WithKeyProvider(cache))
	if err != nil {
	    log.Fatal(err)
	}

	payload, err := v.ValidateToken(ctx, rawToken, core.ValidationContext{
	    TenantID: tenantID,
	})

# Validation context

The tenant is always checked. Audience and issuer are only checked when
VerifyAudienceAndIssuer is set, which the web flow does because it knows its
own client id:

	payload, err := v.ValidateToken(ctx, rawToken, core.ValidationContext{
	    TenantID:                tenantID,
	    ClientID:                clientID,
	    Issuer:                  "us-south.appid.cloud.ibm.com",
	    VerifyAudienceAndIssuer: true,
	})

The aud claim may be a string or an array; it must contain the client id.

# Errors

Every failure is a *core.Error. Match on the kind:

	switch {
	case errors.Is(err, core.ErrExpiredToken):
	case errors.Is(err, core.ErrMissingPublicKey):
	    // the key server could not be reached
	case errors.Is(err, core.ErrInvalidTokenSignature):
	    // includes unknown key ids, which also match core.ErrPublicKeyNotFound
	}
*/
package validator
