package appidmiddleware

import (
	"errors"
	"net/http"
	"strings"
)

// TokenExtractor is a function that takes a request as input and returns
// the authorization value to authenticate, in the form of an Authorization
// header: "Bearer <access_token> [<identity_token>]". An error should only be
// returned if credentials were found but are malformed. When they are simply
// not present an empty string should be returned.
type TokenExtractor func(r *http.Request) (string, error)

// AuthHeaderTokenExtractor is a TokenExtractor that returns the Authorization
// header as is.
func AuthHeaderTokenExtractor(r *http.Request) (string, error) {
	return r.Header.Get("Authorization"), nil
}

// CookieTokenExtractor builds a TokenExtractor that takes a request and
// extracts the access token from the cookie using the passed in cookieName.
func CookieTokenExtractor(cookieName string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		cookie, err := r.Cookie(cookieName)
		if errors.Is(err, http.ErrNoCookie) {
			return "", nil // No cookie, then no token, so no error.
		}
		if err != nil {
			return "", err
		}
		return bearer(cookie.Value)
	}
}

// ParameterTokenExtractor returns a TokenExtractor that extracts
// the access token from the specified query string parameter.
func ParameterTokenExtractor(param string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		return bearer(r.URL.Query().Get(param))
	}
}

// MultiTokenExtractor returns a TokenExtractor that runs multiple TokenExtractors
// and takes the one that does not return an empty value. If a TokenExtractor
// returns an error that error is immediately returned.
func MultiTokenExtractor(extractors ...TokenExtractor) TokenExtractor {
	return func(r *http.Request) (string, error) {
		for _, ex := range extractors {
			authorization, err := ex(r)
			if err != nil {
				return "", err
			}

			if authorization != "" {
				return authorization, nil
			}
		}
		return "", nil
	}
}

func bearer(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", nil
	}
	if strings.ContainsAny(token, " \t") {
		return "", errors.New("token must not contain whitespace")
	}
	return "Bearer " + token, nil
}
