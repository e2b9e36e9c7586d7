package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxDocumentSize caps the discovery document.
const maxDocumentSize = 1024 * 1024

// Endpoints holds the App ID OAuth server endpoints.
type Endpoints struct {
	Authorization string `json:"authorization_endpoint"`
	Token         string `json:"token_endpoint"`
	PublicKeys    string `json:"jwks_uri"`
	UserInfo      string `json:"userinfo_endpoint"`
	Issuer        string `json:"issuer"`
}

// FromServerURL derives the endpoints from the OAuth server URL without any
// network call. Issuer is left empty: App ID issuers are the server host and
// the caller knows how it wants to compare them.
func FromServerURL(serverURL string) Endpoints {
	base := strings.TrimRight(serverURL, "/")
	if base == "" {
		return Endpoints{}
	}
	return Endpoints{
		Authorization: base + "/authorization",
		Token:         base + "/token",
		PublicKeys:    base + "/publickeys",
		UserInfo:      base + "/userinfo",
	}
}

// Discover reads the endpoints from <serverURL>/.well-known/openid-configuration.
func Discover(ctx context.Context, client *http.Client, serverURL string) (*Endpoints, error) {
	if client == nil {
		client = http.DefaultClient
	}

	discoveryURL := strings.TrimRight(serverURL, "/") + "/.well-known/openid-configuration"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not build request to get well known endpoints: %w", err)
	}

	r, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not get well known endpoints from url %s: %w", discoveryURL, err)
	}
	defer r.Body.Close()

	if r.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("well known endpoints request returned status %d, expected 200", r.StatusCode)
	}

	var endpoints Endpoints
	if err := json.NewDecoder(io.LimitReader(r.Body, maxDocumentSize)).Decode(&endpoints); err != nil {
		return nil, fmt.Errorf("could not decode json body when getting well known endpoints: %w", err)
	}

	if endpoints.PublicKeys == "" {
		return nil, fmt.Errorf("well known endpoints document has no jwks_uri")
	}
	if endpoints.Authorization == "" || endpoints.Token == "" {
		return nil, fmt.Errorf("well known endpoints document has no authorization or token endpoint")
	}

	return &endpoints, nil
}
