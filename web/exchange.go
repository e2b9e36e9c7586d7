package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/appid-oss/go-appid-middleware/core"
)

// Tokens are the tokens returned for an authorization code.
type Tokens struct {
	AccessToken   string `json:"access_token"`
	IdentityToken string `json:"id_token,omitempty"`
	TokenType     string `json:"token_type,omitempty"`
	ExpiresIn     int    `json:"expires_in,omitempty"`
}

// TokenExchanger trades an authorization code for tokens.
type TokenExchanger interface {
	Exchange(ctx context.Context, code string) (*Tokens, error)
}

// HTTPTokenExchanger calls the App ID token endpoint.
type HTTPTokenExchanger struct {
	TokenURL    string
	ClientID    string
	Secret      string
	RedirectURI string
	Client      *http.Client
}

type tokenRequest struct {
	ClientID    string `json:"client_id"`
	GrantType   string `json:"grant_type"`
	RedirectURI string `json:"redirect_uri"`
	Code        string `json:"code"`
}

// maxTokenResponseSize bounds the token endpoint response.
const maxTokenResponseSize = 1 << 20

// Exchange posts the code as JSON with the client credentials in a Basic
// authorization header. A status other than 200 or a response without an
// access token is a transportError.
func (e *HTTPTokenExchanger) Exchange(ctx context.Context, code string) (*Tokens, error) {
	body, err := json.Marshal(tokenRequest{
		ClientID:    e.ClientID,
		GrantType:   "authorization_code",
		RedirectURI: e.RedirectURI,
		Code:        code,
	})
	if err != nil {
		return nil, core.NewError(core.KindTransport, "could not encode the token request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.TokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, core.NewError(core.KindTransport, "could not build the token request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(e.ClientID, e.Secret)

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, core.NewError(core.KindTransport, "token request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxTokenResponseSize))
		return nil, core.Errorf(core.KindTransport, "token endpoint answered %d", resp.StatusCode)
	}

	var tokens Tokens
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxTokenResponseSize)).Decode(&tokens); err != nil {
		return nil, core.NewError(core.KindTransport, "could not decode the token response", err)
	}
	if tokens.AccessToken == "" {
		return nil, core.NewError(core.KindTransport, "token response has no access_token", nil)
	}

	return &tokens, nil
}

var _ TokenExchanger = (*HTTPTokenExchanger)(nil)
