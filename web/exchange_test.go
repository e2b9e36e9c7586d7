package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appid-oss/go-appid-middleware/core"
)

func TestHTTPTokenExchanger(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantTokens *Tokens
		wantErr    string
	}{
		{
			name:       "access and identity token",
			status:     http.StatusOK,
			body:       `{"access_token":"access","id_token":"identity","token_type":"Bearer","expires_in":3600}`,
			wantTokens: &Tokens{AccessToken: "access", IdentityToken: "identity", TokenType: "Bearer", ExpiresIn: 3600},
		},
		{
			name:       "access token only",
			status:     http.StatusOK,
			body:       `{"access_token":"access"}`,
			wantTokens: &Tokens{AccessToken: "access"},
		},
		{
			name:    "non 200 status",
			status:  http.StatusUnauthorized,
			body:    `{"error":"invalid_client"}`,
			wantErr: "token endpoint answered 401",
		},
		{
			name:    "missing access token",
			status:  http.StatusOK,
			body:    `{"id_token":"identity"}`,
			wantErr: "token response has no access_token",
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `{"access_token":`,
			wantErr: "could not decode the token response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got tokenRequest
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				user, secret, ok := r.BasicAuth()
				assert.True(t, ok)
				assert.Equal(t, "client", user)
				assert.Equal(t, "secret", secret)

				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(server.Close)

			exchanger := &HTTPTokenExchanger{
				TokenURL:    server.URL + "/token",
				ClientID:    "client",
				Secret:      "secret",
				RedirectURI: "https://app.example.com/callback",
				Client:      server.Client(),
			}

			tokens, err := exchanger.Exchange(context.Background(), "the-code")
			assert.Equal(t, tokenRequest{
				ClientID:    "client",
				GrantType:   "authorization_code",
				RedirectURI: "https://app.example.com/callback",
				Code:        "the-code",
			}, got)

			if tt.wantErr != "" {
				assert.ErrorIs(t, err, core.ErrTransport)
				assert.ErrorContains(t, err, tt.wantErr)
				assert.Nil(t, tokens)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTokens, tokens)
		})
	}

	t.Run("unreachable endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		server.Close()

		exchanger := &HTTPTokenExchanger{TokenURL: server.URL + "/token"}
		_, err := exchanger.Exchange(context.Background(), "the-code")
		assert.ErrorIs(t, err, core.ErrTransport)
	})
}
