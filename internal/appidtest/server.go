// Package appidtest runs a fake App ID tenant for tests: it publishes a
// signing key, serves discovery and answers the token endpoint.
package appidtest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/stretchr/testify/require"

	"github.com/appid-oss/go-appid-middleware/config"
	"github.com/appid-oss/go-appid-middleware/core"
	"github.com/appid-oss/go-appid-middleware/jwks"
	"github.com/appid-oss/go-appid-middleware/validator"
)

const (
	TenantID    = "test-tenant"
	ClientID    = "test-client"
	Secret      = "test-secret"
	KeyID       = "appid-test-key"
	RedirectURI = "https://app.example.com/ibm/bluemix/appid/callback"
)

// TokenRequest is a request received by the token endpoint.
type TokenRequest struct {
	ClientID     string `json:"client_id"`
	GrantType    string `json:"grant_type"`
	RedirectURI  string `json:"redirect_uri"`
	Code         string `json:"code"`
	BasicUser    string `json:"-"`
	BasicSecret  string `json:"-"`
	BasicPresent bool   `json:"-"`
}

// Server is a fake App ID tenant.
type Server struct {
	t        testing.TB
	server   *httptest.Server
	key      *rsa.PrivateKey
	keysBody []byte

	keyRequests atomic.Int32

	mu            sync.Mutex
	tokenHandler  http.HandlerFunc
	tokenRequests []TokenRequest
}

// NewServer starts a fake tenant that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	s := &Server{t: t, key: key, keysBody: publicKeysBody(t, key)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /oauth/v4/"+TenantID+"/publickeys", s.publicKeys)
	mux.HandleFunc("POST /oauth/v4/"+TenantID+"/token", s.token)
	mux.HandleFunc("GET /oauth/v4/"+TenantID+"/.well-known/openid-configuration", s.discovery)

	s.server = httptest.NewServer(mux)
	t.Cleanup(s.server.Close)

	return s
}

// ServerURL is the tenant's OAuth server URL.
func (s *Server) ServerURL() string {
	return s.server.URL + "/oauth/v4/" + TenantID
}

// Issuer is the iss claim of tokens issued by the server.
func (s *Server) Issuer() string {
	u, err := url.Parse(s.server.URL)
	require.NoError(s.t, err)
	return u.Host
}

// Client returns a client that reaches the server.
func (s *Server) Client() *http.Client {
	return s.server.Client()
}

// Config returns complete credentials for the tenant.
func (s *Server) Config() config.Config {
	return config.Config{
		ServerURL:   s.ServerURL(),
		ClientID:    ClientID,
		Secret:      Secret,
		TenantID:    TenantID,
		RedirectURI: RedirectURI,
	}
}

// KeyRequests reports how many times the public keys were fetched.
func (s *Server) KeyRequests() int {
	return int(s.keyRequests.Load())
}

// TokenRequests returns the requests received by the token endpoint.
func (s *Server) TokenRequests() []TokenRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TokenRequest(nil), s.tokenRequests...)
}

// HandleToken replaces the token endpoint's response.
func (s *Server) HandleToken(h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenHandler = h
}

// Claims returns the claims of a valid access token with the given scope
// words added to appid_default.
func (s *Server) Claims(scope string) jwt.MapClaims {
	if scope != "" {
		scope = " " + scope
	}
	return jwt.MapClaims{
		"iss":    s.Issuer(),
		"aud":    []string{ClientID},
		"sub":    "subject",
		"tenant": TenantID,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"iat":    time.Now().Unix(),
		"amr":    []string{"cloud_directory"},
		"scope":  "appid_default openid" + scope,
	}
}

// IdentityClaims returns the claims of a valid identity token.
func (s *Server) IdentityClaims() jwt.MapClaims {
	claims := s.Claims("")
	delete(claims, "scope")
	claims["name"] = "test name"
	claims["identities"] = []map[string]any{{"provider": "someprov", "id": "someid"}}
	return claims
}

// AnonymousClaims returns the claims of an anonymous access token.
func (s *Server) AnonymousClaims() jwt.MapClaims {
	claims := s.Claims("")
	claims["sub"] = "anonymous-subject"
	claims["amr"] = []string{"appid_anon"}
	return claims
}

// Sign signs claims with the published key.
func (s *Server) Sign(claims jwt.MapClaims) string {
	return s.SignWith(s.key, KeyID, claims)
}

// SignWith signs claims with an arbitrary key and kid.
func (s *Server) SignWith(key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	s.t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	signed, err := tok.SignedString(key)
	require.NoError(s.t, err)
	return signed
}

func (s *Server) publicKeys(w http.ResponseWriter, _ *http.Request) {
	s.keyRequests.Add(1)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(s.keysBody)
}

func publicKeysBody(t testing.TB, privateKey *rsa.PrivateKey) []byte {
	t.Helper()

	key, err := jwk.Import(&privateKey.PublicKey)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, KeyID))
	require.NoError(t, key.Set(jwk.AlgorithmKey, "RS256"))

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(key))

	body, err := json.Marshal(set)
	require.NoError(t, err)
	return body
}

func (s *Server) discovery(w http.ResponseWriter, _ *http.Request) {
	base := s.ServerURL()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"issuer":                 s.Issuer(),
		"authorization_endpoint": base + "/authorization",
		"token_endpoint":         base + "/token",
		"jwks_uri":               base + "/publickeys",
		"userinfo_endpoint":      base + "/userinfo",
	})
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.BasicUser, req.BasicSecret, req.BasicPresent = r.BasicAuth()

	s.mu.Lock()
	s.tokenRequests = append(s.tokenRequests, req)
	handler := s.tokenHandler
	s.mu.Unlock()

	if handler != nil {
		handler(w, r)
		return
	}

	if req.BasicUser != ClientID || req.BasicSecret != Secret {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	access := s.Claims("")
	if req.Code == "anonymous-code" {
		access = s.AnonymousClaims()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": s.Sign(access),
		"id_token":     s.Sign(s.IdentityClaims()),
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

// Core returns an API core backed by the server's keys.
func (s *Server) Core(opts ...core.Option) *core.Core {
	s.t.Helper()

	cache, err := jwks.New(
		jwks.WithPublicKeysURL(s.ServerURL()+"/publickeys"),
		jwks.WithHTTPClient(s.Client()),
	)
	require.NoError(s.t, err)

	v, err := validator.New(validator.WithKeyProvider(cache))
	require.NoError(s.t, err)

	c, err := core.New(append([]core.Option{
		core.WithValidator(v),
		core.WithTenantID(TenantID),
	}, opts...)...)
	require.NoError(s.t, err)
	return c
}
