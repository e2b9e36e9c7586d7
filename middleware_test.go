package appidmiddleware

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appid-oss/go-appid-middleware/config"
	"github.com/appid-oss/go-appid-middleware/core"
	"github.com/appid-oss/go-appid-middleware/internal/appidtest"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

type mockLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *mockLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *mockLogger) Debug(msg string, args ...any) { l.record("debug", msg, args) }
func (l *mockLogger) Info(msg string, args ...any)  { l.record("info", msg, args) }
func (l *mockLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args) }
func (l *mockLogger) Error(msg string, args ...any) { l.record("error", msg, args) }

func (l *mockLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

// profileHandler answers with the profile stored by the middleware, or
// {"message":"Anonymous."} when the request carries no authorization context.
func profileHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !core.HasAuthorizationContext(r.Context()) {
		_, _ = w.Write([]byte(`{"message":"Anonymous."}`))
		return
	}

	profile, _ := core.GetProfile(r.Context())
	_ = json.NewEncoder(w).Encode(profile)
}

func decodeProfile(t *testing.T, body []byte) core.Profile {
	t.Helper()
	var profile core.Profile
	require.NoError(t, json.Unmarshal(body, &profile))
	return profile
}

func Test_CheckToken(t *testing.T) {
	appID := appidtest.NewServer(t)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	accessToken := appID.Sign(appID.Claims(""))
	identityToken := appID.Sign(appID.IdentityClaims())

	expired := appID.Claims("")
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	otherTenant := appID.Claims("")
	otherTenant["tenant"] = "other-tenant"

	testCases := []struct {
		name                string
		options             []Option
		method              string
		path                string
		authorization       string
		wantStatusCode      int
		wantWWWAuthenticate string
		wantBody            string
		wantProfile         *core.Profile
	}{
		{
			name:                "it rejects a request without credentials",
			wantStatusCode:      http.StatusUnauthorized,
			wantWWWAuthenticate: `Bearer realm="AppID"`,
			wantBody:            `{"error":"unauthorized","error_description":"Bearer credentials are required."}`,
		},
		{
			name:                "it treats other schemes as no credentials",
			authorization:       "Basic dXNlcjpwYXNz",
			wantStatusCode:      http.StatusUnauthorized,
			wantWWWAuthenticate: `Bearer realm="AppID"`,
			wantBody:            `{"error":"unauthorized","error_description":"Bearer credentials are required."}`,
		},
		{
			name:           "it authenticates an access token with an anonymous profile",
			authorization:  "Bearer " + accessToken,
			wantStatusCode: http.StatusOK,
			wantProfile:    &core.Profile{},
		},
		{
			name:           "it builds the profile from the identity token",
			authorization:  "Bearer " + accessToken + " " + identityToken,
			wantStatusCode: http.StatusOK,
			wantProfile:    &core.Profile{ID: "subject", DisplayName: "test name", Provider: "someprov"},
		},
		{
			name:           "it degrades to an anonymous profile on a bad identity token",
			authorization:  "Bearer " + accessToken + " " + appID.SignWith(otherKey, appidtest.KeyID, appID.IdentityClaims()),
			wantStatusCode: http.StatusOK,
			wantProfile:    &core.Profile{},
		},
		{
			name:                "it rejects a malformed header",
			authorization:       "Bearer a b c",
			wantStatusCode:      http.StatusBadRequest,
			wantWWWAuthenticate: `Bearer scope="appid_default", error="invalid_request", error_description="Authorization header format must be Bearer <access_token> [<identity_token>]"`,
			wantBody:            `{"error":"invalid_request","error_description":"Authorization header format must be Bearer <access_token> [<identity_token>]"}`,
		},
		{
			name:                "it rejects an expired token",
			authorization:       "Bearer " + appID.Sign(expired),
			wantStatusCode:      http.StatusUnauthorized,
			wantWWWAuthenticate: `Bearer scope="appid_default", error="invalid_token", error_description="Token is expired"`,
			wantBody:            `{"error":"invalid_token","error_description":"Token is expired"}`,
		},
		{
			name:                "it rejects a token of another tenant",
			authorization:       "Bearer " + appID.Sign(otherTenant),
			wantStatusCode:      http.StatusUnauthorized,
			wantWWWAuthenticate: `Bearer scope="appid_default", error="invalid_token", error_description="Token is invalid"`,
			wantBody:            `{"error":"invalid_token","error_description":"Token is invalid"}`,
		},
		{
			name:                "it rejects a token signed with an unknown key",
			authorization:       "Bearer " + appID.SignWith(otherKey, "unknown-kid", appID.Claims("")),
			wantStatusCode:      http.StatusUnauthorized,
			wantWWWAuthenticate: `Bearer scope="appid_default", error="invalid_token", error_description="Token is invalid"`,
			wantBody:            `{"error":"invalid_token","error_description":"Token is invalid"}`,
		},
		{
			name:                "it rejects a token signed with the wrong key",
			authorization:       "Bearer " + appID.SignWith(otherKey, appidtest.KeyID, appID.Claims("")),
			wantStatusCode:      http.StatusUnauthorized,
			wantWWWAuthenticate: `Bearer scope="appid_default", error="invalid_token", error_description="Token is invalid"`,
			wantBody:            `{"error":"invalid_token","error_description":"Token is invalid"}`,
		},
		{
			// Signature is verified before expiry: a forged expired token is
			// reported as invalid, not expired.
			name:                "it rejects an expired token signed with the wrong key as invalid",
			authorization:       "Bearer " + appID.SignWith(otherKey, appidtest.KeyID, expired),
			wantStatusCode:      http.StatusUnauthorized,
			wantWWWAuthenticate: `Bearer scope="appid_default", error="invalid_token", error_description="Token is invalid"`,
			wantBody:            `{"error":"invalid_token","error_description":"Token is invalid"}`,
		},
		{
			name:                "it requires the configured scope",
			options:             []Option{WithScope("read")},
			authorization:       "Bearer " + accessToken,
			wantStatusCode:      http.StatusForbidden,
			wantWWWAuthenticate: `Bearer scope="appid_default read", error="insufficient_scope"`,
			wantBody:            `{"error":"insufficient_scope"}`,
		},
		{
			name:           "it accepts a token with the configured scope",
			options:        []Option{WithScope("read")},
			authorization:  "Bearer " + appID.Sign(appID.Claims("read write")),
			wantStatusCode: http.StatusOK,
			wantProfile:    &core.Profile{},
		},
		{
			name:           "it lets requests without credentials through when credentials are optional",
			options:        []Option{WithCredentialsOptional(true)},
			wantStatusCode: http.StatusOK,
			wantBody:       `{"message":"Anonymous."}`,
		},
		{
			name:                "optional credentials are still validated when offered",
			options:             []Option{WithCredentialsOptional(true)},
			authorization:       "Bearer " + appID.Sign(expired),
			wantStatusCode:      http.StatusUnauthorized,
			wantWWWAuthenticate: `Bearer scope="appid_default", error="invalid_token", error_description="Token is expired"`,
			wantBody:            `{"error":"invalid_token","error_description":"Token is expired"}`,
		},
		{
			name:                "it validates on OPTIONS by default",
			method:              http.MethodOptions,
			wantStatusCode:      http.StatusUnauthorized,
			wantWWWAuthenticate: `Bearer realm="AppID"`,
			wantBody:            `{"error":"unauthorized","error_description":"Bearer credentials are required."}`,
		},
		{
			name:           "it skips validation on OPTIONS if validateOnOptions is set to false",
			options:        []Option{WithValidateOnOptions(false)},
			method:         http.MethodOptions,
			wantStatusCode: http.StatusOK,
			wantBody:       `{"message":"Anonymous."}`,
		},
		{
			name:           "token not required for /health",
			options:        []Option{WithExclusionUrls([]string{"/public", "/health"})},
			path:           "/health",
			wantStatusCode: http.StatusOK,
			wantBody:       `{"message":"Anonymous."}`,
		},
		{
			name:                "token required for /secure (not in exclusion list)",
			options:             []Option{WithExclusionUrls([]string{"/public", "/health"})},
			path:                "/secure",
			wantStatusCode:      http.StatusUnauthorized,
			wantWWWAuthenticate: `Bearer realm="AppID"`,
			wantBody:            `{"error":"unauthorized","error_description":"Bearer credentials are required."}`,
		},
		{
			name: "it rejects the request if the token extractor fails",
			options: []Option{
				WithTokenExtractor(func(r *http.Request) (string, error) {
					return "", errors.New("token extractor error")
				}),
			},
			wantStatusCode:      http.StatusBadRequest,
			wantWWWAuthenticate: `Bearer scope="appid_default", error="invalid_request", error_description="Authorization header format must be Bearer <access_token> [<identity_token>]"`,
			wantBody:            `{"error":"invalid_request","error_description":"Authorization header format must be Bearer <access_token> [<identity_token>]"}`,
		},
		{
			name: "it reports the configured scope when the token extractor fails",
			options: []Option{
				WithScope("read"),
				WithTokenExtractor(func(r *http.Request) (string, error) {
					return "", errors.New("token extractor error")
				}),
			},
			wantStatusCode:      http.StatusBadRequest,
			wantWWWAuthenticate: `Bearer scope="appid_default read", error="invalid_request", error_description="Authorization header format must be Bearer <access_token> [<identity_token>]"`,
			wantBody:            `{"error":"invalid_request","error_description":"Authorization header format must be Bearer <access_token> [<identity_token>]"}`,
		},
		{
			name: "it calls the custom error handler when authentication fails",
			options: []Option{
				WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusTeapot)
					_, _ = w.Write(fmt.Appendf(nil, `{"expired":%t}`, errors.Is(err, core.ErrExpiredToken)))
				}),
			},
			authorization:  "Bearer " + appID.Sign(expired),
			wantStatusCode: http.StatusTeapot,
			wantBody:       `{"expired":true}`,
		},
		{
			name:           "it reads the token from a query parameter",
			options:        []Option{WithTokenExtractor(ParameterTokenExtractor("access_token"))},
			path:           "/?access_token=" + accessToken,
			wantStatusCode: http.StatusOK,
			wantProfile:    &core.Profile{},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			opts := append([]Option{WithConfig(appID.Config())}, testCase.options...)
			middleware, err := New(opts...)
			require.NoError(t, err)

			testServer := httptest.NewServer(middleware.CheckToken(http.HandlerFunc(profileHandler)))
			defer testServer.Close()

			method := testCase.method
			if method == "" {
				method = http.MethodGet
			}
			request, err := http.NewRequest(method, testServer.URL+testCase.path, nil)
			require.NoError(t, err)
			if testCase.authorization != "" {
				request.Header.Set("Authorization", testCase.authorization)
			}

			response, err := testServer.Client().Do(request)
			require.NoError(t, err)
			defer response.Body.Close()

			body, err := io.ReadAll(response.Body)
			require.NoError(t, err)

			assert.Equal(t, testCase.wantStatusCode, response.StatusCode)
			assert.Equal(t, "application/json", response.Header.Get("Content-Type"))
			assert.Equal(t, testCase.wantWWWAuthenticate, response.Header.Get("WWW-Authenticate"))

			if testCase.wantProfile != nil {
				if got := decodeProfile(t, body); !cmp.Equal(*testCase.wantProfile, got) {
					t.Fatal(cmp.Diff(*testCase.wantProfile, got))
				}
				return
			}
			assert.JSONEq(t, testCase.wantBody, string(body))
		})
	}
}

func Test_RequireScope(t *testing.T) {
	appID := appidtest.NewServer(t)

	middleware, err := New(WithConfig(appID.Config()))
	require.NoError(t, err)

	handler := middleware.RequireScope("admin")(http.HandlerFunc(profileHandler))

	t.Run("it rejects a token without the scope", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/admin", nil)
		r.Header.Set("Authorization", "Bearer "+appID.Sign(appID.Claims("read")))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, `Bearer scope="appid_default admin", error="insufficient_scope"`, w.Header().Get("WWW-Authenticate"))
	})

	t.Run("it accepts a token with the scope", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/admin", nil)
		r.Header.Set("Authorization", "Bearer "+appID.Sign(appID.Claims("admin")))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func Test_CheckToken_KeysAreFetchedOnce(t *testing.T) {
	appID := appidtest.NewServer(t)

	middleware, err := New(WithConfig(appID.Config()))
	require.NoError(t, err)
	handler := middleware.CheckToken(http.HandlerFunc(profileHandler))

	authorization := "Bearer " + appID.Sign(appID.Claims(""))

	var wg sync.WaitGroup
	codes := make([]int, 20)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", authorization)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	assert.Equal(t, 1, appID.KeyRequests())
}

func Test_CheckToken_Discovery(t *testing.T) {
	appID := appidtest.NewServer(t)

	cfg := appID.Config()
	cfg.UseDiscovery = true

	middleware, err := New(WithConfig(cfg), WithHTTPClient(appID.Client()))
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+appID.Sign(appID.Claims("")))
	w := httptest.NewRecorder()

	middleware.CheckToken(http.HandlerFunc(profileHandler)).ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, appID.KeyRequests())
}

func Test_CheckToken_Misconfigured(t *testing.T) {
	appID := appidtest.NewServer(t)
	logger := &mockLogger{}

	middleware, err := New(
		WithConfig(config.Config{ServerURL: appID.ServerURL()}),
		WithLogger(logger),
	)
	require.NoError(t, err)
	assert.True(t, logger.has("error", "App ID configuration is incomplete, requests will be rejected"))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+appID.Sign(appID.Claims("")))
	w := httptest.NewRecorder()

	middleware.CheckToken(http.HandlerFunc(profileHandler)).ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, appID.KeyRequests())
}

func Test_CheckToken_WithCore(t *testing.T) {
	appID := appidtest.NewServer(t)

	built, err := New(WithConfig(appID.Config()))
	require.NoError(t, err)

	middleware, err := New(WithCore(built.core))
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+appID.Sign(appID.Claims("")))
	w := httptest.NewRecorder()

	middleware.CheckToken(http.HandlerFunc(profileHandler)).ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}
