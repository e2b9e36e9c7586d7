package web

import (
	"errors"
	"net/http"

	"github.com/appid-oss/go-appid-middleware/config"
	"github.com/appid-oss/go-appid-middleware/core"
)

// Option configures the Strategy.
type Option func(*Strategy) error

// WithConfig sets the App ID credentials. All fields except Issuer,
// UseDiscovery and HTTPTimeout are needed by the web strategy.
func WithConfig(cfg config.Config) Option {
	return func(s *Strategy) error {
		s.cfg = &cfg
		return nil
	}
}

// WithSessionStore sets the store holding the login state and the
// authorization context. Required.
func WithSessionStore(store SessionStore) Option {
	return func(s *Strategy) error {
		if store == nil {
			return ErrSessionStoreNil
		}
		s.sessions = store
		return nil
	}
}

// WithValidator sets the token validator. Share one validator between the
// API middleware and the web strategy to share the key cache.
//
// Default: a validator over a key cache for the configured tenant
func WithValidator(v core.TokenValidator) Option {
	return func(s *Strategy) error {
		if v == nil {
			return ErrValidatorNil
		}
		s.validator = v
		return nil
	}
}

// WithTokenExchanger replaces the call to the token endpoint.
//
// Default: HTTPTokenExchanger
func WithTokenExchanger(e TokenExchanger) Option {
	return func(s *Strategy) error {
		if e == nil {
			return ErrTokenExchangerNil
		}
		s.exchanger = e
		return nil
	}
}

// WithHTTPClient sets the client used for the token exchange and the key
// cache.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Strategy) error {
		if client == nil {
			return ErrHTTPClientNil
		}
		s.httpClient = client
		return nil
	}
}

// WithScope adds scope words to every authorization request.
func WithScope(scope string) Option {
	return func(s *Strategy) error {
		s.scope = scope
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger core.Logger) Option {
	return func(s *Strategy) error {
		if logger == nil {
			return ErrLoggerNil
		}
		s.logger = logger
		return nil
	}
}

// WithMetrics sets an optional metrics sink.
func WithMetrics(metrics core.Metrics) Option {
	return func(s *Strategy) error {
		if metrics == nil {
			return ErrMetricsNil
		}
		s.metrics = metrics
		return nil
	}
}

// AuthOption configures one login handler.
type AuthOption func(*authOptions)

type authOptions struct {
	forceLogin                  bool
	allowAnonymousLogin         bool
	allowCreateNewAnonymousUser bool
	successRedirect             string
	failureRedirect             string
	scope                       string
}

// ForceLogin starts a new login even when the session is already
// authenticated.
func ForceLogin() AuthOption {
	return func(o *authOptions) { o.forceLogin = true }
}

// AllowAnonymousLogin logs the user in anonymously through the appid_anon
// identity provider.
func AllowAnonymousLogin() AuthOption {
	return func(o *authOptions) { o.allowAnonymousLogin = true }
}

// AllowCreateNewAnonymousUser controls whether an anonymous login may create
// a new anonymous user when the session holds no anonymous token.
//
// Default: true
func AllowCreateNewAnonymousUser(allow bool) AuthOption {
	return func(o *authOptions) { o.allowCreateNewAnonymousUser = allow }
}

// SuccessRedirect is where the browser goes after a successful login when
// RequireLogin did not record an original URL.
//
// Default: "/"
func SuccessRedirect(url string) AuthOption {
	return func(o *authOptions) { o.successRedirect = url }
}

// FailureRedirect is where the browser goes after a failed login.
//
// Default: a bare 401 response
func FailureRedirect(url string) AuthOption {
	return func(o *authOptions) { o.failureRedirect = url }
}

// Scope adds scope words to this handler's authorization requests.
func Scope(scope string) AuthOption {
	return func(o *authOptions) { o.scope = scope }
}

// Sentinel errors for configuration validation
var (
	ErrConfigRequired       = errors.New("configuration is required (use WithConfig)")
	ErrSessionStoreRequired = errors.New("session store is required (use WithSessionStore)")
	ErrSessionStoreNil      = errors.New("session store cannot be nil")
	ErrValidatorNil         = errors.New("validator cannot be nil")
	ErrTokenExchangerNil    = errors.New("token exchanger cannot be nil")
	ErrHTTPClientNil        = errors.New("HTTP client cannot be nil")
	ErrLoggerNil            = errors.New("logger cannot be nil")
	ErrMetricsNil           = errors.New("metrics cannot be nil")
)
