package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/appid-oss/go-appid-middleware/config"
	"github.com/appid-oss/go-appid-middleware/core"
	"github.com/appid-oss/go-appid-middleware/jwks"
	"github.com/appid-oss/go-appid-middleware/validator"
)

// DefaultScope is requested on every authorization.
const DefaultScope = "openid"

// Strategy runs the App ID authorization code login for browser
// applications.
type Strategy struct {
	cfg        *config.Config
	oauth      *oauth2.Config
	validator  core.TokenValidator
	exchanger  TokenExchanger
	sessions   SessionStore
	httpClient *http.Client
	scope      string
	logger     core.Logger
	metrics    core.Metrics

	// misconfigured is set when the credentials are incomplete; every login
	// then fails.
	misconfigured bool
}

// New creates a Strategy. WithConfig and WithSessionStore are required.
//
// Incomplete credentials do not fail construction: the problem is logged and
// every login fails.
//
// Example:
//
//	strategy, err := web.New(
//	    web.WithConfig(cfg),
//	    web.WithSessionStore(sessions),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	mux.Handle("/login", strategy.Handler())
//	mux.Handle(config.CallbackPath, strategy.Handler())
//	mux.Handle("/protected", strategy.RequireLogin("/login")(protectedHandler))
func New(opts ...Option) (*Strategy, error) {
	s := &Strategy{
		metrics: core.NoopMetrics(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if s.cfg == nil {
		return nil, ErrConfigRequired
	}
	if s.sessions == nil {
		return nil, ErrSessionStoreRequired
	}

	cfg := *s.cfg
	if err := cfg.ValidateWeb(); err != nil {
		s.misconfigured = true
		if s.logger != nil {
			s.logger.Error("App ID configuration is incomplete, logins will fail", "error", err)
		}
	}

	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: cfg.Timeout()}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()
	endpoints, err := cfg.ResolveEndpoints(ctx, s.httpClient)
	if err != nil && s.logger != nil {
		s.logger.Warn("deriving endpoints from the server URL", "error", err)
	}

	s.oauth = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.Secret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       strings.Fields(DefaultScope + " " + s.scope),
		Endpoint: oauth2.Endpoint{
			AuthURL:   endpoints.Authorization,
			TokenURL:  endpoints.Token,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	if s.exchanger == nil {
		s.exchanger = &HTTPTokenExchanger{
			TokenURL:    endpoints.Token,
			ClientID:    cfg.ClientID,
			Secret:      cfg.Secret,
			RedirectURI: cfg.RedirectURI,
			Client:      s.httpClient,
		}
	}

	if s.validator == nil {
		v, err := s.newValidator(endpoints.PublicKeys)
		if err != nil {
			return nil, fmt.Errorf("failed to create validator: %w", err)
		}
		s.validator = v
	}

	return s, nil
}

func (s *Strategy) newValidator(publicKeysURL string) (*validator.Validator, error) {
	cacheOpts := []jwks.Option{
		jwks.WithPublicKeysURL(publicKeysURL),
		jwks.WithHTTPClient(s.httpClient),
		jwks.WithMetrics(s.metrics),
	}
	validatorOpts := []validator.Option{}
	if s.logger != nil {
		cacheOpts = append(cacheOpts, jwks.WithLogger(s.logger))
		validatorOpts = append(validatorOpts, validator.WithLogger(s.logger))
	}

	cache, err := jwks.New(cacheOpts...)
	if err != nil {
		return nil, err
	}
	return validator.New(append(validatorOpts, validator.WithKeyProvider(cache))...)
}

// validationContext is the full web policy: tenant, audience and issuer.
func (s *Strategy) validationContext() core.ValidationContext {
	return core.ValidationContext{
		TenantID:                s.cfg.TenantID,
		ClientID:                s.cfg.ClientID,
		Issuer:                  s.cfg.TokenIssuer(),
		VerifyAudienceAndIssuer: true,
	}
}

// Handler returns the login handler. Mount it on the login path and on the
// redirect URI's path:
//
//   - with an error query parameter the login fails;
//   - with a code query parameter the callback is completed and the
//     authorization context is stored in the session;
//   - otherwise the browser is redirected to App ID, unless the session is
//     already authenticated.
func (s *Strategy) Handler(opts ...AuthOption) http.Handler {
	o := authOptions{allowCreateNewAnonymousUser: true}
	for _, opt := range opts {
		opt(&o)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		switch {
		case query.Get("error") != "":
			s.fail(w, r, o, "authorization server returned an error",
				fmt.Errorf("%s: %s", query.Get("error"), query.Get("error_description")))
		case query.Get("code") != "":
			s.callback(w, r, o, query.Get("code"), query.Get("state"))
		default:
			s.authorize(w, r, o)
		}
	})
}

func (s *Strategy) authorize(w http.ResponseWriter, r *http.Request, o authOptions) {
	if s.misconfigured {
		s.fail(w, r, o, "login is not configured", nil)
		return
	}

	session, err := s.sessions.Session(r)
	if err != nil {
		s.fail(w, r, o, "could not load the session", err)
		return
	}

	existing, _ := AuthorizationContext(session)
	if existing != nil && !o.forceLogin && !o.allowAnonymousLogin {
		if s.logger != nil {
			s.logger.Debug("session is already authenticated")
		}
		s.succeed(w, r, o, session)
		return
	}

	params := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("scope", strings.Join(append(slices.Clone(s.oauth.Scopes), strings.Fields(o.scope)...), " ")),
	}

	previousAnonymous := existing.IsAnonymous()
	if previousAnonymous {
		params = append(params, oauth2.SetAuthURLParam("appid_access_token", existing.AccessToken))
	}

	if o.allowAnonymousLogin {
		if !previousAnonymous && !o.allowCreateNewAnonymousUser {
			s.fail(w, r, o, "creating new anonymous users is not allowed", nil)
			return
		}
		params = append(params, oauth2.SetAuthURLParam("idp", core.AnonymousIDP))
	}

	state := uuid.NewString()
	if err := setLoginState(session, loginState{State: state, IsAnonymous: o.allowAnonymousLogin}); err != nil {
		s.fail(w, r, o, "could not store the login state", err)
		return
	}
	if err := s.sessions.Save(w, r, session); err != nil {
		s.fail(w, r, o, "could not save the session", err)
		return
	}

	if s.logger != nil {
		s.logger.Debug("redirecting to the authorization endpoint", "anonymous", o.allowAnonymousLogin)
	}
	http.Redirect(w, r, s.oauth.AuthCodeURL(state, params...), http.StatusFound)
}

func (s *Strategy) callback(w http.ResponseWriter, r *http.Request, o authOptions, code, state string) {
	if s.misconfigured {
		s.fail(w, r, o, "login is not configured", nil)
		return
	}

	session, err := s.sessions.Session(r)
	if err != nil {
		s.fail(w, r, o, "could not load the session", err)
		return
	}

	stored, ok := getLoginState(session)
	if !ok {
		s.fail(w, r, o, "no login in progress", nil)
		return
	}

	// The state is spent by this callback whatever its outcome.
	session.Delete(StateKey)
	if err := s.sessions.Save(w, r, session); err != nil {
		s.fail(w, r, o, "could not save the session", err)
		return
	}
	if !stored.IsAnonymous && stored.State != state {
		s.fail(w, r, o, "state parameter does not match", nil)
		return
	}

	ctx := r.Context()
	tokens, err := s.exchanger.Exchange(ctx, code)
	if err != nil {
		s.fail(w, r, o, "token exchange failed", err)
		return
	}

	vc := s.validationContext()

	accessPayload, err := s.validator.ValidateToken(ctx, tokens.AccessToken, vc)
	if err != nil {
		s.fail(w, r, o, "access token validation failed", err)
		return
	}

	ac := &core.AuthorizationContext{
		AccessToken:        tokens.AccessToken,
		AccessTokenPayload: accessPayload,
	}

	if tokens.IdentityToken != "" {
		identityPayload, err := s.validator.ValidateToken(ctx, tokens.IdentityToken, vc)
		if err != nil {
			s.fail(w, r, o, "identity token validation failed", err)
			return
		}
		ac.IdentityToken = tokens.IdentityToken
		ac.IdentityTokenPayload = identityPayload
	}

	if err := setAuthorizationContext(session, ac); err != nil {
		s.fail(w, r, o, "could not store the authorization context", err)
		return
	}

	s.metrics.IncCounter("appid_web_logins_total", map[string]string{"result": "success"})
	if s.logger != nil {
		s.logger.Info("login completed", "subject", ac.AccessTokenPayload["sub"], "anonymous", ac.IsAnonymous())
	}

	s.succeed(w, r, o, session)
}

// succeed saves the session and redirects to the URL RequireLogin recorded,
// the success redirect, or "/".
func (s *Strategy) succeed(w http.ResponseWriter, r *http.Request, o authOptions, session Session) {
	target := o.successRedirect
	if original, ok := session.Get(OriginalURLKey); ok && original != "" {
		target = original
		session.Delete(OriginalURLKey)
	}
	if target == "" {
		target = "/"
	}

	if err := s.sessions.Save(w, r, session); err != nil {
		s.fail(w, r, o, "could not save the session", err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// fail logs the cause and answers without revealing it.
func (s *Strategy) fail(w http.ResponseWriter, r *http.Request, o authOptions, reason string, err error) {
	s.metrics.IncCounter("appid_web_logins_total", map[string]string{"result": "failure"})
	if s.logger != nil {
		s.logger.Warn("login failed", "reason", reason, "error", err, "path", r.URL.Path)
	}

	if o.failureRedirect != "" {
		http.Redirect(w, r, o.failureRedirect, http.StatusFound)
		return
	}
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}

// RequireLogin returns a middleware that lets authenticated sessions through
// with the authorization context and profile in the request context, and
// redirects everything else to loginPath after recording the requested URL.
func (s *Strategy) RequireLogin(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := s.sessions.Session(r)
			if err != nil {
				if s.logger != nil {
					s.logger.Error("could not load the session", "error", err)
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			ac, err := AuthorizationContext(session)
			if err == nil {
				profile := core.ProfileFromPayload(ac.IdentityTokenPayload)
				next.ServeHTTP(w, r.WithContext(core.SetAuthorizationContext(r.Context(), ac, profile)))
				return
			}
			if !errors.Is(err, core.ErrAuthContextNotFound) && s.logger != nil {
				s.logger.Warn("discarding unreadable authorization context", "error", err)
			}

			session.Set(OriginalURLKey, r.URL.RequestURI())
			if err := s.sessions.Save(w, r, session); err != nil {
				if s.logger != nil {
					s.logger.Error("could not save the session", "error", err)
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			http.Redirect(w, r, loginPath, http.StatusFound)
		})
	}
}

// Logout removes the authorization context from the session and redirects
// to redirect, or "/" when empty.
func (s *Strategy) Logout(redirect string) http.Handler {
	if redirect == "" {
		redirect = "/"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := s.sessions.Session(r)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("could not load the session", "error", err)
			}
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		session.Delete(AuthContextKey)
		session.Delete(StateKey)
		session.Delete(OriginalURLKey)

		if err := s.sessions.Save(w, r, session); err != nil {
			if s.logger != nil {
				s.logger.Error("could not save the session", "error", err)
			}
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, redirect, http.StatusFound)
	})
}
