package appidmiddleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/appid-oss/go-appid-middleware/config"
	"github.com/appid-oss/go-appid-middleware/core"
	"github.com/appid-oss/go-appid-middleware/jwks"
	"github.com/appid-oss/go-appid-middleware/validator"
)

// Middleware protects net/http handlers with App ID bearer tokens.
type Middleware struct {
	core                *core.Core
	errorHandler        ErrorHandler
	tokenExtractor      TokenExtractor
	validateOnOptions   bool
	credentialsOptional bool
	exclusionURLHandler ExclusionURLHandler
	logger              Logger

	// Temporary fields used during construction
	cfg        *config.Config
	httpClient *http.Client
	scope      string
	metrics    core.Metrics
	tracer     core.Tracer
}

// ExclusionURLHandler is a function that takes in a http.Request and returns
// true if the request should be excluded from token validation.
type ExclusionURLHandler func(r *http.Request) bool

// New constructs a new Middleware instance with the supplied options.
// Either WithConfig or WithCore is required.
//
// Example:
//
//	cfg, err := config.FromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	middleware, err := appidmiddleware.New(
//	    appidmiddleware.WithConfig(cfg),
//	    appidmiddleware.WithLogger(slog.Default()),
//	)
//	if err != nil {
//	    log.Fatalf("failed to create middleware: %v", err)
//	}
func New(opts ...Option) (*Middleware, error) {
	m := &Middleware{
		validateOnOptions: true,
		metrics:           core.NoopMetrics(),
		tracer:            core.NoopTracer(),
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if m.core == nil && m.cfg == nil {
		return nil, ErrConfigRequired
	}

	m.applyDefaults()

	if m.core == nil {
		if err := m.createCore(); err != nil {
			return nil, fmt.Errorf("failed to create core: %w", err)
		}
	}

	return m, nil
}

// applyDefaults sets default values for optional fields
func (m *Middleware) applyDefaults() {
	if m.errorHandler == nil {
		m.errorHandler = DefaultErrorHandler
	}
	if m.tokenExtractor == nil {
		m.tokenExtractor = AuthHeaderTokenExtractor
	}
	if m.httpClient == nil && m.cfg != nil {
		m.httpClient = &http.Client{Timeout: m.cfg.Timeout()}
	}
}

// createCore wires the key cache, validator and core from the configuration.
// An incomplete configuration is logged and yields a middleware that rejects
// every request.
func (m *Middleware) createCore() error {
	cfg := *m.cfg

	if err := cfg.ValidateAPI(); err != nil && m.logger != nil {
		m.logger.Error("App ID configuration is incomplete, requests will be rejected", "error", err)
	}

	endpoints := m.resolveEndpoints(cfg)

	cacheOpts := []jwks.Option{
		jwks.WithPublicKeysURL(endpoints.PublicKeys),
		jwks.WithHTTPClient(m.httpClient),
		jwks.WithMetrics(m.metrics),
	}
	validatorOpts := []validator.Option{}
	coreOpts := []core.Option{
		core.WithTenantID(cfg.TenantID),
		core.WithScope(m.scope),
		core.WithMetrics(m.metrics),
		core.WithTracer(m.tracer),
	}
	if m.logger != nil {
		cacheOpts = append(cacheOpts, jwks.WithLogger(m.logger))
		validatorOpts = append(validatorOpts, validator.WithLogger(m.logger))
		coreOpts = append(coreOpts, core.WithLogger(m.logger))
	}

	cache, err := jwks.New(cacheOpts...)
	if err != nil {
		return err
	}

	v, err := validator.New(append(validatorOpts, validator.WithKeyProvider(cache))...)
	if err != nil {
		return err
	}

	c, err := core.New(append(coreOpts, core.WithValidator(v))...)
	if err != nil {
		return err
	}

	m.core = c
	return nil
}

func (m *Middleware) resolveEndpoints(cfg config.Config) config.Endpoints {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()

	endpoints, err := cfg.ResolveEndpoints(ctx, m.httpClient)
	if err != nil && m.logger != nil {
		m.logger.Warn("deriving endpoints from the server URL", "error", err)
	}
	return endpoints
}

// CheckToken authenticates every request with the configured scope before
// passing it to next. The authorization context and profile are stored in
// the request context; read them with core.GetAuthorizationContext and
// core.GetProfile.
func (m *Middleware) CheckToken(next http.Handler) http.Handler {
	return m.handler(next, "")
}

// RequireScope returns a middleware like CheckToken that additionally
// requires the given space separated scope words.
//
// Example:
//
//	mux.Handle("/admin", middleware.RequireScope("admin")(adminHandler))
func (m *Middleware) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.handler(next, scope)
	}
}

func (m *Middleware) handler(next http.Handler, scope string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// If there's an exclusion handler and the URL matches, skip validation
		if m.exclusionURLHandler != nil && m.exclusionURLHandler(r) {
			if m.logger != nil {
				m.logger.Debug("skipping token validation for excluded URL",
					"method", r.Method,
					"path", r.URL.Path)
			}
			next.ServeHTTP(w, r)
			return
		}
		// If we don't validate on OPTIONS and this is OPTIONS
		// then continue onto next without validating.
		if !m.validateOnOptions && r.Method == http.MethodOptions {
			if m.logger != nil {
				m.logger.Debug("skipping token validation for OPTIONS request")
			}
			next.ServeHTTP(w, r)
			return
		}

		authorization, err := m.tokenExtractor(r)
		if err != nil {
			if m.logger != nil {
				m.logger.Error("failed to extract token from request",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path)
			}
			m.errorHandler(w, r, core.FailureFor(errors.Join(core.ErrInvalidAuthorizationHeader, err), m.core.RequiredScope(scope)))
			return
		}

		result := m.core.Authenticate(r.Context(), authorization, scope)

		switch result.Outcome {
		case core.OutcomeSuccess:
			ctx := core.SetAuthorizationContext(r.Context(), result.AuthContext, result.Profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		case core.OutcomePass:
			if m.credentialsOptional {
				if m.logger != nil {
					m.logger.Debug("no credentials provided, continuing without authorization context (credentials optional)")
				}
				next.ServeHTTP(w, r)
				return
			}
			m.errorHandler(w, r, result.Failure)
		default:
			if m.logger != nil {
				m.logger.Warn("token validation failed",
					"error", result.Failure,
					"method", r.Method,
					"path", r.URL.Path)
			}
			m.errorHandler(w, r, result.Failure)
		}
	})
}
