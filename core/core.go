package core

import (
	"context"
	"slices"
	"strings"
	"time"
)

// TokenValidator validates one raw token under a ValidationContext and
// returns its decoded payload. *validator.Validator implements it.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string, vc ValidationContext) (map[string]any, error)
}

// Logger defines an optional logging interface compatible with log/slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Metrics defines an optional metrics sink.
type Metrics interface {
	IncCounter(name string, tags map[string]string)
	ObserveHistogram(name string, value float64, tags map[string]string)
	SetGauge(name string, value float64, tags map[string]string)
}

// Tracer defines an optional tracing hook.
type Tracer interface {
	StartSpan(ctx context.Context, operationName string) (context.Context, Span)
}

// Span is a unit of work started by a Tracer.
type Span interface {
	Finish()
	SetTag(key string, value any)
}

// Outcome is the kind of a Result.
type Outcome int

const (
	// OutcomePass means no credentials were offered. The request is neither
	// authenticated nor rejected by this strategy.
	OutcomePass Outcome = iota
	// OutcomeFailure means credentials were offered and rejected.
	OutcomeFailure
	// OutcomeSuccess means the request is authenticated.
	OutcomeSuccess
)

func (o Outcome) String() string {
	switch o {
	case OutcomePass:
		return "pass"
	case OutcomeFailure:
		return "failure"
	case OutcomeSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Result is the outcome of authenticating one request.
type Result struct {
	Outcome Outcome

	// Failure is set for OutcomePass (401 with a bare realm challenge) and
	// OutcomeFailure.
	Failure *Failure

	// Profile and AuthContext are set for OutcomeSuccess.
	Profile     Profile
	AuthContext *AuthorizationContext
}

// Err returns the failure as an error, or nil on success.
func (r *Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

// Core is the API (bearer token) authentication engine.
type Core struct {
	validator TokenValidator
	tenantID  string
	scope     string
	logger    Logger
	metrics   Metrics
	tracer    Tracer

	// misconfigured is set when the Core was built without a tenant; every
	// request is then rejected.
	misconfigured bool
}

// RequiredScope returns the scope a request must carry: DefaultScope, the
// scope configured with WithScope and extra.
func (c *Core) RequiredScope(extra string) string {
	return RequiredScope(c.scope + " " + extra)
}

// Authenticate authenticates a request from its Authorization header value.
// extraScope holds scope words required in addition to the configured ones.
//
//   - No header, or a scheme other than Bearer: OutcomePass.
//   - Not "Bearer <access> [<identity>]": OutcomeFailure, 400 invalid_request.
//   - Invalid or expired access token: OutcomeFailure, 401 invalid_token.
//   - Missing scope: OutcomeFailure, 403 insufficient_scope.
//   - Otherwise OutcomeSuccess. An identity token that fails validation
//     yields the anonymous profile instead of a failure.
func (c *Core) Authenticate(ctx context.Context, authorization, extraScope string) *Result {
	start := time.Now()
	ctx, span := c.tracer.StartSpan(ctx, "appid.api.authenticate")
	defer span.Finish()

	result := c.authenticate(ctx, authorization, c.RequiredScope(extraScope))

	tags := map[string]string{"outcome": result.Outcome.String()}
	c.metrics.IncCounter("appid_api_authentications_total", tags)
	c.metrics.ObserveHistogram("appid_api_authentication_duration_seconds", time.Since(start).Seconds(), tags)
	span.SetTag("outcome", result.Outcome.String())
	if result.Failure != nil && result.Failure.Err != nil {
		span.SetTag("error", result.Failure.Err.Error())
	}

	return result
}

func (c *Core) authenticate(ctx context.Context, authorization, scope string) *Result {
	parts := strings.Split(authorization, " ")
	if !strings.EqualFold(parts[0], "Bearer") {
		if c.logger != nil {
			c.logger.Debug("no bearer authorization header found")
		}
		return &Result{Outcome: OutcomePass, Failure: noCredentials()}
	}

	if (len(parts) != 2 && len(parts) != 3) || slices.Contains(parts, "") {
		if c.logger != nil {
			c.logger.Warn("malformed authorization header", "components", len(parts))
		}
		return c.fail(ErrInvalidAuthorizationHeader, scope)
	}

	if c.misconfigured {
		return c.fail(NewError(KindInvalidToken, "authentication is not configured", nil), scope)
	}

	accessToken := parts[1]
	vc := ValidationContext{TenantID: c.tenantID}

	accessPayload, err := c.validator.ValidateToken(ctx, accessToken, vc)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("access token validation failed", "error", err)
		}
		return c.fail(err, scope)
	}

	supplied, _ := accessPayload["scope"].(string)
	if err := ValidateScope(scope, supplied); err != nil {
		if c.logger != nil {
			c.logger.Warn("access token scope is insufficient", "required", scope, "error", err)
		}
		return c.fail(err, scope)
	}

	ac := &AuthorizationContext{
		AccessToken:        accessToken,
		AccessTokenPayload: accessPayload,
	}
	profile := Profile{}

	if len(parts) == 3 {
		identityToken := parts[2]
		identityPayload, err := c.validator.ValidateToken(ctx, identityToken, vc)
		if err != nil {
			// Identity is optional for API consumers: a bad identity token
			// downgrades the request to anonymous instead of failing it.
			if c.logger != nil {
				c.logger.Warn("identity token validation failed, continuing anonymously", "error", err)
			}
		} else {
			ac.IdentityToken = identityToken
			ac.IdentityTokenPayload = identityPayload
			profile = ProfileFromPayload(identityPayload)
		}
	}

	if c.logger != nil {
		c.logger.Debug("request authenticated", "subject", profile.ID)
	}

	return &Result{
		Outcome:     OutcomeSuccess,
		Profile:     profile,
		AuthContext: ac,
	}
}

func (c *Core) fail(err error, scope string) *Result {
	return &Result{
		Outcome: OutcomeFailure,
		Failure: FailureFor(err, scope),
	}
}

type noopMetrics struct{}

func (noopMetrics) IncCounter(string, map[string]string)                {}
func (noopMetrics) ObserveHistogram(string, float64, map[string]string) {}
func (noopMetrics) SetGauge(string, float64, map[string]string)         {}

type noopTracer struct{}

func (noopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) Finish()            {}
func (noopSpan) SetTag(string, any) {}

// NoopMetrics returns a Metrics that discards everything.
func NoopMetrics() Metrics { return noopMetrics{} }

// NoopTracer returns a Tracer that records nothing.
func NoopTracer() Tracer { return noopTracer{} }
