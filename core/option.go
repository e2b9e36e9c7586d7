package core

import (
	"errors"
)

// Option is a function that configures the Core.
// Options return errors to enable validation during construction.
type Option func(*Core) error

// New creates a new Core instance with the provided options.
//
// WithValidator is required. A Core built without WithTenantID is still
// returned: the problem is logged and every request is rejected, so a
// misconfigured deployment fails closed instead of crashing.
//
// Example:
//
//	c, err := core.New(
//	    core.WithValidator(v),
//	    core.WithTenantID("my-tenant"),
//	    core.WithLogger(slog.Default()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
func New(opts ...Option) (*Core, error) {
	c := &Core{
		metrics: noopMetrics{},
		tracer:  noopTracer{},
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.validator == nil {
		return nil, errors.New("validator is required but not set (use WithValidator option)")
	}

	if c.tenantID == "" {
		c.misconfigured = true
		if c.logger != nil {
			c.logger.Error("tenant id is not configured, all requests will be rejected")
		}
	}

	return c, nil
}

// WithValidator sets the token validator. This is a required option.
func WithValidator(validator TokenValidator) Option {
	return func(c *Core) error {
		if validator == nil {
			return errors.New("validator cannot be nil")
		}
		c.validator = validator
		return nil
	}
}

// WithTenantID sets the tenant every access token must belong to.
func WithTenantID(tenantID string) Option {
	return func(c *Core) error {
		c.tenantID = tenantID
		return nil
	}
}

// WithScope sets scope words required on every request in addition to
// DefaultScope.
func WithScope(scope string) Option {
	return func(c *Core) error {
		c.scope = scope
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger Logger) Option {
	return func(c *Core) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics sets an optional metrics sink.
func WithMetrics(metrics Metrics) Option {
	return func(c *Core) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		c.metrics = metrics
		return nil
	}
}

// WithTracer sets an optional tracer.
func WithTracer(tracer Tracer) Option {
	return func(c *Core) error {
		if tracer == nil {
			return errors.New("tracer cannot be nil")
		}
		c.tracer = tracer
		return nil
	}
}
