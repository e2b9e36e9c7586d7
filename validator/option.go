package validator

import (
	"errors"
	"time"

	"github.com/appid-oss/go-appid-middleware/core"
)

// Option is how options for the Validator are set up.
// Options return errors to enable validation during construction.
type Option func(*Validator) error

// New sets up a new Validator with the provided options.
//
// Required options:
//   - WithKeyProvider: resolves token key ids to public keys
//
// Example:
//
//	cache, _ := jwks.New(jwks.WithPublicKeysURL(publicKeysURL))
//	v, err := validator.New(validator.WithKeyProvider(cache))
//	if err != nil {
//	    log.Fatal(err)
//	}
func New(opts ...Option) (*Validator, error) {
	v := &Validator{
		now: time.Now,
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}

	if v.keys == nil {
		return nil, errors.New("key provider is required but not set (use WithKeyProvider option)")
	}

	return v, nil
}

// WithKeyProvider sets the source of public keys. This is a required option.
func WithKeyProvider(keys KeyProvider) Option {
	return func(v *Validator) error {
		if keys == nil {
			return errors.New("key provider cannot be nil")
		}
		v.keys = keys
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger core.Logger) Option {
	return func(v *Validator) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		v.logger = logger
		return nil
	}
}
