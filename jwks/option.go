package jwks

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/appid-oss/go-appid-middleware/core"
)

// Option is how options for the KeyCache are set up.
type Option func(*KeyCache) error

// WithPublicKeysURL sets the public keys endpoint, usually
// "<serverUrl>/publickeys".
func WithPublicKeysURL(publicKeysURL string) Option {
	return func(c *KeyCache) error {
		if publicKeysURL == "" {
			return nil
		}
		u, err := url.Parse(publicKeysURL)
		if err != nil {
			return fmt.Errorf("invalid public keys URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("public keys URL must use http or https, got %q", u.Scheme)
		}
		c.publicKeysURL = publicKeysURL
		return nil
	}
}

// WithHTTPClient sets a custom HTTP client.
// If not specified, a default client with 30s timeout is used.
func WithHTTPClient(client *http.Client) Option {
	return func(c *KeyCache) error {
		if client == nil {
			return fmt.Errorf("HTTP client cannot be nil")
		}
		c.httpClient = client
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger core.Logger) Option {
	return func(c *KeyCache) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics sets an optional metrics sink for fetch results and key counts.
func WithMetrics(metrics core.Metrics) Option {
	return func(c *KeyCache) error {
		if metrics == nil {
			return fmt.Errorf("metrics cannot be nil")
		}
		c.metrics = metrics
		return nil
	}
}
