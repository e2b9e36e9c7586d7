// Package config loads App ID credentials from explicit values, the
// environment, an optional .env file and the Cloud Foundry VCAP variables.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/appid-oss/go-appid-middleware/internal/oidc"
)

// DefaultHTTPTimeout bounds requests to the App ID server.
const DefaultHTTPTimeout = 30 * time.Second

// CallbackPath is appended to the first application URI found in
// VCAP_APPLICATION to form the default redirect URI.
const CallbackPath = "/ibm/bluemix/appid/callback"

// Endpoints are the App ID OAuth server endpoints.
type Endpoints = oidc.Endpoints

// Config holds App ID credentials.
type Config struct {
	// ServerURL is the tenant's OAuth server URL, e.g.
	// https://us-south.appid.cloud.ibm.com/oauth/v4/<tenant>.
	ServerURL string `env:"APPID_SERVER_URL" json:"serverUrl" validate:"required,url"`
	ClientID  string `env:"APPID_CLIENT_ID" json:"clientId" validate:"required"`
	Secret    string `env:"APPID_SECRET" json:"secret" validate:"required"`
	TenantID  string `env:"APPID_TENANT_ID" json:"tenantId" validate:"required"`

	// RedirectURI is where App ID sends the browser back after login.
	RedirectURI string `env:"APPID_REDIRECT_URI" json:"redirectUri" validate:"required,url"`

	// Issuer overrides the expected iss claim. Defaults to the host of ServerURL.
	Issuer string `env:"APPID_ISSUER" json:"issuer,omitempty"`

	// UseDiscovery reads the endpoints from the discovery document instead
	// of deriving them from ServerURL.
	UseDiscovery bool `env:"APPID_USE_DISCOVERY" json:"useDiscovery,omitempty"`

	HTTPTimeout time.Duration `env:"APPID_HTTP_TIMEOUT" json:"-"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// FromEnv loads a Config from the process environment. The given .env files
// are loaded first (variables already set win); with no files, a .env in the
// working directory is loaded if present. VCAP_SERVICES and VCAP_APPLICATION
// fill whatever the APPID_* variables left empty.
func FromEnv(files ...string) (Config, error) {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return Config{}, fmt.Errorf("could not load env files: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("could not decode APPID_* variables: %w", err)
	}

	vcap, err := fromVCAP(os.Getenv("VCAP_SERVICES"), os.Getenv("VCAP_APPLICATION"))
	if err != nil {
		return Config{}, err
	}

	return Merge(cfg, vcap), nil
}

type vcapCredentials struct {
	Credentials struct {
		ServerURL string `json:"serverUrl"`
		OAuthURL  string `json:"oauthServerUrl"`
		ClientID  string `json:"clientId"`
		Secret    string `json:"secret"`
		TenantID  string `json:"tenantId"`
	} `json:"credentials"`
}

// vcapServiceNames are the VCAP_SERVICES keys App ID is bound under.
var vcapServiceNames = []string{"AdvancedMobileAccess", "appid"}

func fromVCAP(services, application string) (Config, error) {
	var cfg Config

	if services != "" {
		var bound map[string][]vcapCredentials
		if err := json.Unmarshal([]byte(services), &bound); err != nil {
			return Config{}, fmt.Errorf("could not decode VCAP_SERVICES: %w", err)
		}
		for _, name := range vcapServiceNames {
			entries := bound[name]
			if len(entries) == 0 {
				continue
			}
			creds := entries[0].Credentials
			cfg.ServerURL = creds.OAuthURL
			if cfg.ServerURL == "" {
				cfg.ServerURL = creds.ServerURL
			}
			cfg.ClientID = creds.ClientID
			cfg.Secret = creds.Secret
			cfg.TenantID = creds.TenantID
			break
		}
	}

	if application != "" {
		var app struct {
			ApplicationURIs []string `json:"application_uris"`
		}
		if err := json.Unmarshal([]byte(application), &app); err != nil {
			return Config{}, fmt.Errorf("could not decode VCAP_APPLICATION: %w", err)
		}
		if len(app.ApplicationURIs) > 0 {
			cfg.RedirectURI = "https://" + app.ApplicationURIs[0] + CallbackPath
		}
	}

	return cfg, nil
}

// Merge returns explicit with every zero field filled from discovered.
// Explicit values are never overridden.
func Merge(explicit, discovered Config) Config {
	out := explicit
	if out.ServerURL == "" {
		out.ServerURL = discovered.ServerURL
	}
	if out.ClientID == "" {
		out.ClientID = discovered.ClientID
	}
	if out.Secret == "" {
		out.Secret = discovered.Secret
	}
	if out.TenantID == "" {
		out.TenantID = discovered.TenantID
	}
	if out.RedirectURI == "" {
		out.RedirectURI = discovered.RedirectURI
	}
	if out.Issuer == "" {
		out.Issuer = discovered.Issuer
	}
	if !out.UseDiscovery {
		out.UseDiscovery = discovered.UseDiscovery
	}
	if out.HTTPTimeout == 0 {
		out.HTTPTimeout = discovered.HTTPTimeout
	}
	return out
}

// ValidateAPI checks the fields the API strategy needs.
func (c Config) ValidateAPI() error {
	if err := validate.StructPartial(c, "ServerURL", "TenantID"); err != nil {
		return fmt.Errorf("invalid API configuration: %w", err)
	}
	return nil
}

// ValidateWeb checks the fields the web strategy needs.
func (c Config) ValidateWeb() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid web configuration: %w", err)
	}
	return nil
}

// Timeout returns HTTPTimeout, or DefaultHTTPTimeout when unset.
func (c Config) Timeout() time.Duration {
	if c.HTTPTimeout <= 0 {
		return DefaultHTTPTimeout
	}
	return c.HTTPTimeout
}

// TokenIssuer returns the expected iss claim: Issuer if set, otherwise the
// host[:port] of ServerURL.
func (c Config) TokenIssuer() string {
	if c.Issuer != "" {
		return c.Issuer
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// Endpoints derives the OAuth endpoints from ServerURL.
func (c Config) Endpoints() Endpoints {
	return oidc.FromServerURL(strings.TrimSpace(c.ServerURL))
}

// ResolveEndpoints returns the endpoints from the discovery document when
// UseDiscovery is set, and Endpoints otherwise. A failed discovery returns
// the derived endpoints together with the error.
func (c Config) ResolveEndpoints(ctx context.Context, client *http.Client) (Endpoints, error) {
	if !c.UseDiscovery || c.ServerURL == "" {
		return c.Endpoints(), nil
	}

	discovered, err := oidc.Discover(ctx, client, strings.TrimSpace(c.ServerURL))
	if err != nil {
		return c.Endpoints(), fmt.Errorf("endpoint discovery failed: %w", err)
	}
	return *discovered, nil
}
