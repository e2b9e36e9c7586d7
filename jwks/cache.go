package jwks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/appid-oss/go-appid-middleware/core"
)

// maxResponseSize caps the public keys document. 1MB is generous, real
// documents hold a handful of keys.
const maxResponseSize = 1024 * 1024

// KeyCache resolves key ids to PEM encoded RSA public keys, refreshing the
// whole set from the public keys endpoint on a miss.
//
// Concurrent misses share a single refresh round: at most one fetch is in
// flight at any time, and every caller that missed while it was running
// resolves from its result.
type KeyCache struct {
	publicKeysURL string
	httpClient    *http.Client
	logger        core.Logger
	metrics       core.Metrics

	mu sync.RWMutex
	// keys maps kid to PEM. It is replaced wholesale by a successful round.
	keys map[string]string
	// generation counts completed rounds, successful or not.
	generation uint64
	// lastErr is the outcome of the most recent round.
	lastErr error

	group singleflight.Group
}

// New creates a KeyCache.
//
// A KeyCache without WithPublicKeysURL is still returned. Every lookup then
// fails with missingPublicKey.
//
// Example:
//
//	cache, err := jwks.New(
//	    jwks.WithPublicKeysURL("https://us-south.appid.cloud.ibm.com/oauth/v4/tenant/publickeys"),
//	    jwks.WithLogger(slog.Default()),
//	)
func New(opts ...Option) (*KeyCache, error) {
	c := &KeyCache{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		metrics:    core.NoopMetrics(),
		keys:       make(map[string]string),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if c.publicKeysURL == "" && c.logger != nil {
		c.logger.Error("public keys URL is not configured, token signatures cannot be verified")
	}

	return c, nil
}

// GetKey returns the PEM encoded public key for kid.
//
// A known kid is answered from memory. An unknown kid joins the current
// refresh round, or starts one, and is looked up again once the round ends.
// If the round failed the error is missingPublicKey; if it succeeded without
// the kid the error is publicKeyNotFound.
//
// Cancelling ctx returns ctx.Err() to this caller only. The shared fetch
// keeps running for the other callers.
func (c *KeyCache) GetKey(ctx context.Context, kid string) (string, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	observed := c.generation
	c.mu.RUnlock()

	if ok {
		return key, nil
	}

	if c.publicKeysURL == "" {
		return "", core.Errorf(core.KindMissingPublicKey, "public keys URL is not configured")
	}

	round, err := c.await(ctx, observed)
	if err != nil {
		return "", err
	}

	c.mu.RLock()
	key, ok = c.keys[kid]
	c.mu.RUnlock()

	if ok {
		return key, nil
	}
	if round.Err != nil {
		return "", core.NewError(core.KindMissingPublicKey, "could not refresh public keys", round.Err)
	}
	return "", core.Errorf(core.KindPublicKeyNotFound, "no public key with kid %q", kid)
}

// Refresh runs a refresh round, or joins the one in flight, and reports its
// outcome. It is useful to warm the cache at startup.
func (c *KeyCache) Refresh(ctx context.Context) error {
	if c.publicKeysURL == "" {
		return core.Errorf(core.KindMissingPublicKey, "public keys URL is not configured")
	}

	c.mu.RLock()
	observed := c.generation
	c.mu.RUnlock()

	round, err := c.await(ctx, observed)
	if err != nil {
		return err
	}
	if round.Err != nil {
		return core.NewError(core.KindMissingPublicKey, "could not refresh public keys", round.Err)
	}
	return nil
}

// Len returns the number of cached keys.
func (c *KeyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// await joins the round that follows generation observed. The error is only
// set when ctx ends first; the round's own outcome is in the result.
func (c *KeyCache) await(ctx context.Context, observed uint64) (singleflight.Result, error) {
	ch := c.group.DoChan(strconv.FormatUint(observed, 10), func() (any, error) {
		return nil, c.refresh(context.WithoutCancel(ctx), observed)
	})

	select {
	case <-ctx.Done():
		return singleflight.Result{}, ctx.Err()
	case res := <-ch:
		return res, nil
	}
}

// refresh performs one round. A caller that observed an older generation
// arrives after its round already completed and gets that round's outcome
// without fetching again.
func (c *KeyCache) refresh(ctx context.Context, observed uint64) error {
	c.mu.RLock()
	current, lastErr := c.generation, c.lastErr
	c.mu.RUnlock()

	if current != observed {
		return lastErr
	}

	keys, err := c.fetch(ctx)

	c.mu.Lock()
	if err == nil {
		c.keys = keys
	}
	c.lastErr = err
	c.generation++
	count := len(c.keys)
	c.mu.Unlock()

	if err != nil {
		c.metrics.IncCounter("appid_jwks_fetch_total", map[string]string{"result": "error"})
		if c.logger != nil {
			c.logger.Error("failed to refresh public keys", "url", c.publicKeysURL, "error", err)
		}
		return err
	}

	c.metrics.IncCounter("appid_jwks_fetch_total", map[string]string{"result": "success"})
	c.metrics.SetGauge("appid_jwks_keys", float64(count), nil)
	if c.logger != nil {
		c.logger.Info("public keys refreshed", "url", c.publicKeysURL, "keys", count)
	}

	return nil
}

// publicKeysDocument is the body of the public keys endpoint.
type publicKeysDocument struct {
	Keys []json.RawMessage `json:"keys"`
}

func (c *KeyCache) fetch(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.publicKeysURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request returned status %d, expected 200", resp.StatusCode)
	}

	var doc publicKeysDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode public keys: %w", err)
	}
	if doc.Keys == nil {
		return nil, fmt.Errorf("public keys document has no keys member")
	}

	keys := make(map[string]string, len(doc.Keys))
	for i, raw := range doc.Keys {
		kid, pemKey, err := convert(raw)
		if err != nil {
			if c.logger != nil {
				c.logger.Warn("skipping public key", "index", i, "error", err)
			}
			continue
		}
		keys[kid] = pemKey
	}

	return keys, nil
}
