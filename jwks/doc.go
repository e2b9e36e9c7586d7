/*
Package jwks caches the App ID tenant's RSA public keys.

App ID publishes its signing keys at "<serverUrl>/publickeys" as a JSON
document of the form {"keys": [<JWK>, ...]}. KeyCache holds them as PEM
encoded public keys, indexed by key id.

# Usage

	cache, err := jwks.New(
	    jwks.WithPublicKeysURL(cfg.Endpoints().PublicKeys),
	    jwks.WithLogger(logger),
	)
	if err != nil {
	    log.Fatal(err)
	}

	v, err := validator.New(validator.WithKeyProvider(cache))

# Refreshing

The cache starts empty and is only refreshed when a token names a key id it
does not hold. A refresh replaces the whole set, so keys the server stopped
publishing disappear with it. A failed refresh leaves the previous set in
place.

Misses are coalesced. When many requests miss at once a single request goes
to the server and every waiting caller resolves from its result:

	goroutine 1: GetKey("k2") ──┐
	goroutine 2: GetKey("k2") ──┼──> one GET /publickeys ──> all re-check
	goroutine 3: GetKey("k3") ──┘

A caller whose context is cancelled stops waiting, but the fetch carries on
for the others.

# Errors

  - missingPublicKey: no URL is configured, or the refresh failed
    (transport error, non-200 status, malformed document).
  - publicKeyNotFound: the refresh succeeded but the key id is not in it.
*/
package jwks
