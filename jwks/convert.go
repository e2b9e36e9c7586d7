package jwks

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

var errNoKeyID = errors.New("key has no kid")

// convert turns one RSA JWK into its kid and a PEM "PUBLIC KEY" block.
func convert(raw []byte) (string, string, error) {
	key, err := jwk.ParseKey(raw)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse JWK: %w", err)
	}

	kid, ok := key.KeyID()
	if !ok || kid == "" {
		return "", "", errNoKeyID
	}

	var rawKey any
	if err := jwk.Export(key, &rawKey); err != nil {
		return "", "", fmt.Errorf("failed to export JWK %q: %w", kid, err)
	}

	var pub *rsa.PublicKey
	switch k := rawKey.(type) {
	case *rsa.PublicKey:
		pub = k
	case *rsa.PrivateKey:
		pub = &k.PublicKey
	default:
		return "", "", fmt.Errorf("key %q is %T, expected an RSA key", kid, rawKey)
	}

	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal key %q: %w", kid, err)
	}

	return kid, string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}
