// Package token decodes compact JWS tokens into their header, payload and
// signature without verifying anything.
package token

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/appid-oss/go-appid-middleware/core"
)

// maxTokenSize rejects tokens larger than 1MB before any decoding happens.
// Valid tokens are a few KB at most.
const maxTokenSize = 1024 * 1024

// segmentDecoder restores stripped base64url padding before decoding.
var segmentDecoder = jwt.NewParser(jwt.WithPaddingAllowed())

// Token is a structurally decoded compact token. It is immutable once parsed.
type Token struct {
	// RawHeader, RawPayload and Signature are the three base64url segments.
	RawHeader  string
	RawPayload string
	Signature  string

	Header  map[string]any
	Payload map[string]any
}

// Parse decodes raw into a Token. It fails with a core.KindInvalidTokenFormat
// error unless raw has exactly three dot-separated segments whose first two
// decode to JSON objects. The signature is not decoded.
func Parse(raw string) (*Token, error) {
	if len(raw) > maxTokenSize {
		return nil, core.Errorf(core.KindInvalidTokenFormat, "token exceeds maximum size (%d bytes)", maxTokenSize)
	}

	segments := strings.Split(raw, ".")
	if len(segments) != 3 {
		return nil, core.Errorf(core.KindInvalidTokenFormat, "expected 3 segments, got %d", len(segments))
	}

	header, err := decodeSegment(segments[0])
	if err != nil {
		return nil, core.NewError(core.KindInvalidTokenFormat, "could not decode header", err)
	}

	payload, err := decodeSegment(segments[1])
	if err != nil {
		return nil, core.NewError(core.KindInvalidTokenFormat, "could not decode payload", err)
	}

	return &Token{
		RawHeader:  segments[0],
		RawPayload: segments[1],
		Signature:  segments[2],
		Header:     header,
		Payload:    payload,
	}, nil
}

func decodeSegment(segment string) (map[string]any, error) {
	b, err := segmentDecoder.DecodeSegment(segment)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("segment is not a JSON object")
	}

	return m, nil
}

// SigningInput returns the bytes covered by the signature.
func (t *Token) SigningInput() string {
	return t.RawHeader + "." + t.RawPayload
}

// DecodedSignature base64url-decodes the signature segment.
func (t *Token) DecodedSignature() ([]byte, error) {
	return segmentDecoder.DecodeSegment(t.Signature)
}

// KeyID returns the kid header.
func (t *Token) KeyID() string {
	kid, _ := t.Header["kid"].(string)
	return kid
}

// Algorithm returns the alg header.
func (t *Token) Algorithm() string {
	alg, _ := t.Header["alg"].(string)
	return alg
}

// Expiry returns the exp claim in seconds since the epoch.
func (t *Token) Expiry() (int64, bool) {
	switch exp := t.Payload["exp"].(type) {
	case float64:
		return int64(exp), true
	case json.Number:
		v, err := exp.Int64()
		return v, err == nil
	default:
		return 0, false
	}
}

// Audience returns the aud claim, which may be a string or an array.
func (t *Token) Audience() []string {
	switch aud := t.Payload["aud"].(type) {
	case string:
		return []string{aud}
	case []any:
		out := make([]string, 0, len(aud))
		for _, v := range aud {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Issuer returns the iss claim.
func (t *Token) Issuer() string { return t.stringClaim("iss") }

// Tenant returns the tenant claim.
func (t *Token) Tenant() string { return t.stringClaim("tenant") }

// Subject returns the sub claim.
func (t *Token) Subject() string { return t.stringClaim("sub") }

// Scope returns the space-separated scope claim.
func (t *Token) Scope() string { return t.stringClaim("scope") }

// Claim returns a raw payload claim.
func (t *Token) Claim(name string) (any, bool) {
	v, ok := t.Payload[name]
	return v, ok
}

func (t *Token) stringClaim(name string) string {
	s, _ := t.Payload[name].(string)
	return s
}
