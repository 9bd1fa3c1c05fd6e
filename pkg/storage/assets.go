package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// AssetKind tags the class of stored object being resolved.
type AssetKind string

const (
	AssetAnswerImage AssetKind = "answer-image"
	AssetSealImage   AssetKind = "seal-image"
	AssetSignature   AssetKind = "signature"
)

// Resolver turns stored asset paths into time-limited public URLs. The
// platform only persists and clears path fields; object bytes live in the
// external store behind the base URL.
type Resolver struct {
	baseURL string
	secret  []byte
	ttl     time.Duration
}

// NewResolver constructs an asset URL resolver.
func NewResolver(baseURL, secret string, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Resolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
		ttl:     ttl,
	}
}

// PublicURL returns a signed, expiring URL for the stored path.
func (r *Resolver) PublicURL(kind AssetKind, relPath string) (string, error) {
	if relPath == "" {
		return "", fmt.Errorf("asset path required")
	}
	if len(r.secret) == 0 {
		return "", fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(r.ttl).Unix()
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	signature := r.sign(string(kind), expiresAt, encodedPath)
	return fmt.Sprintf("%s/%s/%s?exp=%d&sig=%s", r.baseURL, kind, encodedPath, expiresAt, signature), nil
}

// Verify checks a signed asset reference and returns the stored path.
func (r *Resolver) Verify(kind AssetKind, encodedPath string, expiresAt int64, signature string) (string, error) {
	expected := r.sign(string(kind), expiresAt, encodedPath)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", fmt.Errorf("invalid asset signature")
	}
	if time.Now().After(time.Unix(expiresAt, 0)) {
		return "", fmt.Errorf("asset link expired")
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return "", fmt.Errorf("decode asset path: %w", err)
	}
	return string(rawPath), nil
}

func (r *Resolver) sign(kind string, expiresAt int64, encodedPath string) string {
	payload := fmt.Sprintf("%s|%d|%s", kind, expiresAt, encodedPath)
	mac := hmac.New(sha256.New, r.secret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
