package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
)

// Scopes granted to API keys.
const (
	// ScopeOrdersWrite allows placing and discounting orders.
	ScopeOrdersWrite = "orders:write"
	// ScopeCatalogWrite allows creating products and bulk price updates.
	ScopeCatalogWrite = "catalog:write"
)

var (
	// ErrNotFound is returned by repositories when no key matches a hash.
	ErrNotFound = errors.New("api key not found")
	// ErrUnauthorized means the presented key is missing or unknown.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the key is valid but lacks the required scope.
	ErrForbidden = errors.New("forbidden")
)

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      int64
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key grants scope.
func (i *APIKeyInfo) HasScope(scope string) bool {
	return slices.Contains(i.Scopes, scope)
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// Hasher derives the stored form of API keys.
type Hasher struct {
	pepper []byte
}

// NewHasher creates a Hasher keyed with pepper.
func NewHasher(pepper []byte) Hasher {
	return Hasher{pepper: pepper}
}

// Sum returns the raw HMAC-SHA256 of key.
func (h Hasher) Sum(key string) []byte {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(key))
	return mac.Sum(nil)
}

// Hex returns the hex-encoded HMAC-SHA256 of key, as stored.
func (h Hasher) Hex(key string) string {
	return hex.EncodeToString(h.Sum(key))
}

// Authenticator validates presented API keys against a Repository.
type Authenticator struct {
	keys   Repository
	hasher Hasher
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(keys Repository, pepper []byte) *Authenticator {
	return &Authenticator{keys: keys, hasher: NewHasher(pepper)}
}

// Authenticate resolves key and checks that it grants scope. It returns
// ErrUnauthorized or ErrForbidden on rejection; any other error is an
// infrastructure failure.
func (a *Authenticator) Authenticate(ctx context.Context, key, scope string) (*APIKeyInfo, error) {
	if key == "" {
		return nil, ErrUnauthorized
	}

	sum := a.hasher.Sum(key)
	info, err := a.keys.FindByHash(ctx, hex.EncodeToString(sum))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, errors.Wrap(err, "find api key")
	}

	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(sum, stored) != 1 {
		return nil, ErrUnauthorized
	}

	if scope != "" && !info.HasScope(scope) {
		return info, ErrForbidden
	}
	return info, nil
}
