// Package jwtauth verifies Firebase ID tokens against Google's published signing keys.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Claims represents the claims of a Firebase ID token.
type Claims struct {
	jwt.RegisteredClaims
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	// Leader is a custom claim set through the Firebase Admin SDK.
	Leader bool `json:"leader,omitempty"`
}

// Verifier handles Firebase ID token verification.
type Verifier struct {
	projectID string
	issuer    string
	jwks      *JWKSCache
}

// Config holds Firebase ID token verification configuration.
type Config struct {
	ProjectID string // e.g., "text-scan-e9da3"
	JWKSURL   string
}

// NewVerifier creates a new ID token verifier.
func NewVerifier(cfg Config, logger *zap.Logger) (*Verifier, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("project ID is required")
	}
	if cfg.JWKSURL == "" {
		return nil, errors.New("JWKS URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Verifier{
		projectID: cfg.ProjectID,
		issuer:    "https://securetoken.google.com/" + cfg.ProjectID,
		jwks:      NewJWKSCache(cfg.JWKSURL, logger),
	}, nil
}

// Verify verifies an ID token and returns its claims.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, errors.New("missing kid in token header")
		}
		return v.jwks.GetKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	if !slices.Contains(claims.Audience, v.projectID) {
		return nil, errors.New("invalid audience")
	}

	if claims.Issuer != v.issuer {
		return nil, fmt.Errorf("invalid issuer: expected %s, got %s", v.issuer, claims.Issuer)
	}

	if claims.Subject == "" {
		return nil, errors.New("missing subject")
	}

	return claims, nil
}

// UID returns the Firebase user ID. Firebase sets both sub and user_id;
// sub wins when they are both present.
func (c *Claims) UID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.UserID
}

type contextKey string

const ClaimsContextKey contextKey = "jwtclaims"

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey, claims)
}

// GetClaims retrieves verified claims from the request context.
func GetClaims(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsContextKey).(*Claims)
	return claims
}

// JWKSCache caches the signing keys published at a JWKS URL.
type JWKSCache struct {
	url        string
	logger     *zap.Logger
	mu         sync.RWMutex
	keys       map[string]any // kid -> public key
	lastFetch  time.Time
	cacheTTL   time.Duration
	minRefresh time.Duration // floor between fetches triggered by unknown kids
	httpClient *http.Client
}

// NewJWKSCache creates a new JWKS cache.
func NewJWKSCache(jwksURL string, logger *zap.Logger) *JWKSCache {
	return &JWKSCache{
		url:        jwksURL,
		logger:     logger,
		keys:       make(map[string]any),
		cacheTTL:   10 * time.Minute,
		minRefresh: time.Minute,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetKey returns the public key for the given key ID.
func (c *JWKSCache) GetKey(ctx context.Context, kid string) (any, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	needsRefresh := time.Since(c.lastFetch) > c.cacheTTL
	c.mu.RUnlock()

	if ok && !needsRefresh {
		return key, nil
	}

	if err := c.refresh(ctx, kid); err != nil {
		// A stale key beats no key while Google is unreachable.
		if ok {
			c.logger.Warn("JWKS refresh failed, using cached key", zap.String("kid", kid), zap.Error(err))
			return key, nil
		}
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	c.mu.RLock()
	key, ok = c.keys[kid]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("key %s not found in JWKS", kid)
	}

	return key, nil
}

// JWKS represents a JSON Web Key Set.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
	Alg string `json:"alg"`
}

func (c *JWKSCache) refresh(ctx context.Context, kid string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have fetched while we waited for the lock.
	since := time.Since(c.lastFetch)
	if _, ok := c.keys[kid]; ok && since < c.cacheTTL {
		return nil
	}
	if len(c.keys) > 0 && since < c.minRefresh {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var jwks JWKS
	if err := decodeJSON(resp.Body, &jwks); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	newKeys := make(map[string]any)
	for _, key := range jwks.Keys {
		if key.Kty != "RSA" || key.Use != "sig" {
			continue
		}

		publicKey, err := parseRSAPublicKey(key.N, key.E)
		if err != nil {
			c.logger.Warn("failed to parse RSA key", zap.String("kid", key.Kid), zap.Error(err))
			continue
		}

		newKeys[key.Kid] = publicKey
	}

	c.keys = newKeys
	c.lastFetch = time.Now()

	return nil
}
