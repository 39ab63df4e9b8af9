// Package middleware provides HTTP middleware for textscan.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"textscan/internal/auth"
	"textscan/internal/jwtauth"
)

// TokenVerifier verifies a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*jwtauth.Claims, error)
}

// Options configures RequireAuth.
type Options struct {
	// RequireLeader restricts the route to allow-listed emails whose token
	// carries the leader claim.
	RequireLeader bool
	AllowedEmails []string
}

// RequireAuth returns middleware that verifies the caller's ID token and
// attaches the claims to the request context.
//
// Authentication flow:
//  1. Extract bearer token from Authorization header
//  2. Verify the token (signature, issuer, audience, expiry)
//  3. In leader mode, check the email allow-list, then the leader claim
//  4. Attach claims to request and continue
//
// Error responses:
//   - 401 Unauthorized: missing token, or a token that fails verification
//   - 403 Forbidden: email not allow-listed, or no leader claim
func RequireAuth(verifier TokenVerifier, opts Options, logger *zap.Logger) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(opts.AllowedEmails))
	for _, email := range opts.AllowedEmails {
		allowed[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.ExtractBearerToken(r)
			if err != nil {
				auth.WriteUnauthorized(w, auth.MsgMissingToken)
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Debug("token verification failed", zap.String("path", r.URL.Path), zap.Error(err))
				auth.WriteUnauthorized(w, auth.MsgInvalidToken)
				return
			}

			if opts.RequireLeader {
				if _, ok := allowed[strings.ToLower(claims.Email)]; !ok || claims.Email == "" {
					logger.Info("leader route denied: email not allowed",
						zap.String("uid", claims.UID()), zap.String("email", claims.Email))
					auth.WriteForbidden(w, auth.MsgEmailNotAllowed)
					return
				}
				if !claims.Leader {
					logger.Info("leader route denied: missing leader claim", zap.String("uid", claims.UID()))
					auth.WriteForbidden(w, auth.MsgLeaderRoleRequired)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(jwtauth.WithClaims(r.Context(), claims)))
		})
	}
}
