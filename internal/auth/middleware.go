package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/telfield/fieldcollect/internal/config"
	"github.com/telfield/fieldcollect/internal/identity"
	"github.com/telfield/fieldcollect/internal/types"
)

type contextKey string

const userContextKey contextKey = "user"

// Verifier validates bearer tokens and attaches the resulting claims to
// the request context. In local mode tokens are self-issued HS256; in
// OIDC mode externally issued tokens are verified against the issuer's
// JWKS (SSO deployments).
type Verifier struct {
	cfg    *config.Config
	issuer *Issuer
	logger zerolog.Logger

	mu   sync.RWMutex
	jwks keyfunc.Keyfunc
}

// NewVerifier creates a token verifier for the configured auth mode
func NewVerifier(cfg *config.Config, issuer *Issuer, logger zerolog.Logger) (*Verifier, error) {
	v := &Verifier{
		cfg:    cfg,
		issuer: issuer,
		logger: logger.With().Str("component", "auth").Logger(),
	}

	if cfg.AuthMode == config.AuthModeOIDC {
		if err := v.refreshJWKS(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// refreshJWKS fetches the JWKS from the OIDC provider (Keycloak URL layout)
func (v *Verifier) refreshJWKS() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	jwksURL := strings.TrimSuffix(v.cfg.OIDCIssuer, "/") + "/protocol/openid-connect/certs"
	v.logger.Info().Str("url", jwksURL).Msg("fetching JWKS")

	k, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return fmt.Errorf("failed to create keyfunc: %w", err)
	}
	v.jwks = k
	return nil
}

// Middleware validates the bearer token on every request
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Development bypass, as a management user
		if os.Getenv("SKIP_AUTH") == "true" {
			v.logger.Warn().Msg("SKIP_AUTH enabled - bypassing authentication")
			ctx := context.WithValue(r.Context(), userContextKey, &Claims{
				Role: types.RoleManagement,
				Name: "DEV",
			})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		tokenString := extractToken(r)
		if tokenString == "" {
			http.Error(w, `{"error":"missing token"}`, http.StatusUnauthorized)
			return
		}

		claims, err := v.validate(tokenString)
		if err != nil {
			v.logger.Debug().Err(err).Msg("token validation failed")
			http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validate dispatches to the configured verification mode
func (v *Verifier) validate(tokenString string) (*Claims, error) {
	if v.cfg.AuthMode == config.AuthModeOIDC {
		return v.validateOIDC(tokenString)
	}
	return v.issuer.verify(tokenString)
}

// validateOIDC verifies an externally issued token via JWKS and maps its
// claims onto a dashboard identity
func (v *Verifier) validateOIDC(tokenString string) (*Claims, error) {
	v.mu.RLock()
	k := v.jwks
	v.mu.RUnlock()
	if k == nil {
		return nil, fmt.Errorf("JWKS not available")
	}

	token, err := jwt.Parse(tokenString, k.Keyfunc,
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}))
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	claims := &Claims{Role: extractRole(mapClaims)}
	if name, ok := mapClaims["name"].(string); ok {
		claims.Name = identity.Normalize(name)
	} else if preferred, ok := mapClaims["preferred_username"].(string); ok {
		claims.Name = identity.Normalize(preferred)
	}
	if claims.Name == "" {
		return nil, fmt.Errorf("token carries no usable name claim")
	}
	if exp, ok := mapClaims["exp"].(float64); ok {
		if time.Unix(int64(exp), 0).Before(time.Now()) {
			return nil, fmt.Errorf("token expired")
		}
	}
	return claims, nil
}

// extractRole maps realm roles from an SSO token onto dashboard roles.
// The most privileged matching role wins.
func extractRole(mapClaims jwt.MapClaims) types.Role {
	if realmAccess, ok := mapClaims["realm_access"].(map[string]interface{}); ok {
		if roles, ok := realmAccess["roles"].([]interface{}); ok {
			for _, want := range []types.Role{types.RoleManagement, types.RoleSupervisor, types.RoleAgent} {
				for _, role := range roles {
					if s, ok := role.(string); ok && types.Role(s) == want {
						return want
					}
				}
			}
		}
	}
	return types.RoleAgent
}

// extractToken gets the token from the Authorization header or the token
// query parameter (websocket connections cannot set headers)
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString != authHeader {
			return tokenString
		}
	}
	return r.URL.Query().Get("token")
}

// FromContext retrieves user claims from the request context
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(userContextKey).(*Claims)
	return claims, ok
}

// WithClaims returns a context carrying the given claims. Used by tests
// and the websocket handler.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, userContextKey, claims)
}

// RequireRole allows only the listed roles through
func RequireRole(roles ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := FromContext(r.Context())
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"insufficient role"}`, http.StatusForbidden)
		})
	}
}

// RequireSupervisor allows supervisors and management
func RequireSupervisor(next http.Handler) http.Handler {
	return RequireRole(types.RoleSupervisor, types.RoleManagement)(next)
}

// RequireManagement allows management only
func RequireManagement(next http.Handler) http.Handler {
	return RequireRole(types.RoleManagement)(next)
}
