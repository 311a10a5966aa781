package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/telfield/fieldcollect/internal/config"
	"github.com/telfield/fieldcollect/internal/identity"
	"github.com/telfield/fieldcollect/internal/types"
)

// Claims carries the authenticated dashboard identity inside a JWT
type Claims struct {
	Role types.Role `json:"role"`
	Name string     `json:"name"` // normalized agent/supervisor name
	jwt.RegisteredClaims
}

// Identity returns the claims as an identity value
func (c *Claims) Identity() identity.Identity {
	return identity.Identity{Role: c.Role, Name: c.Name}
}

// Issuer signs session tokens for locally authenticated users
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates a token issuer from the configured HMAC secret
func NewIssuer(cfg *config.Config) (*Issuer, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required for local auth")
	}
	return &Issuer{secret: []byte(cfg.JWTSecret), ttl: cfg.TokenTTL}, nil
}

// Issue creates a signed HS256 token for the given identity
func (i *Issuer) Issue(id identity.Identity) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: id.Role,
		Name: id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Name,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			Issuer:    "fieldcollect",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// verify parses and validates a locally issued token
func (i *Issuer) verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("unknown role in token: %s", claims.Role)
	}
	return claims, nil
}
