// Package identity turns bearer tokens into actors.
//
// Tokens only carry the user id. The role and the city an actor operates in are
// read from the user directory on every request, so a city change takes effect
// without reissuing tokens.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fixitfast/backend/internal/apperrors"
	"fixitfast/backend/internal/models"

	jwt "github.com/golang-jwt/jwt/v5"
)

const issuer = "fixitfast-service"

// Claims is the JWT payload.
type Claims struct {
	Role models.ActorType `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token service signing with secret.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue generates a token for the user.
func (t *Tokens) Issue(u *models.User) (string, error) {
	now := t.now()
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse verifies the signature, issuer and expiry and returns the claims.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, apperrors.NewAuthorizationError("", "invalid token: "+err.Error())
	}
	if claims.Subject == "" {
		return nil, apperrors.NewAuthorizationError("", "invalid token: no subject")
	}
	return claims, nil
}

// UserLookup is the part of the store the resolver needs.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Resolver maps a bearer token to the acting identity.
type Resolver struct {
	Tokens *Tokens
	Users  UserLookup
}

// NewResolver creates a resolver.
func NewResolver(tokens *Tokens, users UserLookup) *Resolver {
	return &Resolver{Tokens: tokens, Users: users}
}

// Resolve verifies the token and loads the user behind it. The returned actor
// always reflects the directory, not the token.
func (r *Resolver) Resolve(ctx context.Context, raw string) (models.Actor, error) {
	claims, err := r.Tokens.Parse(strings.TrimSpace(raw))
	if err != nil {
		return models.Actor{}, err
	}

	u, err := r.Users.GetUserByID(ctx, claims.Subject)
	if apperrors.IsNotFound(err) {
		return models.Actor{}, apperrors.NewAuthorizationError(claims.Subject, "unknown user")
	}
	if err != nil {
		return models.Actor{}, err
	}
	if !u.Active {
		return models.Actor{}, apperrors.NewAuthorizationError(u.ID, "account is disabled")
	}
	if !u.Role.Valid() {
		return models.Actor{}, apperrors.NewScopeError(apperrors.UnknownActorType, u.ID)
	}
	if claims.Role != u.Role {
		return models.Actor{}, apperrors.NewAuthorizationError(u.ID, "role changed, sign in again")
	}
	return u.Actor(), nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", errors.New("missing bearer token")
	}
	return strings.TrimSpace(header[len(prefix):]), nil
}
