// Package auth resolves the acting user from bearer tokens issued by the
// identity service.
package auth

import (
	"errors"
	"time"

	"github.com/erp/quotefinance/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingSubject   = errors.New("missing subject in claims")
)

// Claims carries the actor identity. Privileged marks finance staff
// allowed to audit, void and auto-confirm their own payments.
type Claims struct {
	jwt.RegisteredClaims
	Name       string `json:"name,omitempty"`
	Privileged bool   `json:"privileged,omitempty"`
}

// UserID parses the subject as a UUID
func (c *Claims) UserID() (uuid.UUID, error) {
	if c.Subject == "" {
		return uuid.Nil, ErrMissingSubject
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidClaims
	}
	return id, nil
}

// TokenParser validates HS256 bearer tokens
type TokenParser struct {
	secret []byte
	issuer string
}

// NewTokenParser creates a new TokenParser
func NewTokenParser(cfg config.JWTConfig) *TokenParser {
	return &TokenParser{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
	}
}

// Parse validates the token signature, timing and issuer and returns its claims
func (p *TokenParser) Parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}

// Issue signs a token for userID. The identity service owns real issuance;
// this backs local tooling and tests.
func (p *TokenParser) Issue(userID uuid.UUID, name string, privileged bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    p.issuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Name:       name,
		Privileged: privileged,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}
