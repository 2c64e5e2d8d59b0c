// Package service holds cross-cutting services of the BFA: today the
// service-token issuer used to authenticate chat front-ends.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/evcharge/ev-support-bfa-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const tokenIssuer = "ev-support-bfa"

// ============================================================
// TokenService — HMAC service tokens for chat front-ends
// ============================================================

// TokenClaims are the custom claims in service tokens.
type TokenClaims struct {
	Scope string `json:"scope"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService signs and validates service tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewTokenService creates a TokenService. ttl <= 0 defaults to one hour.
func NewTokenService(secret string, ttl time.Duration, logger *zap.Logger) *TokenService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Issue signs a token for subject (a front-end or channel name).
func (s *TokenService) Issue(subject, scope string) (string, error) {
	if subject == "" {
		return "", &domain.ErrValidation{Field: "subject", Message: "subject is required"}
	}
	now := s.now()
	claims := TokenClaims{
		Scope: scope,
		Type:  "service",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    tokenIssuer,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign service token: %w", err)
	}
	s.logger.Info("service token issued",
		zap.String("subject", subject),
		zap.String("scope", scope),
		zap.Duration("ttl", s.ttl),
	)
	return signed, nil
}

// Validate parses tokenString and returns its claims.
func (s *TokenService) Validate(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &domain.ErrUnauthorized{Message: "token expired"}
		}
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != "service" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}
	return claims, nil
}
