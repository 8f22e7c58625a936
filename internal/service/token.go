package service

import (
	"errors"
	"strconv"
	"time"

	"github.com/bookvault/backend/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

// generateToken signs a compact session token carrying sub, iat, exp and a
// fresh jti. Tokens are immutable once issued; the only server-side trace of
// one is its jti once revoked.
func (s *AuthService) generateToken(user *model.User) (string, error) {
	now := s.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(user.ID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		ID:        NewJTI(user.ID),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// parseToken checks signature and expiry atomically. Expiry is reported
// separately from structural or signature failures so callers can surface
// distinct messages.
func (s *AuthService) parseToken(raw string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrMalformedToken
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrMalformedToken
	}
	if !token.Valid || claims.ID == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

// decodeToken extracts claims without verifying the signature. Only used
// after the middleware has already verified the same token, or for advisory
// expiry reads.
func (s *AuthService) decodeToken(raw string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, ErrMalformedToken
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

// TokenExpiry reports when a token expires without verifying it.
func (s *AuthService) TokenExpiry(raw string) (time.Time, error) {
	claims, err := s.decodeToken(raw)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt.Time, nil
}
