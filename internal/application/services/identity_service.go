package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
)

// IdentityClaims are the claims accepted from the identity provider's tokens.
type IdentityClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// IdentityService verifies HS256 bearer tokens issued by the identity provider. Tokens are
// never issued here.
type IdentityService struct {
	secret []byte
	issuer string
}

var _ ports.IdentityVerifier = (*IdentityService)(nil)

func NewIdentityService(secret, issuer string) *IdentityService {
	return &IdentityService{secret: []byte(secret), issuer: issuer}
}

// Verify returns the token subject, or the email claim when the subject is empty.
func (s *IdentityService) Verify(ctx context.Context, tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", apperr.Unauthenticated("missing bearer token")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return "", &apperr.Error{Code: apperr.CodeUnauthenticated, Message: "invalid token", Err: err}
	}
	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return "", apperr.Unauthenticated("invalid token claims")
	}
	if claims.Subject != "" {
		return claims.Subject, nil
	}
	if claims.Email != "" {
		return strings.ToLower(claims.Email), nil
	}
	return "", apperr.Unauthenticated("token carries no subject")
}
