package helpers

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
)

// GetIdentityFromContext returns the identity set by the identity middleware.
func GetIdentityFromContext(c echo.Context) (string, error) {
	id, ok := GetIdentityRaw(c)
	if !ok {
		return "", apperr.Unauthenticated("invalid identity context")
	}
	return id, nil
}

func GetBearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", apperr.Unauthenticated("missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", apperr.Unauthenticated("invalid authorization header format")
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", apperr.Unauthenticated("empty token")
	}
	return token, nil
}
