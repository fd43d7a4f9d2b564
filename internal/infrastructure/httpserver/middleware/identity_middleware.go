package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/httpserver/helpers"
)

type IdentityMiddleware struct {
	verifier ports.IdentityVerifier
	logger   *logrus.Logger
}

func NewIdentityMiddleware(verifier ports.IdentityVerifier, logger *logrus.Logger) *IdentityMiddleware {
	return &IdentityMiddleware{verifier: verifier, logger: logger}
}

// RequireIdentity verifies the bearer token and stores the resulting identity in the context.
func (m *IdentityMiddleware) RequireIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := helpers.GetBearerToken(c)
			if err != nil {
				return err
			}

			identity, err := m.verifier.Verify(c.Request().Context(), token)
			if err != nil {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path, "error": err.Error()}).Warn("Token verification failed")
				}
				return err
			}

			helpers.SetIdentity(c, identity)
			if m.logger != nil {
				m.logger.WithFields(logrus.Fields{"identity": identity}).Debug("identity verified and set on context")
			}
			return next(c)
		}
	}
}
