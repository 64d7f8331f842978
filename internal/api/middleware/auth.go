package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// ClaimsKey is the echo context key holding the caller's *domain.Claims.
const ClaimsKey = "auth.claims"

// Auth validates the bearer token and injects its claims into the context.
// Every failure, including a missing or malformed header, yields the same
// 401 body.
func Auth(tokens ports.TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return reject(errors.New("missing authorization header"))
			}

			scheme, raw, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(raw) == "" {
				return reject(errors.New("malformed authorization header"))
			}

			claims, err := tokens.Validate(strings.TrimSpace(raw))
			if err != nil {
				return reject(err)
			}

			metrics.TokenValidationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
			c.Set(ClaimsKey, claims)
			return next(c)
		}
	}
}

// reject keeps the cause as the internal error for logging only.
func reject(cause error) error {
	metrics.TokenValidationsTotal.WithLabelValues(metrics.ResultRejected).Inc()
	return echo.NewHTTPError(http.StatusUnauthorized, domain.ErrInvalidToken.Error()).SetInternal(cause)
}
