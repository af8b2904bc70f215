package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"clinic-service/internal/model"
	"clinic-service/internal/scope"
	"clinic-service/pkg/jwtutil"
	"clinic-service/pkg/logger"
	"clinic-service/prometheus"
)

// principalKey is the echo context key the authenticated principal is stored
// under
const principalKey = "principal"

// AuthMiddleware validates the JWT token from the Authorization header and
// rebuilds the principal the request runs as. The principal is recomputed on
// every request; nothing derived from it outlives the request.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromEcho(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Warn("missing Authorization header")
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Warn("invalid Authorization header format")
			prometheus.RecordAuthError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		claims, err := jwtutil.ValidateToken(parts[1])
		if err != nil {
			log.Warn("invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		principal, err := principalFromClaims(claims)
		if err != nil {
			log.Warn("malformed token claims", zap.Error(err))
			prometheus.RecordAuthError("malformed_claims")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		c.Set(principalKey, principal)
		log.Debug("request authenticated",
			zap.String("user_id", principal.ID.String()),
			zap.String("role", string(principal.Role)))

		return next(c)
	}
}

// principalFromClaims converts verified token claims into the scoping principal
func principalFromClaims(claims *jwtutil.UserClaims) (scope.Principal, error) {
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return scope.Principal{}, err
	}

	p := scope.Principal{
		ID:    id,
		Email: claims.Email,
		Role:  model.Role(claims.Role),
	}
	if claims.OrganizationID != nil {
		orgID, err := uuid.Parse(*claims.OrganizationID)
		if err != nil {
			return scope.Principal{}, err
		}
		p.OrganizationID = &orgID
	}
	return p, nil
}

// PrincipalFrom retrieves the authenticated principal set by AuthMiddleware
func PrincipalFrom(c echo.Context) (scope.Principal, bool) {
	p, ok := c.Get(principalKey).(scope.Principal)
	return p, ok
}
