package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"clinic-service/internal/middleware"
	"clinic-service/internal/repository"
	"clinic-service/internal/scope"
	"clinic-service/pkg/config"
	"clinic-service/pkg/logger"
	"clinic-service/pkg/mediastore"
	"clinic-service/prometheus"
)

var (
	repo  *repository.Repository
	media *mediastore.Store
	cfg   *config.Config
)

// Init wires the handlers to their collaborators
func Init(r *repository.Repository, m *mediastore.Store, c *config.Config) {
	repo = r
	media = m
	cfg = c
}

// principal retrieves the authenticated principal or rejects the request
func principal(c echo.Context) (scope.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		logger.FromEcho(c).Error("principal missing from context")
		return scope.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return p, nil
}

// writeError maps repository errors onto the HTTP taxonomy: denied scopes
// come back with a generic message and no hint of what exists, invisible and
// absent rows are indistinguishable, and only validation failures carry
// field detail.
func writeError(c echo.Context, p scope.Principal, err error) error {
	log := logger.FromEcho(c)

	var verr *repository.ValidationError
	switch {
	case errors.Is(err, scope.ErrPermissionDenied):
		prometheus.RecordScopeDenied(string(p.Role))
		log.Warn("request denied by scope",
			zap.String("user_id", p.ID.String()),
			zap.String("role", string(p.Role)))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Message, "field": verr.Field})
	default:
		log.Error("request failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// MetricsHandler exposes the Prometheus registry
func MetricsHandler(c echo.Context) error {
	h := prometheus.GetPrometheusHandler()
	h.ServeHTTP(c.Response(), c.Request())
	return nil
}
