package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"clinic-service/pkg/database"
)

// HealthCheck reports service liveness and database connectivity
func HealthCheck(c echo.Context) error {
	status := "ok"
	dbStatus := "ok"

	sqlDB, err := database.GetDB().DB()
	if err != nil || sqlDB.PingContext(c.Request().Context()) != nil {
		status = "degraded"
		dbStatus = "unreachable"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, echo.Map{
		"status":   status,
		"database": dbStatus,
		"service":  "clinic-service",
	})
}
