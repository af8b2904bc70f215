package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"clinic-service/internal/repository"
	"clinic-service/pkg/logger"
)

// ListOrganizations returns every clinic (admins only)
func ListOrganizations(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	orgs, err := repo.ListOrganizations(c.Request().Context(), p)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, orgs)
}

// GetOrganization returns one clinic inside the caller's scope
func GetOrganization(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid organization ID"})
	}

	org, err := repo.GetOrganization(c.Request().Context(), p, id)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, org)
}

// GetOwnOrganization returns the caller's clinic
func GetOwnOrganization(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	org, err := repo.GetOwnOrganization(c.Request().Context(), p)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, org)
}

// CreateOrganization provisions a clinic (admins only)
func CreateOrganization(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req repository.CreateOrganizationInput
	if err := c.Bind(&req); err != nil {
		logger.FromEcho(c).Error("failed to parse organization request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	org, err := repo.CreateOrganization(c.Request().Context(), p, req)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusCreated, org)
}

// UpdateOrganization applies a partial update to a clinic. Owners rename and
// re-brand their own clinic; plan and status changes are admin operations.
func UpdateOrganization(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid organization ID"})
	}

	var req repository.UpdateOrganizationInput
	if err := c.Bind(&req); err != nil {
		logger.FromEcho(c).Error("failed to parse organization request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	org, err := repo.UpdateOrganization(c.Request().Context(), p, id, req)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, org)
}

// DeleteOrganization removes a clinic and detaches its members (admins only)
func DeleteOrganization(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid organization ID"})
	}

	if err := repo.DeleteOrganization(c.Request().Context(), p, id); err != nil {
		return writeError(c, p, err)
	}
	return c.NoContent(http.StatusNoContent)
}
