package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"clinic-service/internal/repository"
	"clinic-service/pkg/logger"
)

// ListPlans returns the diet plans visible to the caller
func ListPlans(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	plans, err := repo.ListPlans(c.Request().Context(), p)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, plans)
}

// GetPlan returns one diet plan with its weekly calendar
func GetPlan(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid plan ID"})
	}

	plan, err := repo.GetPlan(c.Request().Context(), p, id)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, plan)
}

// CreatePlan creates a diet plan authored by the calling professional
func CreatePlan(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req repository.CreatePlanInput
	if err := c.Bind(&req); err != nil {
		logger.FromEcho(c).Error("failed to parse plan request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	plan, err := repo.CreatePlan(c.Request().Context(), p, req)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusCreated, plan)
}

// UpdatePlan applies a partial update to a plan the caller authored
func UpdatePlan(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid plan ID"})
	}

	var req repository.UpdatePlanInput
	if err := c.Bind(&req); err != nil {
		logger.FromEcho(c).Error("failed to parse plan request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	plan, err := repo.UpdatePlan(c.Request().Context(), p, id, req)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, plan)
}

// DeletePlan removes a plan the caller authored
func DeletePlan(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid plan ID"})
	}

	if err := repo.DeletePlan(c.Request().Context(), p, id); err != nil {
		return writeError(c, p, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AddAllocation schedules a meal on a plan's weekly calendar
func AddAllocation(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid plan ID"})
	}

	var req repository.AllocationInput
	if err := c.Bind(&req); err != nil {
		logger.FromEcho(c).Error("failed to parse allocation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	alloc, err := repo.AddAllocation(c.Request().Context(), p, planID, req)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusCreated, alloc)
}

// RemoveAllocation unschedules one slot of a plan's calendar
func RemoveAllocation(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid plan ID"})
	}
	allocationID, err := strconv.ParseUint(c.Param("allocation_id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid allocation ID"})
	}

	if err := repo.RemoveAllocation(c.Request().Context(), p, planID, uint(allocationID)); err != nil {
		return writeError(c, p, err)
	}
	return c.NoContent(http.StatusNoContent)
}
