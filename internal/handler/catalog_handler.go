package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"clinic-service/internal/repository"
	"clinic-service/pkg/logger"
)

// ListIngredients returns the shared ingredient catalog, optionally narrowed
// by ?search=
func ListIngredients(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	ingredients, err := repo.ListIngredients(c.Request().Context(), c.QueryParam("search"))
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, ingredients)
}

// GetIngredient returns one catalog ingredient
func GetIngredient(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ingredient ID"})
	}

	ingredient, err := repo.GetIngredient(c.Request().Context(), uint(id))
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, ingredient)
}

// ListMeals returns the shared meal catalog, optionally narrowed by ?search=
func ListMeals(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	meals, err := repo.ListMeals(c.Request().Context(), p, c.QueryParam("search"))
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, meals)
}

// GetMeal returns one meal with its ingredient lines
func GetMeal(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid meal ID"})
	}

	meal, err := repo.GetMeal(c.Request().Context(), p, uint(id))
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, meal)
}

// CreateMeal adds a meal to the catalog, authored by the caller
func CreateMeal(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req repository.CreateMealInput
	if err := c.Bind(&req); err != nil {
		logger.FromEcho(c).Error("failed to parse meal request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	meal, err := repo.CreateMeal(c.Request().Context(), p, req)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusCreated, meal)
}

// UpdateMeal applies a partial update to a meal the caller authored
func UpdateMeal(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid meal ID"})
	}

	var req repository.UpdateMealInput
	if err := c.Bind(&req); err != nil {
		logger.FromEcho(c).Error("failed to parse meal request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	meal, err := repo.UpdateMeal(c.Request().Context(), p, uint(id), req)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, meal)
}

// DeleteMeal removes a meal the caller authored
func DeleteMeal(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid meal ID"})
	}

	if err := repo.DeleteMeal(c.Request().Context(), p, uint(id)); err != nil {
		return writeError(c, p, err)
	}
	return c.NoContent(http.StatusNoContent)
}
