package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"clinic-service/internal/model"
	"clinic-service/internal/repository"
	"clinic-service/pkg/logger"
)

// ListUsers returns the accounts visible to the caller, optionally narrowed
// by ?search=
func ListUsers(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	users, err := repo.ListUsers(c.Request().Context(), p, c.QueryParam("search"))
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, users)
}

// GetUser returns one account inside the caller's scope
func GetUser(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	user, err := repo.GetUser(c.Request().Context(), p, id)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, user)
}

// GetProfile returns the caller's own account
func GetProfile(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	user, err := repo.GetUser(c.Request().Context(), p, p.ID)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, user)
}

// CreateUser provisions an account inside the caller's scope (admins and
// clinic owners)
func CreateUser(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req struct {
		Email          string     `json:"email"`
		Password       string     `json:"password"`
		FirstName      string     `json:"first_name"`
		LastName       string     `json:"last_name"`
		Role           model.Role `json:"role"`
		OrganizationID *uuid.UUID `json:"organization_id"`
	}
	if err := c.Bind(&req); err != nil {
		logger.FromEcho(c).Error("failed to parse user request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password is required", "field": "password"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.FromEcho(c).Error("failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "user creation failed"})
	}

	user, err := repo.CreateUser(c.Request().Context(), p, repository.CreateUserInput{
		Email:          req.Email,
		Password:       string(hashed),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Role:           req.Role,
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusCreated, user)
}

// UpdateUser applies a partial update to an account inside the caller's scope
func UpdateUser(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	var req repository.UpdateUserInput
	if err := c.Bind(&req); err != nil {
		logger.FromEcho(c).Error("failed to parse user request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	user, err := repo.UpdateUser(c.Request().Context(), p, id, req)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser removes an account inside the caller's scope
func DeleteUser(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	if err := repo.DeleteUser(c.Request().Context(), p, id); err != nil {
		return writeError(c, p, err)
	}
	return c.NoContent(http.StatusNoContent)
}
