package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"clinic-service/internal/model"
	"clinic-service/internal/repository"
	"clinic-service/pkg/jwtutil"
	"clinic-service/pkg/logger"
	"clinic-service/prometheus"
)

// Login verifies credentials and issues an access token plus a rotating
// refresh token
func Login(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	ctx := c.Request().Context()
	user, err := repo.FindUserByEmail(ctx, req.Email)
	if err != nil {
		log.Warn("login for unknown user", zap.String("email", model.NormalizeEmail(req.Email)))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("invalid password", zap.String("email", user.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !user.Active {
		prometheus.RecordAuthError("inactive_account")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	return issueTokenPair(c, user)
}

// Refresh rotates a refresh token and issues a fresh access token. The old
// refresh token is revoked atomically with the issue of its replacement.
func Refresh(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RefreshCounter.Inc()

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token is required"})
	}

	ctx := c.Request().Context()
	rotated, err := repo.RotateRefreshToken(ctx, req.RefreshToken, cfg.JWT.RefreshLifetime)
	if err != nil {
		log.Warn("refresh token rejected", zap.Error(err))
		prometheus.RecordAuthError("invalid_refresh_token")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired refresh token"})
	}

	user, err := repo.FindUserByID(ctx, rotated.UserID)
	if err != nil || !user.Active {
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired refresh token"})
	}

	accessToken, err := generateAccessToken(user)
	if err != nil {
		log.Error("failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token":         accessToken,
		"refresh_token": rotated.Token,
	})
}

// Register creates an account from the public signup form. The account starts
// without an organization; a clinic owner or admin assigns one later.
func Register(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		Email     string     `json:"email"`
		Password  string     `json:"password"`
		FirstName string     `json:"first_name"`
		LastName  string     `json:"last_name"`
		Role      model.Role `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Email == "" || req.Password == "" {
		prometheus.RecordAuthError("incomplete_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}
	if req.Role.IsAdmin() || req.Role.IsOrgOwner() {
		// Privileged roles are provisioned by an admin, never self-assigned.
		prometheus.RecordAuthError("forbidden_role")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role cannot be self-assigned"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	user, err := repo.RegisterUser(c.Request().Context(), repository.CreateUserInput{
		Email:     req.Email,
		Password:  string(hashed),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		var verr *repository.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Message, "field": verr.Field})
		}
		log.Error("failed to create user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	log.Info("user registered", zap.String("email", user.Email))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "user registered successfully",
		"user":    user,
	})
}

// issueTokenPair responds with a signed access token and a DB-backed
// refresh token
func issueTokenPair(c echo.Context, user *model.User) error {
	log := logger.FromEcho(c)

	accessToken, err := generateAccessToken(user)
	if err != nil {
		log.Error("failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	refresh, err := repo.IssueRefreshToken(c.Request().Context(), user.ID, cfg.JWT.RefreshLifetime)
	if err != nil {
		log.Error("failed to issue refresh token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("user logged in",
		zap.String("email", user.Email),
		zap.String("role", string(user.Role)))

	return c.JSON(http.StatusOK, echo.Map{
		"token":         accessToken,
		"refresh_token": refresh.Token,
		"user":          user,
	})
}

func generateAccessToken(user *model.User) (string, error) {
	var orgID *string
	if user.OrganizationID != nil {
		s := user.OrganizationID.String()
		orgID = &s
	}
	return jwtutil.GenerateToken(user.ID.String(), user.Email, string(user.Role), orgID)
}
