package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-service/internal/model"
	"clinic-service/internal/repository"
	"clinic-service/internal/scope"
	"clinic-service/pkg/logger"
)

func newErrorContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	require.NoError(t, logger.InitLogger(&logger.LogConfig{Level: "error"}))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWriteErrorMapsDeniedScopeTo403(t *testing.T) {
	c, rec := newErrorContext(t)
	p := scope.Principal{ID: uuid.New(), Role: model.RolePatient}

	require.NoError(t, writeError(c, p, scope.ErrPermissionDenied))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	// The body must stay generic: no hint of what exists or why.
	assert.JSONEq(t, `{"error":"access denied"}`, rec.Body.String())
}

func TestWriteErrorMapsNotFoundTo404(t *testing.T) {
	c, rec := newErrorContext(t)

	require.NoError(t, writeError(c, scope.Principal{}, repository.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
}

func TestWriteErrorMapsValidationTo400WithField(t *testing.T) {
	c, rec := newErrorContext(t)

	err := &repository.ValidationError{Field: "first_name", Message: "is required"}
	require.NoError(t, writeError(c, scope.Principal{}, err))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"is required","field":"first_name"}`, rec.Body.String())
}

func TestWriteErrorMapsUnknownTo500(t *testing.T) {
	c, rec := newErrorContext(t)

	require.NoError(t, writeError(c, scope.Principal{}, errors.New("disk on fire")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestPrincipalMissingRejectsRequest(t *testing.T) {
	c, _ := newErrorContext(t)

	_, err := principal(c)
	require.Error(t, err)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}
