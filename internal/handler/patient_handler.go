package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"clinic-service/internal/model"
	"clinic-service/internal/repository"
	"clinic-service/pkg/logger"
)

// patientSummary is the lightweight projection returned by the patient list:
// the fields the patient screen renders without a second round trip.
type patientSummary struct {
	ID          uuid.UUID  `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email,omitempty"`
	Active      bool       `json:"is_active"`
	AppUserID   *uuid.UUID `json:"app_user_id"`
	StatusLabel string     `json:"status_label"`
	Initials    string     `json:"initials"`
	PhotoURL    string     `json:"photo,omitempty"`
}

func summarize(rec model.PatientRecord) patientSummary {
	return patientSummary{
		ID:          rec.ID,
		FirstName:   rec.FirstName,
		LastName:    rec.LastName,
		Email:       rec.Email,
		Active:      rec.Active,
		AppUserID:   rec.AppUserID,
		StatusLabel: rec.StatusLabel(),
		Initials:    rec.Initials(),
		PhotoURL:    rec.PhotoURL,
	}
}

// ListPatients returns the caller's visible clinical records as a light
// projection, optionally narrowed by ?search=
func ListPatients(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	records, err := repo.ListPatients(c.Request().Context(), p, c.QueryParam("search"))
	if err != nil {
		return writeError(c, p, err)
	}

	summaries := make([]patientSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, summarize(rec))
	}
	return c.JSON(http.StatusOK, summaries)
}

// GetPatient returns the full clinical record
func GetPatient(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid patient ID"})
	}

	rec, err := repo.GetPatient(c.Request().Context(), p, id)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// CreatePatient opens a clinical record in the caller's organization
func CreatePatient(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req repository.CreatePatientInput
	if err := c.Bind(&req); err != nil {
		logger.FromEcho(c).Error("failed to parse patient request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	rec, err := repo.CreatePatient(c.Request().Context(), p, req)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

// UpdatePatient applies a partial update to a clinical record
func UpdatePatient(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid patient ID"})
	}

	var req repository.UpdatePatientInput
	if err := c.Bind(&req); err != nil {
		logger.FromEcho(c).Error("failed to parse patient request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	rec, err := repo.UpdatePatient(c.Request().Context(), p, id, req)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// DeletePatient removes a clinical record
func DeletePatient(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid patient ID"})
	}

	if err := repo.DeletePatient(c.Request().Context(), p, id); err != nil {
		return writeError(c, p, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadPatientPhoto stores a base64-encoded photo in the media store and
// saves its URL on the record
func UploadPatientPhoto(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid patient ID"})
	}

	var req struct {
		Image string `json:"image"` // data URI: "data:image/jpeg;base64,..."
	}
	if err := c.Bind(&req); err != nil || req.Image == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "image is required"})
	}

	if !media.Enabled() {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "media uploads are not configured"})
	}

	ctx := c.Request().Context()
	// Scope check first so an out-of-scope caller cannot fill the bucket.
	if _, err := repo.GetPatient(ctx, p, id); err != nil {
		return writeError(c, p, err)
	}

	url, err := media.UploadBase64Image(ctx, req.Image, "patients/photos")
	if err != nil {
		logger.FromEcho(c).Error("photo upload failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "upload failed"})
	}

	rec, err := repo.SetPatientPhoto(ctx, p, id, url)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, rec)
}
