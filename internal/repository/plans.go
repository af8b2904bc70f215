package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic-service/internal/model"
	"clinic-service/internal/scope"
	"clinic-service/prometheus"
)

// CreatePlanInput is the payload for creating a diet plan. ProfessionalID is
// honored only for admin callers; professionals always author their own plans.
type CreatePlanInput struct {
	PatientID      uuid.UUID  `json:"patient"`
	ProfessionalID *uuid.UUID `json:"professional"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
}

// UpdatePlanInput carries a partial update; nil fields are left unchanged
type UpdatePlanInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Active      *bool   `json:"is_active"`
}

// AllocationInput schedules one meal at one slot of the weekly calendar
type AllocationInput struct {
	DayOfWeek int            `json:"day_of_week"`
	MealTime  model.MealTime `json:"meal_time"`
	MealID    uint           `json:"meal"`
	Notes     string         `json:"notes"`
}

// planAllocationOrder is the domain ordering of a plan's calendar: by day,
// then by meal-time label.
const planAllocationOrder = "day_of_week, meal_time"

// ListPlans returns the diet plans visible to the principal: the ones they
// authored for professionals, the ones assigned to them for patients.
func (r *Repository) ListPlans(ctx context.Context, p scope.Principal) ([]model.DietPlan, error) {
	access, err := scope.Resolve(p, scope.ResourceDietPlan)
	if err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var plans []model.DietPlan
	err = access.Apply(r.db.WithContext(ctx).Model(&model.DietPlan{})).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB {
			return db.Order(planAllocationOrder)
		}).
		Preload("Allocations.Meal.Items.Ingredient").
		Order("created_at DESC").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

// GetPlan returns one diet plan with its full calendar if it is inside the
// caller's scope
func (r *Repository) GetPlan(ctx context.Context, p scope.Principal, id uuid.UUID) (*model.DietPlan, error) {
	access, err := scope.Resolve(p, scope.ResourceDietPlan)
	if err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var plan model.DietPlan
	err = access.Apply(r.db.WithContext(ctx)).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB {
			return db.Order(planAllocationOrder)
		}).
		Preload("Allocations.Meal.Items.Ingredient").
		Where("id = ?", id).
		First(&plan).Error
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &plan, nil
}

// CreatePlan creates a diet plan authored by the calling professional for one
// patient-role user
func (r *Repository) CreatePlan(ctx context.Context, p scope.Principal, in CreatePlanInput) (*model.DietPlan, error) {
	access, err := scope.Resolve(p, scope.ResourceDietPlan)
	if err != nil {
		return nil, err
	}
	if !access.CanWrite() {
		return nil, scope.ErrPermissionDenied
	}

	if in.Name == "" {
		return nil, invalid("name", "is required")
	}
	if in.PatientID == uuid.Nil {
		return nil, invalid("patient", "is required")
	}

	professionalID := p.ID
	if access.All && in.ProfessionalID != nil {
		professionalID = *in.ProfessionalID
	}

	var patient model.User
	if err := r.db.WithContext(ctx).First(&patient, "id = ?", in.PatientID).Error; err != nil {
		return nil, invalid("patient", "no such patient user")
	}
	if !patient.Role.IsPatient() {
		return nil, invalid("patient", "user is not a patient")
	}

	plan := model.DietPlan{
		PatientID:      in.PatientID,
		ProfessionalID: professionalID,
		Name:           in.Name,
		Description:    in.Description,
		Active:         true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&plan).Error
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("diet plan created",
		zap.String("plan_id", plan.ID.String()),
		zap.String("professional_id", professionalID.String()),
		zap.String("patient_id", in.PatientID.String()))
	return &plan, nil
}

// UpdatePlan applies a partial update to a plan the caller authored
func (r *Repository) UpdatePlan(ctx context.Context, p scope.Principal, id uuid.UUID, in UpdatePlanInput) (*model.DietPlan, error) {
	access, err := scope.Resolve(p, scope.ResourceDietPlan)
	if err != nil {
		return nil, err
	}
	if !access.CanWrite() {
		return nil, scope.ErrPermissionDenied
	}

	plan, err := r.GetPlan(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, invalid("name", "is required")
		}
		plan.Name = *in.Name
	}
	if in.Description != nil {
		plan.Description = *in.Description
	}
	if in.Active != nil {
		plan.Active = *in.Active
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Allocations").Save(plan).Error
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// DeletePlan removes a plan the caller authored, along with its calendar
func (r *Repository) DeletePlan(ctx context.Context, p scope.Principal, id uuid.UUID) error {
	access, err := scope.Resolve(p, scope.ResourceDietPlan)
	if err != nil {
		return err
	}
	if !access.CanWrite() {
		return scope.ErrPermissionDenied
	}

	plan, err := r.GetPlan(ctx, p, id)
	if err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plan_id = ?", plan.ID).Delete(&model.PlanAllocation{}).Error; err != nil {
			return err
		}
		return tx.Delete(plan).Error
	})
}

// AddAllocation schedules a meal on a plan the caller authored
func (r *Repository) AddAllocation(ctx context.Context, p scope.Principal, planID uuid.UUID, in AllocationInput) (*model.PlanAllocation, error) {
	access, err := scope.Resolve(p, scope.ResourceDietPlan)
	if err != nil {
		return nil, err
	}
	if !access.CanWrite() {
		return nil, scope.ErrPermissionDenied
	}

	plan, err := r.GetPlan(ctx, p, planID)
	if err != nil {
		return nil, err
	}

	if in.DayOfWeek < 1 || in.DayOfWeek > 7 {
		return nil, invalid("day_of_week", "must be between 1 (Monday) and 7 (Sunday)")
	}
	if !in.MealTime.Valid() {
		return nil, invalid("meal_time", "unknown meal time")
	}
	var meal model.Meal
	if err := r.db.WithContext(ctx).First(&meal, in.MealID).Error; err != nil {
		return nil, invalid("meal", "no such meal")
	}

	alloc := model.PlanAllocation{
		PlanID:    plan.ID,
		DayOfWeek: in.DayOfWeek,
		MealTime:  in.MealTime,
		MealID:    in.MealID,
		Notes:     in.Notes,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&alloc).Error
	})
	if err != nil {
		return nil, err
	}
	return &alloc, nil
}

// RemoveAllocation unschedules one slot of a plan the caller authored
func (r *Repository) RemoveAllocation(ctx context.Context, p scope.Principal, planID uuid.UUID, allocationID uint) error {
	access, err := scope.Resolve(p, scope.ResourceDietPlan)
	if err != nil {
		return err
	}
	if !access.CanWrite() {
		return scope.ErrPermissionDenied
	}

	plan, err := r.GetPlan(ctx, p, planID)
	if err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	res := r.db.WithContext(ctx).
		Where("plan_id = ?", plan.ID).
		Delete(&model.PlanAllocation{}, allocationID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
