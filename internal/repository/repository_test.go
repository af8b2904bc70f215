package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"clinic-service/internal/model"
	"clinic-service/internal/scope"
)

// newTestRepo opens a fresh in-memory database per test. The DSN is keyed by
// the test name so parallel tests never share state.
func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.Organization{},
		&model.User{},
		&model.ProfessionalProfile{},
		&model.PatientProfile{},
		&model.PatientRecord{},
		&model.Ingredient{},
		&model.Meal{},
		&model.MealItem{},
		&model.DietPlan{},
		&model.PlanAllocation{},
		&model.RefreshToken{},
	))

	return New(db, zap.NewNop())
}

func seedOrg(t *testing.T, r *Repository, plan model.PlanType) *model.Organization {
	t.Helper()
	org := model.Organization{
		Name:     "Test Clinic " + uuid.NewString()[:8],
		Slug:     "clinic-" + uuid.NewString()[:8],
		PlanType: plan,
		Active:   true,
	}
	require.NoError(t, r.db.Create(&org).Error)
	return &org
}

func seedUser(t *testing.T, r *Repository, role model.Role, orgID *uuid.UUID, email string) *model.User {
	t.Helper()
	user := model.User{
		Email:          email,
		Password:       "hashed",
		FirstName:      "Test",
		LastName:       "User",
		Role:           role,
		OrganizationID: orgID,
		Active:         true,
	}
	require.NoError(t, r.db.Create(&user).Error)
	return &user
}

func principalFor(u *model.User) scope.Principal {
	return scope.Principal{
		ID:             u.ID,
		Email:          u.Email,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
	}
}

func seedIngredient(t *testing.T, r *Repository, name string, calories float64) *model.Ingredient {
	t.Helper()
	ingredient := model.Ingredient{
		Name:     name,
		Category: model.CategoryProtein,
		Calories: calories,
	}
	require.NoError(t, r.db.Create(&ingredient).Error)
	return &ingredient
}
