package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-service/internal/model"
	"clinic-service/internal/scope"
)

func TestRegisterUserNormalizesEmailAndCreatesProfile(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	user, err := r.RegisterUser(ctx, CreateUserInput{
		Email:    "  New@Example.COM ",
		Password: "hashed",
		Role:     model.RoleProfessional,
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Nil(t, user.OrganizationID, "public signup starts without an organization")

	var profile model.ProfessionalProfile
	require.NoError(t, r.db.Where("user_id = ?", user.ID).First(&profile).Error)
}

func TestRegisterUserPatientProfile(t *testing.T) {
	r := newTestRepo(t)

	user, err := r.RegisterUser(context.Background(), CreateUserInput{
		Email:    "patient@example.com",
		Password: "hashed",
		Role:     model.RolePatient,
	})
	require.NoError(t, err)

	var profile model.PatientProfile
	require.NoError(t, r.db.Where("user_id = ?", user.ID).First(&profile).Error)
}

func TestRegisterDuplicateEmailRejected(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.RegisterUser(ctx, CreateUserInput{Email: "dup@example.com", Password: "x"})
	require.NoError(t, err)

	// Duplicates are caught regardless of the casing of the second attempt.
	_, err = r.RegisterUser(ctx, CreateUserInput{Email: "DUP@example.com", Password: "x"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)
}

func TestRegisterValidation(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	var verr *ValidationError
	_, err := r.RegisterUser(ctx, CreateUserInput{Password: "x"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)

	_, err = r.RegisterUser(ctx, CreateUserInput{Email: "a@b.com"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "password", verr.Field)

	_, err = r.RegisterUser(ctx, CreateUserInput{Email: "a@b.com", Password: "x", Role: "SUPERUSER"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "role", verr.Field)
}

func TestAdminNeverKeepsAnOrganization(t *testing.T) {
	r := newTestRepo(t)
	org := seedOrg(t, r, model.PlanBusiness)
	admin := seedUser(t, r, model.RoleAdmin, nil, "root@example.com")

	// Even an explicit organization on an admin account is discarded on save.
	created, err := r.CreateUser(context.Background(), principalFor(admin), CreateUserInput{
		Email:          "admin2@example.com",
		Password:       "hashed",
		Role:           model.RoleAdmin,
		OrganizationID: &org.ID,
	})
	require.NoError(t, err)
	assert.Nil(t, created.OrganizationID)
}

func TestCreateUserForcedIntoCallersClinic(t *testing.T) {
	r := newTestRepo(t)
	orgA := seedOrg(t, r, model.PlanBusiness)
	orgB := seedOrg(t, r, model.PlanBusiness)
	owner := seedUser(t, r, model.RoleOrgOwner, &orgA.ID, "owner@a.test")

	// The owner asked for orgB; the row lands in the owner's own clinic.
	created, err := r.CreateUser(context.Background(), principalFor(owner), CreateUserInput{
		Email:          "staff@a.test",
		Password:       "hashed",
		Role:           model.RoleProfessional,
		OrganizationID: &orgB.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, created.OrganizationID)
	assert.Equal(t, orgA.ID, *created.OrganizationID)
}

func TestProfessionalCannotCreateUsers(t *testing.T) {
	r := newTestRepo(t)
	org := seedOrg(t, r, model.PlanBusiness)
	prof := seedUser(t, r, model.RoleProfessional, &org.ID, "prof@clinic.test")

	_, err := r.CreateUser(context.Background(), principalFor(prof), CreateUserInput{
		Email:    "new@clinic.test",
		Password: "hashed",
	})
	assert.ErrorIs(t, err, scope.ErrPermissionDenied)
}

func TestOwnerCannotCreateAdmin(t *testing.T) {
	r := newTestRepo(t)
	org := seedOrg(t, r, model.PlanBusiness)
	owner := seedUser(t, r, model.RoleOrgOwner, &org.ID, "owner@clinic.test")

	_, err := r.CreateUser(context.Background(), principalFor(owner), CreateUserInput{
		Email:    "sneaky@clinic.test",
		Password: "hashed",
		Role:     model.RoleAdmin,
	})
	assert.ErrorIs(t, err, scope.ErrPermissionDenied)
}

func TestUserScopeSelfOnly(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	org := seedOrg(t, r, model.PlanBusiness)
	prof := seedUser(t, r, model.RoleProfessional, &org.ID, "one@clinic.test")
	other := seedUser(t, r, model.RoleProfessional, &org.ID, "two@clinic.test")

	// A professional sees exactly one account: their own.
	list, err := r.ListUsers(ctx, principalFor(prof), "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, prof.ID, list[0].ID)

	_, err = r.GetUser(ctx, principalFor(prof), other.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOwnerManagesWholeClinic(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	orgA := seedOrg(t, r, model.PlanBusiness)
	orgB := seedOrg(t, r, model.PlanBusiness)
	owner := seedUser(t, r, model.RoleOrgOwner, &orgA.ID, "owner@a.test")
	seedUser(t, r, model.RoleProfessional, &orgA.ID, "staff@a.test")
	outsider := seedUser(t, r, model.RoleProfessional, &orgB.ID, "staff@b.test")

	list, err := r.ListUsers(ctx, principalFor(owner), "")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = r.GetUser(ctx, principalFor(owner), outsider.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateUserRoleChangeRestricted(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	org := seedOrg(t, r, model.PlanBusiness)
	prof := seedUser(t, r, model.RoleProfessional, &org.ID, "prof@clinic.test")
	owner := seedUser(t, r, model.RoleOrgOwner, &org.ID, "owner@clinic.test")

	// A professional cannot promote themselves.
	newRole := model.RoleOrgOwner
	_, err := r.UpdateUser(ctx, principalFor(prof), prof.ID, UpdateUserInput{Role: &newRole})
	assert.ErrorIs(t, err, scope.ErrPermissionDenied)

	// The owner can change staff roles inside the clinic, but not mint admins.
	adminRole := model.RoleAdmin
	_, err = r.UpdateUser(ctx, principalFor(owner), prof.ID, UpdateUserInput{Role: &adminRole})
	assert.ErrorIs(t, err, scope.ErrPermissionDenied)

	patientRole := model.RolePatient
	updated, err := r.UpdateUser(ctx, principalFor(owner), prof.ID, UpdateUserInput{Role: &patientRole})
	require.NoError(t, err)
	assert.Equal(t, model.RolePatient, updated.Role)
}

func TestDeleteUserNullifiesLinks(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	org := seedOrg(t, r, model.PlanBusiness)
	admin := seedUser(t, r, model.RoleAdmin, nil, "root@example.com")
	prof := seedUser(t, r, model.RoleProfessional, &org.ID, "prof@clinic.test")
	appUser := seedUser(t, r, model.RolePatient, nil, "linked@clinic.com")

	rec, err := r.CreatePatient(ctx, principalFor(prof), CreatePatientInput{
		FirstName: "Linked",
		Email:     "linked@clinic.com",
	})
	require.NoError(t, err)
	require.NotNil(t, rec.AppUserID)

	meal, err := r.CreateMeal(ctx, principalFor(prof), CreateMealInput{Name: "Owned meal"})
	require.NoError(t, err)

	require.NoError(t, r.DeleteUser(ctx, principalFor(admin), appUser.ID))
	require.NoError(t, r.DeleteUser(ctx, principalFor(admin), prof.ID))

	// The clinical record and the recipe survive, unlinked.
	var kept model.PatientRecord
	require.NoError(t, r.db.First(&kept, "id = ?", rec.ID).Error)
	assert.Nil(t, kept.AppUserID)

	var keptMeal model.Meal
	require.NoError(t, r.db.First(&keptMeal, meal.ID).Error)
	assert.Nil(t, keptMeal.CreatedByID)
}

func TestDeleteUserCannotDeleteSelf(t *testing.T) {
	r := newTestRepo(t)
	admin := seedUser(t, r, model.RoleAdmin, nil, "root@example.com")

	err := r.DeleteUser(context.Background(), principalFor(admin), admin.ID)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "id", verr.Field)
}

func TestUpdateUserEmailIsImmutable(t *testing.T) {
	r := newTestRepo(t)
	org := seedOrg(t, r, model.PlanBusiness)
	owner := seedUser(t, r, model.RoleOrgOwner, &org.ID, "owner@clinic.test")
	prof := seedUser(t, r, model.RoleProfessional, &org.ID, "prof@clinic.test")

	name := "Renamed"
	updated, err := r.UpdateUser(context.Background(), principalFor(owner), prof.ID, UpdateUserInput{
		FirstName: &name,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.FirstName)
	assert.Equal(t, "prof@clinic.test", updated.Email)
}

func TestFindUserByEmailNormalizes(t *testing.T) {
	r := newTestRepo(t)
	seedUser(t, r, model.RoleProfessional, nil, "case@example.com")

	user, err := r.FindUserByEmail(context.Background(), "  CASE@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "case@example.com", user.Email)

	_, err = r.FindUserByEmail(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
