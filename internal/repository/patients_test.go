package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-service/internal/model"
	"clinic-service/internal/scope"
)

func TestCreatePatientForcesCallerOrganization(t *testing.T) {
	r := newTestRepo(t)
	org := seedOrg(t, r, model.PlanBusiness)
	prof := seedUser(t, r, model.RoleProfessional, &org.ID, "prof@clinic.test")

	rec, err := r.CreatePatient(context.Background(), principalFor(prof), CreatePatientInput{
		FirstName: "Juan",
		LastName:  "Perez",
	})
	require.NoError(t, err)
	assert.Equal(t, org.ID, rec.OrganizationID)
	assert.True(t, rec.Active)
	assert.Equal(t, "pending", rec.StatusLabel())
}

func TestCreatePatientRequiresFirstName(t *testing.T) {
	r := newTestRepo(t)
	org := seedOrg(t, r, model.PlanBusiness)
	prof := seedUser(t, r, model.RoleProfessional, &org.ID, "prof@clinic.test")

	_, err := r.CreatePatient(context.Background(), principalFor(prof), CreatePatientInput{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "first_name", verr.Field)
}

func TestPatientTenantIsolation(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	orgA := seedOrg(t, r, model.PlanBusiness)
	orgB := seedOrg(t, r, model.PlanBusiness)
	profA := seedUser(t, r, model.RoleProfessional, &orgA.ID, "a@clinic.test")
	profB := seedUser(t, r, model.RoleProfessional, &orgB.ID, "b@clinic.test")

	recA, err := r.CreatePatient(ctx, principalFor(profA), CreatePatientInput{FirstName: "Ana"})
	require.NoError(t, err)
	recB, err := r.CreatePatient(ctx, principalFor(profB), CreatePatientInput{FirstName: "Bruno"})
	require.NoError(t, err)

	// Same-org colleague sees the record; the other clinic does not.
	listA, err := r.ListPatients(ctx, principalFor(profA), "")
	require.NoError(t, err)
	require.Len(t, listA, 1)
	assert.Equal(t, recA.ID, listA[0].ID)

	// Cross-tenant reads come back as not found, never as forbidden.
	_, err = r.GetPatient(ctx, principalFor(profA), recB.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, scope.ErrPermissionDenied)

	// Cross-tenant writes are equally invisible.
	_, err = r.UpdatePatient(ctx, principalFor(profA), recB.ID, UpdatePatientInput{})
	assert.ErrorIs(t, err, ErrNotFound)
	err = r.DeletePatient(ctx, principalFor(profA), recB.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPatientRecordsDeniedToPatientRole(t *testing.T) {
	r := newTestRepo(t)
	org := seedOrg(t, r, model.PlanBusiness)
	patient := seedUser(t, r, model.RolePatient, &org.ID, "patient@clinic.test")

	_, err := r.ListPatients(context.Background(), principalFor(patient), "")
	assert.ErrorIs(t, err, scope.ErrPermissionDenied)

	_, err = r.CreatePatient(context.Background(), principalFor(patient), CreatePatientInput{FirstName: "X"})
	assert.ErrorIs(t, err, scope.ErrPermissionDenied)
}

func TestCreatePatientNormalizesEmailAndAutoLinks(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	org := seedOrg(t, r, model.PlanBusiness)
	prof := seedUser(t, r, model.RoleProfessional, &org.ID, "prof@clinic.test")
	appUser := seedUser(t, r, model.RolePatient, nil, "jane@clinic.com")

	rec, err := r.CreatePatient(ctx, principalFor(prof), CreatePatientInput{
		FirstName: "Jane",
		Email:     "  Jane@Clinic.com ",
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@clinic.com", rec.Email)
	require.NotNil(t, rec.AppUserID)
	assert.Equal(t, appUser.ID, *rec.AppUserID)
	assert.Equal(t, "linked", rec.StatusLabel())
}

func TestAutoLinkOnlyMatchesPatientRoleUsers(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	org := seedOrg(t, r, model.PlanBusiness)
	prof := seedUser(t, r, model.RoleProfessional, &org.ID, "prof@clinic.test")
	seedUser(t, r, model.RoleProfessional, &org.ID, "shared@clinic.com")

	rec, err := r.CreatePatient(ctx, principalFor(prof), CreatePatientInput{
		FirstName: "Jane",
		Email:     "shared@clinic.com",
	})
	require.NoError(t, err)
	assert.Nil(t, rec.AppUserID, "a professional account must not be linked as a patient login")
}

func TestAutoLinkAcceptsLegacyPatientRole(t *testing.T) {
	r := newTestRepo(t)
	org := seedOrg(t, r, model.PlanBusiness)
	prof := seedUser(t, r, model.RoleProfessional, &org.ID, "prof@clinic.test")
	legacy := seedUser(t, r, model.RoleLegacyPatient, nil, "old@clinic.com")

	rec, err := r.CreatePatient(context.Background(), principalFor(prof), CreatePatientInput{
		FirstName: "Old",
		Email:     "old@clinic.com",
	})
	require.NoError(t, err)
	require.NotNil(t, rec.AppUserID)
	assert.Equal(t, legacy.ID, *rec.AppUserID)
}

func TestUpdatePatientLinksWhenEmailAdded(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	org := seedOrg(t, r, model.PlanBusiness)
	prof := seedUser(t, r, model.RoleProfessional, &org.ID, "prof@clinic.test")
	appUser := seedUser(t, r, model.RolePatient, nil, "late@clinic.com")

	rec, err := r.CreatePatient(ctx, principalFor(prof), CreatePatientInput{FirstName: "Late"})
	require.NoError(t, err)
	require.Nil(t, rec.AppUserID)

	email := "Late@Clinic.com"
	updated, err := r.UpdatePatient(ctx, principalFor(prof), rec.ID, UpdatePatientInput{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "late@clinic.com", updated.Email)
	require.NotNil(t, updated.AppUserID)
	assert.Equal(t, appUser.ID, *updated.AppUserID)
}

func TestAutoLinkNeverRelinksAnExistingLink(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	org := seedOrg(t, r, model.PlanBusiness)
	prof := seedUser(t, r, model.RoleProfessional, &org.ID, "prof@clinic.test")
	first := seedUser(t, r, model.RolePatient, nil, "first@clinic.com")
	seedUser(t, r, model.RolePatient, nil, "second@clinic.com")

	rec, err := r.CreatePatient(ctx, principalFor(prof), CreatePatientInput{
		FirstName: "Linked",
		Email:     "first@clinic.com",
	})
	require.NoError(t, err)
	require.NotNil(t, rec.AppUserID)

	// Changing the email on an already linked record keeps the original link.
	email := "second@clinic.com"
	updated, err := r.UpdatePatient(ctx, principalFor(prof), rec.ID, UpdatePatientInput{Email: &email})
	require.NoError(t, err)
	require.NotNil(t, updated.AppUserID)
	assert.Equal(t, first.ID, *updated.AppUserID)
}

func TestPatientLimitEnforcedByPlan(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	org := seedOrg(t, r, model.PlanStarter)
	prof := seedUser(t, r, model.RoleProfessional, &org.ID, "prof@clinic.test")
	p := principalFor(prof)

	for i := 0; i < 10; i++ {
		_, err := r.CreatePatient(ctx, p, CreatePatientInput{FirstName: fmt.Sprintf("Patient%d", i)})
		require.NoError(t, err, "patient %d should fit in the STARTER limit", i)
	}

	_, err := r.CreatePatient(ctx, p, CreatePatientInput{FirstName: "Eleventh"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "organization", verr.Field)

	// Deactivating one frees a slot; only active records count.
	var rec model.PatientRecord
	require.NoError(t, r.db.Where("organization_id = ?", org.ID).First(&rec).Error)
	inactive := false
	_, err = r.UpdatePatient(ctx, p, rec.ID, UpdatePatientInput{Active: &inactive})
	require.NoError(t, err)

	_, err = r.CreatePatient(ctx, p, CreatePatientInput{FirstName: "Replacement"})
	assert.NoError(t, err)
}

func TestSearchPatientsCaseInsensitive(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	org := seedOrg(t, r, model.PlanBusiness)
	prof := seedUser(t, r, model.RoleProfessional, &org.ID, "prof@clinic.test")
	p := principalFor(prof)

	_, err := r.CreatePatient(ctx, p, CreatePatientInput{FirstName: "Maria", LastName: "Gonzalez"})
	require.NoError(t, err)
	_, err = r.CreatePatient(ctx, p, CreatePatientInput{FirstName: "Pedro", LastName: "Silva"})
	require.NoError(t, err)

	found, err := r.ListPatients(ctx, p, "GONZ")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Maria", found[0].FirstName)

	none, err := r.ListPatients(ctx, p, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSetPatientPhoto(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	org := seedOrg(t, r, model.PlanBusiness)
	prof := seedUser(t, r, model.RoleProfessional, &org.ID, "prof@clinic.test")
	p := principalFor(prof)

	rec, err := r.CreatePatient(ctx, p, CreatePatientInput{FirstName: "Foto"})
	require.NoError(t, err)

	updated, err := r.SetPatientPhoto(ctx, p, rec.ID, "https://cdn.example.com/patients/photos/x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/patients/photos/x.jpg", updated.PhotoURL)
}

func TestAdminSeesAllPatientRecords(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	orgA := seedOrg(t, r, model.PlanBusiness)
	orgB := seedOrg(t, r, model.PlanBusiness)
	profA := seedUser(t, r, model.RoleProfessional, &orgA.ID, "a@clinic.test")
	profB := seedUser(t, r, model.RoleProfessional, &orgB.ID, "b@clinic.test")
	admin := seedUser(t, r, model.RoleAdmin, nil, "admin@clinic.test")

	_, err := r.CreatePatient(ctx, principalFor(profA), CreatePatientInput{FirstName: "Ana"})
	require.NoError(t, err)
	_, err = r.CreatePatient(ctx, principalFor(profB), CreatePatientInput{FirstName: "Bruno"})
	require.NoError(t, err)

	all, err := r.ListPatients(ctx, principalFor(admin), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// But even the admin cannot create a record: there is no organization to
	// own it.
	_, err = r.CreatePatient(ctx, principalFor(admin), CreatePatientInput{FirstName: "Orphan"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "organization", verr.Field)
}
