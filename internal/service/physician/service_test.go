package physician

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremesh/credentialing-api/internal/model"
	auditService "github.com/caremesh/credentialing-api/internal/service/audit"
)

type fakePhysicianRepo struct {
	physicians map[uuid.UUID]*model.Physician
	deleted    map[uuid.UUID]bool
}

func newFakePhysicianRepo() *fakePhysicianRepo {
	return &fakePhysicianRepo{
		physicians: make(map[uuid.UUID]*model.Physician),
		deleted:    make(map[uuid.UUID]bool),
	}
}

func (r *fakePhysicianRepo) Create(_ context.Context, p *model.Physician) error {
	copied := *p
	r.physicians[p.ID] = &copied
	return nil
}

func (r *fakePhysicianRepo) Get(_ context.Context, id uuid.UUID) (*model.Physician, error) {
	p, ok := r.physicians[id]
	if !ok || r.deleted[id] {
		return nil, sql.ErrNoRows
	}
	copied := *p
	return &copied, nil
}

func (r *fakePhysicianRepo) GetByNPI(_ context.Context, npi string) (*model.Physician, error) {
	for id, p := range r.physicians {
		if p.NPI == npi && !r.deleted[id] {
			copied := *p
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakePhysicianRepo) Update(_ context.Context, p *model.Physician) error {
	if _, ok := r.physicians[p.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *p
	r.physicians[p.ID] = &copied
	return nil
}

func (r *fakePhysicianRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.deleted[id] = true
	return nil
}

func (r *fakePhysicianRepo) List(_ context.Context, filters *model.PhysicianFilters) ([]*model.Physician, error) {
	var out []*model.Physician
	for id, p := range r.physicians {
		if r.deleted[id] {
			continue
		}
		if filters != nil && filters.Specialty != "" && p.Specialty != filters.Specialty {
			continue
		}
		copied := *p
		out = append(out, &copied)
	}
	return out, nil
}

type fakeAuditRepo struct {
	entries []*model.AuditLog
}

func (r *fakeAuditRepo) Create(_ context.Context, log *model.AuditLog) error {
	r.entries = append(r.entries, log)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, entityType string, entityID uuid.UUID) ([]*model.AuditLog, error) {
	return r.entries, nil
}

func (r *fakeAuditRepo) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func validPhysician() *model.Physician {
	return &model.Physician{
		NPI:         "1234567890",
		FirstName:   "Sarah",
		LastName:    "Chen",
		Email:       "sarah.chen@example.org",
		DateOfBirth: time.Date(1980, 3, 12, 0, 0, 0, 0, time.UTC),
		Specialty:   "cardiology",
	}
}

func TestCreatePhysicianDefaultsStatus(t *testing.T) {
	repo := newFakePhysicianRepo()
	audits := &fakeAuditRepo{}
	svc := NewService(repo, auditService.NewService(audits))

	physician := validPhysician()
	require.NoError(t, svc.CreatePhysician(context.Background(), physician))

	assert.NotEqual(t, uuid.Nil, physician.ID)
	assert.Equal(t, string(model.PhysicianStatusActive), physician.Status)
	assert.Len(t, audits.entries, 1)
	assert.Equal(t, model.AuditActionCreate, audits.entries[0].Action)
}

func TestCreatePhysicianValidation(t *testing.T) {
	svc := NewService(newFakePhysicianRepo(), auditService.NewService(&fakeAuditRepo{}))

	tests := []struct {
		name   string
		mutate func(*model.Physician)
	}{
		{"missing NPI", func(p *model.Physician) { p.NPI = "" }},
		{"short NPI", func(p *model.Physician) { p.NPI = "12345" }},
		{"missing first name", func(p *model.Physician) { p.FirstName = "" }},
		{"missing last name", func(p *model.Physician) { p.LastName = "" }},
		{"missing email", func(p *model.Physician) { p.Email = "" }},
		{"missing date of birth", func(p *model.Physician) { p.DateOfBirth = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			physician := validPhysician()
			tt.mutate(physician)
			assert.Error(t, svc.CreatePhysician(context.Background(), physician))
		})
	}
}

func TestEmergencyContactRoundTrip(t *testing.T) {
	repo := newFakePhysicianRepo()
	svc := NewService(repo, auditService.NewService(&fakeAuditRepo{}))

	physician := validPhysician()
	physician.EmergencyContact = &model.EmergencyContact{
		Name:         "Wei Chen",
		Relationship: "spouse",
		Phone:        "555-0142",
	}
	require.NoError(t, svc.CreatePhysician(context.Background(), physician))

	fetched, err := svc.GetPhysician(context.Background(), physician.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.EmergencyContact)
	assert.Equal(t, "Wei Chen", fetched.EmergencyContact.Name)
	assert.Equal(t, "spouse", fetched.EmergencyContact.Relationship)
}

func TestDeletePhysicianIsSoft(t *testing.T) {
	repo := newFakePhysicianRepo()
	svc := NewService(repo, auditService.NewService(&fakeAuditRepo{}))

	physician := validPhysician()
	require.NoError(t, svc.CreatePhysician(context.Background(), physician))
	require.NoError(t, svc.DeletePhysician(context.Background(), physician.ID))

	_, err := svc.GetPhysician(context.Background(), physician.ID)
	assert.Error(t, err)

	// The row survives underneath; only the visibility flag changed.
	assert.Contains(t, repo.physicians, physician.ID)
}

func TestListPhysiciansFiltersSpecialty(t *testing.T) {
	repo := newFakePhysicianRepo()
	svc := NewService(repo, auditService.NewService(&fakeAuditRepo{}))

	first := validPhysician()
	require.NoError(t, svc.CreatePhysician(context.Background(), first))

	second := validPhysician()
	second.NPI = "0987654321"
	second.Email = "lena.ortiz@example.org"
	second.Specialty = "dermatology"
	require.NoError(t, svc.CreatePhysician(context.Background(), second))

	cardio, err := svc.ListPhysicians(context.Background(), &model.PhysicianFilters{Specialty: "cardiology"})
	require.NoError(t, err)
	require.Len(t, cardio, 1)
	assert.Equal(t, first.ID, cardio[0].ID)
}
