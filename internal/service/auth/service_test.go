package auth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/service/audit"
	"github.com/caremesh/credentialing-api/pkg/auth"
	"github.com/caremesh/credentialing-api/pkg/security"
)

type fakeUserRepo struct {
	users map[string]*model.User
}

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	f.users[u.Email] = u
	return nil
}

func (f *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	f.users[u.Email] = u
	return nil
}

type fakeAuditRepo struct{}

func (f *fakeAuditRepo) Create(_ context.Context, _ *model.AuditLog) error { return nil }
func (f *fakeAuditRepo) List(_ context.Context, _ string, _ uuid.UUID) ([]*model.AuditLog, error) {
	return nil, nil
}
func (f *fakeAuditRepo) DeleteBefore(_ context.Context, _ time.Time) (int64, error) { return 0, nil }

func newTestService(t *testing.T) (*Service, *fakeUserRepo, *model.User) {
	t.Helper()
	hasher := security.NewBcryptHasher(4)
	hash, err := hasher.Hash("correct-horse-battery")
	require.NoError(t, err)

	user := &model.User{
		Base:         model.Base{ID: uuid.New()},
		Email:        "coordinator@caremesh.example",
		Name:         "Test Coordinator",
		PasswordHash: hash,
		Role:         model.UserRoleCoordinator,
		Status:       model.UserStatusActive,
	}

	repo := &fakeUserRepo{users: map[string]*model.User{user.Email: user}}
	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:        "test-secret",
		RefreshSecret: "test-refresh-secret",
		Expiry:        time.Hour,
		RefreshExpiry: 24 * time.Hour,
	})

	svc := NewService(repo, jwtSvc, hasher, time.Hour, audit.NewService(&fakeAuditRepo{}))
	return svc, repo, user
}

func TestLoginSuccess(t *testing.T) {
	svc, _, user := newTestService(t)

	tokens, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    user.Email,
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, int64(3600), tokens.ExpiresIn)

	claims, err := svc.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, string(model.UserRoleCoordinator), claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, repo, user := newTestService(t)

	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    user.Email,
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, 1, repo.users[user.Email].LoginAttempts)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "nobody@caremesh.example",
		Password: "whatever",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	svc, repo, user := newTestService(t)

	for i := 0; i < maxLoginAttempts; i++ {
		_, err := svc.Login(context.Background(), &model.LoginRequest{
			Email:    user.Email,
			Password: "wrong",
		})
		require.Error(t, err)
	}
	assert.Equal(t, model.UserStatusLocked, repo.users[user.Email].Status)

	// Correct password is still refused while locked.
	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    user.Email,
		Password: "correct-horse-battery",
	})
	require.Error(t, err)
}

func TestLockoutReleasesAfterDuration(t *testing.T) {
	svc, repo, user := newTestService(t)

	repo.users[user.Email].Status = model.UserStatusLocked
	repo.users[user.Email].LoginAttempts = maxLoginAttempts
	repo.users[user.Email].LastLoginAttempt = time.Now().Add(-lockoutDuration - time.Minute)

	tokens, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    user.Email,
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.Equal(t, model.UserStatusActive, repo.users[user.Email].Status)
	assert.Zero(t, repo.users[user.Email].LoginAttempts)
}

func TestRefresh(t *testing.T) {
	svc, _, user := newTestService(t)

	tokens, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    user.Email,
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), &model.RefreshRequest{
		RefreshToken: tokens.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	// An access token is not a valid refresh token.
	_, err = svc.Refresh(context.Background(), &model.RefreshRequest{
		RefreshToken: tokens.AccessToken,
	})
	require.Error(t, err)
}
