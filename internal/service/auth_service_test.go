package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/van-fee-api/internal/models"
	"github.com/noah-isme/van-fee-api/internal/repository"
	appErrors "github.com/noah-isme/van-fee-api/pkg/errors"
)

type mockAuthRepo struct {
	users            map[string]*models.User
	createErr        error
	lastLoginUpdated bool
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{users: map[string]*models.User{}}
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = uuid.NewString()
	m.users[user.ID] = user
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func newAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "van-fee-api",
		BcryptCost:        bcrypt.MinCost,
	})
}

func TestRegisterThenLogin(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthService(repo)
	ctx := context.Background()

	reg, err := svc.Register(ctx, models.RegisterRequest{Email: "driver@example.com", Password: "secret1", FullName: "Driver"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, reg.User.Role)
	assert.NotEmpty(t, reg.AccessToken)

	login, err := svc.Login(ctx, models.LoginRequest{Email: "driver@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.True(t, repo.lastLoginUpdated)

	claims, err := svc.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
	assert.Equal(t, reg.User.ID, claims.Subject)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMockAuthRepo()
	repo.createErr = repository.ErrDuplicate
	svc := newAuthService(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{Email: "driver@example.com", Password: "secret1", FullName: "Driver"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthService(newMockAuthRepo())
	_, err := svc.Register(context.Background(), models.RegisterRequest{Email: "not-an-email", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthService(repo)
	_, err := svc.Register(context.Background(), models.RegisterRequest{Email: "driver@example.com", Password: "secret1", FullName: "Driver"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "driver@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	repo := newMockAuthRepo()
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	repo.users["u1"] = &models.User{ID: "u1", Email: "driver@example.com", PasswordHash: string(hash), Active: false}

	_, err := newAuthService(repo).Login(context.Background(), models.LoginRequest{Email: "driver@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsForeignIssuer(t *testing.T) {
	repo := newMockAuthRepo()
	other := NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "someone-else", BcryptCost: bcrypt.MinCost})
	resp, err := other.Register(context.Background(), models.RegisterRequest{Email: "driver@example.com", Password: "secret1", FullName: "Driver"})
	require.NoError(t, err)

	_, err = newAuthService(repo).ValidateToken(resp.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestProfileNotFound(t *testing.T) {
	_, err := newAuthService(newMockAuthRepo()).Profile(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
