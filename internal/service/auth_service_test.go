package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-labs/attendance-api/internal/models"
	appErrors "github.com/campus-labs/attendance-api/pkg/errors"
)

type mockUserRepo struct {
	user       *models.User
	findErr    error
	lastLogins int
}

func (m *mockUserRepo) FindByEmail(_ context.Context, _ string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.user, nil
}

func (m *mockUserRepo) UpdateLastLogin(_ context.Context, _ string, _ time.Time) error {
	m.lastLogins++
	return nil
}

type mockStaffRepo struct {
	staff    *models.Staff
	findErr  error
	created  *models.Staff
	userSeen *models.User
}

func (m *mockStaffRepo) FindByEmployeeNo(_ context.Context, _ string) (*models.Staff, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.staff, nil
}

func (m *mockStaffRepo) CreateAccount(_ context.Context, user *models.User, staff *models.Staff) error {
	m.userSeen = user
	m.created = staff
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		TokenSecret: "test-secret",
		TokenExpiry: time.Hour,
		Issuer:      "attendance-api",
		EmailDomain: "ntu.edu.sg",
	}
}

func activeUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		Email:        "chan.wl@ntu.edu.sg",
		PasswordHash: string(hash),
		Role:         models.RoleStaff,
		Active:       true,
	}
}

func TestAuthServiceLogin(t *testing.T) {
	users := &mockUserRepo{user: activeUser(t, "correct-horse")}
	svc := NewAuthService(users, &mockStaffRepo{}, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "chan.wl@ntu.edu.sg",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, models.RoleStaff, resp.User.Role)
	require.Equal(t, 1, users.lastLogins)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, models.RoleStaff, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	users := &mockUserRepo{user: activeUser(t, "correct-horse")}
	svc := NewAuthService(users, &mockStaffRepo{}, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "chan.wl@ntu.edu.sg",
		Password: "wrong-password",
	})
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	users := &mockUserRepo{findErr: sql.ErrNoRows}
	svc := NewAuthService(users, &mockStaffRepo{}, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@ntu.edu.sg",
		Password: "correct-horse",
	})
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	user := activeUser(t, "correct-horse")
	user.Active = false
	svc := NewAuthService(&mockUserRepo{user: user}, &mockStaffRepo{}, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "chan.wl@ntu.edu.sg",
		Password: "correct-horse",
	})
	require.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func registerRequest() models.RegisterStaffRequest {
	return models.RegisterStaffRequest{
		Email:      "lee.mh@ntu.edu.sg",
		Password:   "s3cure-enough",
		FullName:   "Lee Ming Hui",
		EmployeeNo: "EMP010",
		Role:       "professor",
	}
}

func TestAuthServiceRegisterStaff(t *testing.T) {
	users := &mockUserRepo{findErr: sql.ErrNoRows}
	staff := &mockStaffRepo{findErr: sql.ErrNoRows}
	svc := NewAuthService(users, staff, nil, nil, testAuthConfig())

	created, err := svc.RegisterStaff(context.Background(), registerRequest())
	require.NoError(t, err)
	require.Equal(t, models.StaffRoleProfessor, created.Role)
	require.Equal(t, "EMP010", created.EmployeeNo)
	require.NotNil(t, staff.userSeen)
	require.Equal(t, models.RoleStaff, staff.userSeen.Role)
	require.NotEqual(t, "s3cure-enough", staff.userSeen.PasswordHash)
}

func TestAuthServiceRegisterStaffWrongDomain(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{findErr: sql.ErrNoRows}, &mockStaffRepo{findErr: sql.ErrNoRows}, nil, nil, testAuthConfig())

	req := registerRequest()
	req.Email = "lee.mh@gmail.com"
	_, err := svc.RegisterStaff(context.Background(), req)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterStaffDuplicateEmail(t *testing.T) {
	users := &mockUserRepo{user: activeUser(t, "whatever9")}
	svc := NewAuthService(users, &mockStaffRepo{findErr: sql.ErrNoRows}, nil, nil, testAuthConfig())

	_, err := svc.RegisterStaff(context.Background(), registerRequest())
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterStaffBadRole(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{findErr: sql.ErrNoRows}, &mockStaffRepo{findErr: sql.ErrNoRows}, nil, nil, testAuthConfig())

	req := registerRequest()
	req.Role = "janitor"
	_, err := svc.RegisterStaff(context.Background(), req)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{}, &mockStaffRepo{}, nil, nil, testAuthConfig())

	_, err := svc.ValidateToken("not-a-token")
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
