package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"melowms/internal/core/apperror"
	"melowms/internal/core/store"
)

func newAuthService() *Service {
	return NewService(store.NewMemory(), NewJWTService(DefaultJWTConfig("test-secret")))
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	userID, err := svc.Register(ctx, RegisterInput{
		Email:     "Manager@Melo.rw",
		Name:      "Branch Manager",
		Password:  "s3cret-password",
		CompanyID: "melo",
		BranchID:  "branch-kigali",
		Roles:     []string{"manager"},
	})
	require.NoError(t, err)

	session, err := svc.Login(ctx, "manager@melo.rw", "s3cret-password")
	require.NoError(t, err)
	assert.Equal(t, userID, session.UserID)
	assert.NotEmpty(t, session.AccessToken)
	require.NotNil(t, session.User.LastLogin)

	// The token round-trips into a user context.
	uc, err := svc.jwt.ValidateToken(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, uc.UserID)
	assert.Equal(t, "melo", uc.CompanyID)
	assert.Equal(t, "branch-kigali", uc.BranchID)
	assert.Equal(t, []string{"manager"}, uc.Roles)
	assert.NotEmpty(t, uc.SessionID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "a@melo.rw", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "A@melo.rw", Password: "password2"})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
}

func TestLogin_BadCredentials(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "a@melo.rw", Password: "password1"})
	require.NoError(t, err)

	for name, attempt := range map[string][2]string{
		"wrong password": {"a@melo.rw", "wrong"},
		"unknown email":  {"b@melo.rw", "password1"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Login(ctx, attempt[0], attempt[1])
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
		})
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "not-an-email", Password: "password1"})
	require.Error(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "a@melo.rw", Password: "short"})
	require.Error(t, err)
}
