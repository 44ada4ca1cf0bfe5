package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"melowms/internal/core/apperror"
	appctx "melowms/internal/core/context"
)

func userCtx(u appctx.UserContext) context.Context {
	return appctx.WithUser(context.Background(), &u)
}

func TestAuthorize(t *testing.T) {
	engine, err := NewEngine(DefaultRules())
	require.NoError(t, err)

	manager := appctx.UserContext{
		UserID: "u1", CompanyID: "melo", BranchID: "kigali", Roles: []string{"manager"},
	}
	clerk := appctx.UserContext{
		UserID: "u2", CompanyID: "melo", BranchID: "kigali", Roles: []string{"sales"},
	}
	admin := appctx.UserContext{UserID: "u3", IsSuperAdmin: true}

	cases := []struct {
		name             string
		ctx              context.Context
		op               string
		company, branch  string
		allowed          bool
	}{
		{"own branch transfer", userCtx(manager), "transfers.create", "melo", "kigali", true},
		{"other branch transfer", userCtx(manager), "transfers.create", "melo", "gisenyi", false},
		{"other company read", userCtx(manager), "stats.read", "acme", "", false},
		{"own company read", userCtx(clerk), "stats.read", "melo", "", true},
		{"clerk approves expense", userCtx(clerk), "expenses.approve", "melo", "kigali", false},
		{"manager approves expense", userCtx(manager), "expenses.approve", "melo", "kigali", true},
		{"admin crosses companies", userCtx(admin), "transfers.create", "acme", "x", true},
		{"unknown op denied", userCtx(admin), "no.such.op", "melo", "kigali", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := engine.Authorize(tc.ctx, tc.op, tc.company, tc.branch)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAuthorize_NoUser(t *testing.T) {
	engine, err := NewEngine(DefaultRules())
	require.NoError(t, err)

	err = engine.Authorize(context.Background(), "stats.read", "melo", "")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
}

func TestNewEngine_BadRule(t *testing.T) {
	_, err := NewEngine([]Rule{{"bad", `user.company +`}})
	require.Error(t, err)

	_, err = NewEngine([]Rule{{"not bool", `user.company`}})
	require.Error(t, err)
}
