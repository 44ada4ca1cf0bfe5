package expenses

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"melowms/internal/core/apperror"
	"melowms/internal/core/store"
	"melowms/internal/core/types"
	"melowms/internal/domain/stats"
)

const (
	testCompany = "melo"
	testBranch  = "branch-kigali"
)

func expenseTotal(t *testing.T, statsSvc *stats.Service) float64 {
	t.Helper()
	doc, err := statsSvc.GetBranchStats(context.Background(), testCompany, testBranch)
	require.NoError(t, err)
	if doc == nil {
		return 0
	}
	return doc.Stats.Totals.Expenses
}

func TestApproveAndRevoke(t *testing.T) {
	st := store.NewMemory()
	statsSvc := stats.NewService(st)
	svc := NewService(st, statsSvc)
	ctx := context.Background()

	expenseID, err := svc.Create(ctx, CreateInput{
		CompanyID:   testCompany,
		BranchID:    testBranch,
		Title:       "Truck fuel",
		Amount:      types.NewMoney(25000),
		Category:    "logistics",
		RequestedBy: "user-1",
	})
	require.NoError(t, err)

	// Pending expenses do not count.
	assert.InDelta(t, 0, expenseTotal(t, statsSvc), 1e-9)

	require.NoError(t, svc.Approve(ctx, testCompany, testBranch, expenseID, "manager-1"))
	exp, err := svc.Get(ctx, testCompany, testBranch, expenseID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, exp.Status)
	assert.Equal(t, "manager-1", exp.ApprovedBy)
	require.NotNil(t, exp.ApprovedTime)
	assert.InDelta(t, 25000, expenseTotal(t, statsSvc), 1e-9)

	// Approving twice is a precondition error.
	err = svc.Approve(ctx, testCompany, testBranch, expenseID, "manager-2")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeAlreadyConfirmed, appErr.Code)

	// Revoking books the negative delta.
	require.NoError(t, svc.Revoke(ctx, testCompany, testBranch, expenseID))
	exp, err = svc.Get(ctx, testCompany, testBranch, expenseID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, exp.Status)
	assert.Empty(t, exp.ApprovedBy)
	assert.Nil(t, exp.ApprovedTime)
	assert.InDelta(t, 0, expenseTotal(t, statsSvc), 1e-9)

	// Revoking a pending expense fails.
	require.Error(t, svc.Revoke(ctx, testCompany, testBranch, expenseID))
}

func TestCreate_Validation(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, stats.NewService(st))
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{CompanyID: testCompany, BranchID: testBranch, Amount: types.NewMoney(10)})
	require.Error(t, err, "title is mandatory")

	_, err = svc.Create(ctx, CreateInput{CompanyID: testCompany, BranchID: testBranch, Title: "Fuel"})
	require.Error(t, err, "amount must be positive")
}
