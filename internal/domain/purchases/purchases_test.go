package purchases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"melowms/internal/core/apperror"
	"melowms/internal/core/store"
	"melowms/internal/core/types"
	"melowms/internal/domain/inventory"
	"melowms/internal/domain/stats"
)

const (
	testCompany = "melo"
	testBranch  = "branch-kigali"
)

func newServices() (*Service, *inventory.Service, *stats.Service, *store.Memory) {
	st := store.NewMemory()
	inv := inventory.NewService(st)
	statsSvc := stats.NewService(st)
	return NewService(st, inv, statsSvc), inv, statsSvc, st
}

func TestConfirm_CreditsStockAndStats(t *testing.T) {
	svc, inv, statsSvc, _ := newServices()
	ctx := context.Background()

	purchaseID, err := svc.Create(ctx, CreateInput{
		CompanyID:    testCompany,
		BranchID:     testBranch,
		SupplierID:   "sup-1",
		SupplierName: "Bralirwa",
		Items: []Line{{
			Item:      "beer-crate",
			ItemName:  "Beer Crate",
			Quantity:  types.NewQuantityFromInt(40),
			UnitPrice: types.NewMoney(9000),
			TaxAmount: types.NewMoney(1370),
			TaxCode:   "B",
		}},
	})
	require.NoError(t, err)

	// Drafting does not receive goods.
	doc, err := inv.Get(ctx, testCompany, testBranch, "beer-crate")
	require.NoError(t, err)
	assert.Nil(t, doc)

	require.NoError(t, svc.Confirm(ctx, testCompany, testBranch, purchaseID))

	doc, err = inv.Get(ctx, testCompany, testBranch, "beer-crate")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, types.NewQuantityFromInt(40), doc.Quantity)
	assert.Equal(t, types.NewQuantityFromInt(40), doc.UnAllocated)
	assert.Equal(t, inventory.ActionPurchase, doc.LastAction)
	assert.True(t, doc.UnitPrice.Equal(types.NewMoney(9000)))
	assert.Equal(t, "B", doc.TaxCode)

	statsDoc, err := statsSvc.GetBranchStats(ctx, testCompany, testBranch)
	require.NoError(t, err)
	require.NotNil(t, statsDoc)
	assert.InDelta(t, 360000, statsDoc.Stats.Totals.Purchase, 1e-9)
	assert.InDelta(t, 1370, statsDoc.Stats.Totals.PurchaseVAT, 1e-9)
	assert.InDelta(t, 40, statsDoc.Stats.Totals.Stock, 1e-9)
}

func TestConfirm_Twice(t *testing.T) {
	svc, inv, _, _ := newServices()
	ctx := context.Background()

	purchaseID, err := svc.Create(ctx, CreateInput{
		CompanyID: testCompany, BranchID: testBranch, SupplierID: "sup-1",
		Items: []Line{{
			Item: "beer-crate", ItemName: "Beer Crate",
			Quantity: types.NewQuantityFromInt(40), UnitPrice: types.NewMoney(9000),
		}},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Confirm(ctx, testCompany, testBranch, purchaseID))

	err = svc.Confirm(ctx, testCompany, testBranch, purchaseID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeAlreadyConfirmed, appErr.Code)

	doc, err := inv.Get(ctx, testCompany, testBranch, "beer-crate")
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromInt(40), doc.Quantity)
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _, _ := newServices()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{CompanyID: testCompany, BranchID: testBranch})
	require.Error(t, err, "supplier is mandatory")

	_, err = svc.Create(ctx, CreateInput{
		CompanyID: testCompany, BranchID: testBranch, SupplierID: "sup-1",
	})
	require.Error(t, err, "items are mandatory")

	_, err = svc.Create(ctx, CreateInput{
		CompanyID: testCompany, BranchID: testBranch, SupplierID: "sup-1",
		Items: []Line{{Item: "x", Quantity: 0}},
	})
	require.Error(t, err, "quantity must be positive")
}
