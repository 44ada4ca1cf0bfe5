package transfers

import (
	"context"
	"strings"
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
	testCompany  = "melo"
	senderID     = "branch-kigali"
	receiverID   = "branch-gisenyi"
	senderName   = "Kigali Main"
	receiverName = "Gisenyi"
)

type fixture struct {
	svc *Service
	inv *inventory.Service
	st  *store.Memory
}

func newFixture() *fixture {
	st := store.NewMemory()
	inv := inventory.NewService(st)
	return &fixture{
		svc: NewService(st, inv, stats.NewService(st)),
		inv: inv,
		st:  st,
	}
}

func (f *fixture) seedStock(t *testing.T, branchID, itemID, name string, qty int64) {
	t.Helper()
	err := f.st.RunTransaction(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return f.inv.Apply(ctx, tx, testCompany, branchID, inventory.Change{
			ItemID:   itemID,
			ItemName: name,
			Quantity: types.NewQuantityFromInt(qty),
			Action:   inventory.ActionAdjust,
		})
	})
	require.NoError(t, err)
}

func (f *fixture) stock(t *testing.T, branchID, itemID string) types.Quantity {
	t.Helper()
	doc, err := f.inv.Get(context.Background(), testCompany, branchID, itemID)
	require.NoError(t, err)
	if doc == nil {
		return 0
	}
	return doc.Quantity
}

func (f *fixture) create(t *testing.T, lines ...NewItem) string {
	t.Helper()
	outID, err := f.svc.Create(context.Background(), CreateInput{
		CompanyID:      testCompany,
		FromBranchID:   senderID,
		FromBranchName: senderName,
		ToBranchID:     receiverID,
		ToBranchName:   receiverName,
		Items:          lines,
	})
	require.NoError(t, err)
	return outID
}

// pairDocs loads both mirror documents of a transfer by its OUT-side id.
func (f *fixture) pairDocs(t *testing.T, outID string) (out, in Transfer) {
	t.Helper()
	outDoc, err := f.svc.Get(context.Background(), testCompany, senderID, outID)
	require.NoError(t, err)
	inDoc, err := f.svc.Get(context.Background(), testCompany, receiverID, outDoc.TheirTransfer)
	require.NoError(t, err)
	return *outDoc, *inDoc
}

func (f *fixture) damagedRecords(t *testing.T, branchID string) []DamagedProduct {
	t.Helper()
	docs, err := f.st.Query(context.Background(), store.Query{
		Collection: DamagedCollectionPath(testCompany, branchID),
	})
	require.NoError(t, err)
	out := make([]DamagedProduct, 0, len(docs))
	for _, doc := range docs {
		var rec DamagedProduct
		require.NoError(t, doc.DataTo(&rec))
		out = append(out, rec)
	}
	return out
}

func requireMirrored(t *testing.T, f *fixture, outID string) (out, in Transfer) {
	t.Helper()
	out, in = f.pairDocs(t, outID)
	assert.Equal(t, out.Items, in.Items, "mirror items diverged")
	assert.Equal(t, out.DoneItems, in.DoneItems, "mirror doneItems diverged")
	assert.Equal(t, out.Status, in.Status, "mirror status diverged")
	return out, in
}

func line(itemID, name string, qty int64, price float64) NewItem {
	return NewItem{
		ItemID:    itemID,
		ItemName:  name,
		UnitPrice: types.NewMoney(price),
		Quantity:  types.NewQuantityFromInt(qty),
	}
}

func qty(v int64) types.Quantity { return types.NewQuantityFromInt(v) }

func TestCreate(t *testing.T) {
	f := newFixture()
	f.seedStock(t, senderID, "chair", "Office Chair", 100)

	outID := f.create(t, line("chair", "Office Chair", 30, 1500))

	out, in := requireMirrored(t, f, outID)
	assert.Equal(t, DirectionOut, out.TransferType)
	assert.Equal(t, DirectionIn, in.TransferType)
	assert.Equal(t, outID, in.TheirTransfer)
	assert.Equal(t, StatusPending, out.Status)
	assert.Equal(t, 0, out.DoneItems)
	assert.Equal(t, 1, out.TotalItems)
	assert.Equal(t, qty(30), out.TotalQuantity)
	assert.True(t, out.TotalCost.Equal(types.NewMoney(45000)), "got %s", out.TotalCost)
	assert.True(t, strings.HasPrefix(out.Number, "TR-"), "got %s", out.Number)
	assert.Equal(t, out.Number, in.Number)

	item := out.Items[0]
	assert.Equal(t, qty(30), item.UntouchedQty)
	assert.False(t, item.IsAccepted)
	assert.False(t, item.IsRejected)

	// Shipped goods leave the sender's stock on confirmation.
	assert.Equal(t, qty(70), f.stock(t, senderID, "chair"))
	assert.Equal(t, qty(0), f.stock(t, receiverID, "chair"))
}

func TestCreate_InsufficientStock(t *testing.T) {
	f := newFixture()
	f.seedStock(t, senderID, "chair", "Office Chair", 10)

	_, err := f.svc.Create(context.Background(), CreateInput{
		CompanyID:      testCompany,
		FromBranchID:   senderID,
		FromBranchName: senderName,
		ToBranchID:     receiverID,
		ToBranchName:   receiverName,
		Items:          []NewItem{line("chair", "Office Chair", 30, 1500)},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)

	// The failed transaction must leave stock untouched and create nothing.
	assert.Equal(t, qty(10), f.stock(t, senderID, "chair"))
	docs, err := f.st.Query(context.Background(), store.Query{
		Collection: CollectionPath(testCompany, senderID),
	})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateInput
	}{
		{"same branch", CreateInput{CompanyID: testCompany, FromBranchID: senderID, ToBranchID: senderID,
			Items: []NewItem{line("chair", "Office Chair", 1, 10)}}},
		{"no items", CreateInput{CompanyID: testCompany, FromBranchID: senderID, ToBranchID: receiverID}},
		{"zero quantity", CreateInput{CompanyID: testCompany, FromBranchID: senderID, ToBranchID: receiverID,
			Items: []NewItem{line("chair", "Office Chair", 0, 10)}}},
		{"missing item id", CreateInput{CompanyID: testCompany, FromBranchID: senderID, ToBranchID: receiverID,
			Items: []NewItem{line("", "Office Chair", 1, 10)}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tc.in)
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
		})
	}
}

// Repeated accepts summing to the full quantity complete the item and
// credit the receiver with exactly that quantity.
func TestAccept_Conservation(t *testing.T) {
	f := newFixture()
	f.seedStock(t, senderID, "chair", "Office Chair", 100)
	outID := f.create(t, line("chair", "Office Chair", 100, 1500))
	ctx := context.Background()

	inID := inDocID(t, f, outID)
	for _, q := range []int64{25, 35, 40} {
		require.NoError(t, f.svc.Accept(ctx, AcceptInput{
			CompanyID:  testCompany,
			BranchID:   receiverID,
			TransferID: inID,
			ItemID:     "chair",
			Quantity:   qty(q),
		}))
	}

	out, _ := requireMirrored(t, f, outID)
	item := out.Items[0]
	assert.True(t, item.IsAccepted)
	assert.Equal(t, qty(0), item.UntouchedQty)
	assert.Equal(t, qty(100), item.AcceptedQty)
	assert.Equal(t, 1, out.DoneItems)
	assert.Equal(t, StatusCompleted, out.Status)

	assert.Equal(t, qty(100), f.stock(t, receiverID, "chair"))

	// Nothing left to process once the transfer completes.
	err := f.svc.Accept(ctx, AcceptInput{
		CompanyID: testCompany, BranchID: receiverID, TransferID: inID,
		ItemID: "chair", Quantity: qty(1),
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeTransferCompleted, appErr.Code)
}

func inDocID(t *testing.T, f *fixture, outID string) string {
	t.Helper()
	out, err := f.svc.Get(context.Background(), testCompany, senderID, outID)
	require.NoError(t, err)
	return out.TheirTransfer
}

func TestAccept_ExceedsUntouched(t *testing.T) {
	f := newFixture()
	f.seedStock(t, senderID, "chair", "Office Chair", 100)
	outID := f.create(t, line("chair", "Office Chair", 100, 1500))
	inID := inDocID(t, f, outID)
	ctx := context.Background()

	require.NoError(t, f.svc.Accept(ctx, AcceptInput{
		CompanyID: testCompany, BranchID: receiverID, TransferID: inID,
		ItemID: "chair", Quantity: qty(60),
	}))

	err := f.svc.Accept(ctx, AcceptInput{
		CompanyID: testCompany, BranchID: receiverID, TransferID: inID,
		ItemID: "chair", Quantity: qty(50),
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeQuantityExceeded, appErr.Code)

	// The rejected write must not have leaked anything.
	out, _ := requireMirrored(t, f, outID)
	assert.Equal(t, qty(60), out.Items[0].AcceptedQty)
	assert.Equal(t, qty(60), f.stock(t, receiverID, "chair"))
}

func TestAccept_OnlyReceivingSide(t *testing.T) {
	f := newFixture()
	f.seedStock(t, senderID, "chair", "Office Chair", 100)
	outID := f.create(t, line("chair", "Office Chair", 100, 1500))

	err := f.svc.Accept(context.Background(), AcceptInput{
		CompanyID: testCompany, BranchID: senderID, TransferID: outID,
		ItemID: "chair", Quantity: qty(10),
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

// Accepting 60 and rejecting 40 of 100 settles the whole quantity while
// leaving both completion flags false: they track full acceptance and full
// rejection independently.
func TestPartialAcceptThenReject(t *testing.T) {
	f := newFixture()
	f.seedStock(t, senderID, "chair", "Office Chair", 100)
	outID := f.create(t, line("chair", "Office Chair", 100, 1500))
	inID := inDocID(t, f, outID)
	ctx := context.Background()

	require.NoError(t, f.svc.Accept(ctx, AcceptInput{
		CompanyID: testCompany, BranchID: receiverID, TransferID: inID,
		ItemID: "chair", Quantity: qty(60),
	}))

	out, _ := requireMirrored(t, f, outID)
	item := out.Items[0]
	assert.Equal(t, qty(60), item.AcceptedQty)
	assert.Equal(t, qty(40), item.UntouchedQty)
	assert.False(t, item.IsAccepted)

	require.NoError(t, f.svc.Reject(ctx, RejectInput{
		CompanyID: testCompany, BranchID: receiverID, TransferID: inID,
		ItemID: "chair", Quantity: qty(40), Reason: "Mismatch", Desc: "wrong item",
	}))

	out, _ = requireMirrored(t, f, outID)
	item = out.Items[0]
	assert.Equal(t, qty(40), item.TotRejected)
	assert.Equal(t, qty(0), item.UntouchedQty)
	assert.False(t, item.IsAccepted)
	assert.False(t, item.IsRejected)
	assert.Equal(t, 0, out.DoneItems)
	assert.Equal(t, StatusPending, out.Status)

	// Rejection never touches inventory.
	assert.Equal(t, qty(60), f.stock(t, receiverID, "chair"))
}

func TestReject_Validation(t *testing.T) {
	f := newFixture()
	f.seedStock(t, senderID, "chair", "Office Chair", 100)
	outID := f.create(t, line("chair", "Office Chair", 100, 1500))
	inID := inDocID(t, f, outID)
	ctx := context.Background()

	err := f.svc.Reject(ctx, RejectInput{
		CompanyID: testCompany, BranchID: receiverID, TransferID: inID,
		ItemID: "chair", Quantity: qty(10),
	})
	require.Error(t, err, "reason is mandatory")

	err = f.svc.Reject(ctx, RejectInput{
		CompanyID: testCompany, BranchID: receiverID, TransferID: inID,
		ItemID: "chair", Quantity: qty(150), Reason: "Mismatch",
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeQuantityExceeded, appErr.Code)
}

// Fully restocking non-damaged rejections returns the quantity to the
// sender's stock and shrinks the line by the same amount.
func TestRestock_ReturnsToSenderStock(t *testing.T) {
	f := newFixture()
	f.seedStock(t, senderID, "chair", "Office Chair", 80)
	outID := f.create(t, line("chair", "Office Chair", 50, 1500))
	inID := inDocID(t, f, outID)
	ctx := context.Background()

	require.NoError(t, f.svc.Reject(ctx, RejectInput{
		CompanyID: testCompany, BranchID: receiverID, TransferID: inID,
		ItemID: "chair", Quantity: qty(20), Reason: "Mismatch", Desc: "scratched box",
	}))

	require.NoError(t, f.svc.Restock(ctx, RestockInput{
		CompanyID: testCompany, BranchID: senderID, TransferID: outID,
		ItemID: "chair", Indexes: []int{0},
	}))

	out, _ := requireMirrored(t, f, outID)
	item := out.Items[0]
	assert.Equal(t, qty(30), item.Quantity)
	assert.Equal(t, qty(0), item.TotRejected)
	assert.Empty(t, item.Rejected)
	assert.Equal(t, qty(30), item.UntouchedQty)
	assert.True(t, out.TotalCost.Equal(types.NewMoney(45000)), "got %s", out.TotalCost)

	assert.Equal(t, qty(50), f.stock(t, senderID, "chair"))
	assert.Empty(t, f.damagedRecords(t, senderID), "no damaged record for clean restock")
}

// A full restock removes the item from both mirrors; the degenerate empty
// transfer counts as completed.
func TestRestock_FullRemovesItem(t *testing.T) {
	f := newFixture()
	f.seedStock(t, senderID, "chair", "Office Chair", 50)
	outID := f.create(t, line("chair", "Office Chair", 50, 1500))
	inID := inDocID(t, f, outID)
	ctx := context.Background()

	require.NoError(t, f.svc.Reject(ctx, RejectInput{
		CompanyID: testCompany, BranchID: receiverID, TransferID: inID,
		ItemID: "chair", Quantity: qty(50), Reason: "Mismatch",
	}))
	require.NoError(t, f.svc.Restock(ctx, RestockInput{
		CompanyID: testCompany, BranchID: senderID, TransferID: outID,
		ItemID: "chair", Indexes: []int{0},
	}))

	out, in := requireMirrored(t, f, outID)
	assert.Empty(t, out.Items)
	assert.Empty(t, in.Items)
	assert.Equal(t, 0, out.TotalItems)
	assert.True(t, out.TotalCost.IsZero())
	assert.Equal(t, StatusCompleted, out.Status)

	assert.Equal(t, qty(50), f.stock(t, senderID, "chair"))
}

// A fully damaged rejection is removed from the transfer without returning
// anything to stock, leaving exactly one damaged products record.
func TestRestock_AllDamaged(t *testing.T) {
	f := newFixture()
	f.seedStock(t, senderID, "chair", "Office Chair", 50)
	outID := f.create(t, line("chair", "Office Chair", 50, 1500))
	inID := inDocID(t, f, outID)
	ctx := context.Background()

	require.NoError(t, f.svc.Reject(ctx, RejectInput{
		CompanyID: testCompany, BranchID: receiverID, TransferID: inID,
		ItemID: "chair", Quantity: qty(50), Reason: ReasonDamaged, Desc: "crushed in transit",
	}))
	require.NoError(t, f.svc.Restock(ctx, RestockInput{
		CompanyID: testCompany, BranchID: senderID, TransferID: outID,
		ItemID: "chair", Indexes: []int{0},
	}))

	out, _ := requireMirrored(t, f, outID)
	assert.Empty(t, out.Items)

	// All 50 were damaged: nothing comes back.
	assert.Equal(t, qty(0), f.stock(t, senderID, "chair"))

	records := f.damagedRecords(t, senderID)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, qty(50), rec.Quantity)
	assert.Equal(t, "Transfer", rec.Action)
	assert.Equal(t, outID, rec.Transfer)
	assert.Equal(t, "chair", rec.Item)
	assert.Equal(t, receiverID, rec.To)
	require.Len(t, rec.Items, 1)
	assert.Equal(t, ReasonDamaged, rec.Items[0].Reason)
}

// Mixed restock: only the non-damaged share returns to stock, damaged
// quantity is recorded once.
func TestRestock_MixedDamaged(t *testing.T) {
	f := newFixture()
	f.seedStock(t, senderID, "chair", "Office Chair", 100)
	outID := f.create(t, line("chair", "Office Chair", 100, 1500))
	inID := inDocID(t, f, outID)
	ctx := context.Background()

	require.NoError(t, f.svc.Reject(ctx, RejectInput{
		CompanyID: testCompany, BranchID: receiverID, TransferID: inID,
		ItemID: "chair", Quantity: qty(10), Reason: ReasonDamaged,
	}))
	require.NoError(t, f.svc.Reject(ctx, RejectInput{
		CompanyID: testCompany, BranchID: receiverID, TransferID: inID,
		ItemID: "chair", Quantity: qty(20), Reason: "Mismatch",
	}))

	require.NoError(t, f.svc.Restock(ctx, RestockInput{
		CompanyID: testCompany, BranchID: senderID, TransferID: outID,
		ItemID: "chair", Indexes: []int{0, 1},
	}))

	out, _ := requireMirrored(t, f, outID)
	item := out.Items[0]
	assert.Equal(t, qty(70), item.Quantity)
	assert.Empty(t, item.Rejected)

	// 30 selected, 10 damaged: only 20 return.
	assert.Equal(t, qty(20), f.stock(t, senderID, "chair"))

	records := f.damagedRecords(t, senderID)
	require.Len(t, records, 1)
	assert.Equal(t, qty(10), records[0].Quantity)
}

// Restocking the rejected remainder of a partially accepted item shrinks
// the quantity down to the accepted amount and completes it.
func TestRestock_CompletesPartiallyAcceptedItem(t *testing.T) {
	f := newFixture()
	f.seedStock(t, senderID, "chair", "Office Chair", 100)
	outID := f.create(t, line("chair", "Office Chair", 100, 1500))
	inID := inDocID(t, f, outID)
	ctx := context.Background()

	require.NoError(t, f.svc.Accept(ctx, AcceptInput{
		CompanyID: testCompany, BranchID: receiverID, TransferID: inID,
		ItemID: "chair", Quantity: qty(60),
	}))
	require.NoError(t, f.svc.Reject(ctx, RejectInput{
		CompanyID: testCompany, BranchID: receiverID, TransferID: inID,
		ItemID: "chair", Quantity: qty(40), Reason: "Mismatch",
	}))
	require.NoError(t, f.svc.Restock(ctx, RestockInput{
		CompanyID: testCompany, BranchID: senderID, TransferID: outID,
		ItemID: "chair", Indexes: []int{0},
	}))

	out, _ := requireMirrored(t, f, outID)
	item := out.Items[0]
	assert.Equal(t, qty(60), item.Quantity)
	assert.Equal(t, qty(60), item.AcceptedQty)
	assert.True(t, item.IsAccepted)
	assert.Equal(t, 1, out.DoneItems)
	assert.Equal(t, StatusCompleted, out.Status)

	assert.Equal(t, qty(40), f.stock(t, senderID, "chair"))
}

func TestRestock_IndexValidation(t *testing.T) {
	f := newFixture()
	f.seedStock(t, senderID, "chair", "Office Chair", 50)
	outID := f.create(t, line("chair", "Office Chair", 50, 1500))
	inID := inDocID(t, f, outID)
	ctx := context.Background()

	require.NoError(t, f.svc.Reject(ctx, RejectInput{
		CompanyID: testCompany, BranchID: receiverID, TransferID: inID,
		ItemID: "chair", Quantity: qty(10), Reason: "Mismatch",
	}))

	for name, indexes := range map[string][]int{
		"empty":        {},
		"out of range": {3},
		"negative":     {-1},
		"duplicate":    {0, 0},
	} {
		t.Run(name, func(t *testing.T) {
			err := f.svc.Restock(ctx, RestockInput{
				CompanyID: testCompany, BranchID: senderID, TransferID: outID,
				ItemID: "chair", Indexes: indexes,
			})
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
		})
	}
}

func TestRestock_OnlySendingSide(t *testing.T) {
	f := newFixture()
	f.seedStock(t, senderID, "chair", "Office Chair", 50)
	outID := f.create(t, line("chair", "Office Chair", 50, 1500))
	inID := inDocID(t, f, outID)
	ctx := context.Background()

	require.NoError(t, f.svc.Reject(ctx, RejectInput{
		CompanyID: testCompany, BranchID: receiverID, TransferID: inID,
		ItemID: "chair", Quantity: qty(10), Reason: "Mismatch",
	}))

	err := f.svc.Restock(ctx, RestockInput{
		CompanyID: testCompany, BranchID: receiverID, TransferID: inID,
		ItemID: "chair", Indexes: []int{0},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestList_FilterByDirection(t *testing.T) {
	f := newFixture()
	f.seedStock(t, senderID, "chair", "Office Chair", 100)
	f.create(t, line("chair", "Office Chair", 10, 1500))
	f.create(t, line("chair", "Office Chair", 20, 1500))

	outgoing, err := f.svc.List(context.Background(), testCompany, senderID, DirectionOut)
	require.NoError(t, err)
	assert.Len(t, outgoing, 2)

	incoming, err := f.svc.List(context.Background(), testCompany, receiverID, DirectionIn)
	require.NoError(t, err)
	assert.Len(t, incoming, 2)

	none, err := f.svc.List(context.Background(), testCompany, senderID, DirectionIn)
	require.NoError(t, err)
	assert.Empty(t, none)
}
