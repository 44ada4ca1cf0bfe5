package transfers

import (
	"context"
	"fmt"
	"time"

	"melowms/internal/core/apperror"
	"melowms/internal/core/id"
	"melowms/internal/core/numerator"
	"melowms/internal/core/store"
	"melowms/internal/core/types"
	"melowms/internal/domain/inventory"
	"melowms/internal/domain/stats"
	"melowms/pkg/logger"
)

// Service coordinates transfer creation, partial acceptance, rejection and
// restocking. Every operation runs inside one store transaction covering
// both mirror documents, the touched inventory document and, for restocks,
// the damaged products collection, so concurrent operations on the same
// transfer serialize and can never diverge the mirrors.
type Service struct {
	store     store.Store
	inventory *inventory.Service
	stats     *stats.Service
}

// NewService creates a transfer service.
func NewService(st store.Store, inv *inventory.Service, statsSvc *stats.Service) *Service {
	return &Service{store: st, inventory: inv, stats: statsSvc}
}

// NewItem is one line of a transfer being created.
type NewItem struct {
	ItemID    string
	ItemName  string
	UnitPrice types.Money
	Quantity  types.Quantity
	TaxAmount types.Money
	TaxCode   string
	Discount  types.Money
}

// CreateInput describes an outgoing transfer cart being confirmed.
type CreateInput struct {
	CompanyID      string
	FromBranchID   string
	FromBranchName string
	ToBranchID     string
	ToBranchName   string
	Items          []NewItem
}

func (in CreateInput) validate() error {
	if in.FromBranchID == in.ToBranchID {
		return apperror.NewValidation("cannot transfer to the same branch")
	}
	if len(in.Items) == 0 {
		return apperror.NewValidation("transfer needs at least one item")
	}
	for i, line := range in.Items {
		if line.ItemID == "" {
			return apperror.NewValidation("item is required").WithDetail("line", i+1)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").WithDetail("line", i+1)
		}
		if line.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price cannot be negative").WithDetail("line", i+1)
		}
	}
	return nil
}

// Create confirms an outgoing transfer cart: it debits the sending branch's
// inventory and writes the two mirror documents, all in one transaction.
// Returns the OUT-side document id.
func (s *Service) Create(ctx context.Context, in CreateInput) (string, error) {
	if err := in.validate(); err != nil {
		return "", err
	}

	outID := id.New().String()
	inID := id.New().String()
	now := time.Now().UTC()

	items := make([]Item, len(in.Items))
	for i, line := range in.Items {
		items[i] = Item{
			Item:      line.ItemID,
			ItemName:  line.ItemName,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			TaxAmount: line.TaxAmount,
			TaxCode:   line.TaxCode,
			Discount:  line.Discount,
			Rejected:  []Rejected{},
		}
		items[i].Recompute()
	}

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		number, err := numerator.Next(tx, numerator.DefaultConfig("TR"), now)
		if err != nil {
			return err
		}

		out := Transfer{
			Number:        number,
			Items:         items,
			TransferType:  DirectionOut,
			TheirTransfer: inID,
			From:          in.FromBranchID,
			To:            in.ToBranchID,
			FromBranch:    in.FromBranchName,
			ToBranch:      in.ToBranchName,
			Company:       in.CompanyID,
			CreatedTime:   now,
			UpdatedTime:   now,
		}
		out.RefreshTotals()

		mirror := out
		mirror.TransferType = DirectionIn
		mirror.TheirTransfer = outID

		// Shipped goods leave the sender's stock immediately.
		for _, line := range in.Items {
			err := s.inventory.Apply(ctx, tx, in.CompanyID, in.FromBranchID, inventory.Change{
				ItemID:   line.ItemID,
				ItemName: line.ItemName,
				Quantity: line.Quantity.Neg(),
				Action:   inventory.ActionTransfer,
			})
			if err != nil {
				return err
			}
		}

		if err := tx.Create(Path(in.CompanyID, in.FromBranchID, outID), out); err != nil {
			return err
		}
		if err := tx.Create(Path(in.CompanyID, in.ToBranchID, inID), mirror); err != nil {
			return err
		}

		return s.stats.Record(ctx, tx, in.CompanyID, in.FromBranchID, stats.Entry{
			Transfered: out.TotalCost.InexactFloat64(),
			Stock:      out.TotalQuantity.Neg().Float64(),
			Date:       now,
		})
	})
	if err != nil {
		return "", err
	}

	logger.Info(ctx, "transfer created",
		"transfer_id", outID,
		"from", in.FromBranchID,
		"to", in.ToBranchID,
		"items", len(items))
	return outID, nil
}

// AcceptInput identifies the accepted quantity of one item of an incoming
// transfer. BranchID is the receiving branch.
type AcceptInput struct {
	CompanyID  string
	BranchID   string
	TransferID string
	ItemID     string
	Quantity   types.Quantity
}

// Accept records the receiving branch taking quantity of one item into its
// stock. The item may be accepted across several calls until untouched
// quantity runs out.
func (s *Service) Accept(ctx context.Context, in AcceptInput) error {
	if !in.Quantity.IsPositive() {
		return apperror.NewValidation("accept quantity must be positive")
	}

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		pair, err := s.loadPair(tx, in.CompanyID, in.BranchID, in.TransferID, DirectionIn)
		if err != nil {
			return err
		}

		ourIdx, err := pair.ours.FindItem(in.ItemID)
		if err != nil {
			return err
		}
		item := pair.ours.Items[ourIdx]

		if in.Quantity > item.UntouchedQty {
			return apperror.NewQuantityExceeded(in.ItemID, in.Quantity.Float64(), item.UntouchedQty.Float64())
		}

		item.AcceptedQty += in.Quantity
		item.Recompute()

		if err := pair.replaceItem(item); err != nil {
			return err
		}
		if err := pair.save(tx); err != nil {
			return err
		}

		err = s.inventory.Apply(ctx, tx, in.CompanyID, in.BranchID, inventory.Change{
			ItemID:    in.ItemID,
			ItemName:  item.ItemName,
			Quantity:  in.Quantity,
			Action:    inventory.ActionAccept,
			UnitPrice: &item.UnitPrice,
		})
		if err != nil {
			return err
		}

		value := item.UnitPrice.Mul(in.Quantity.Decimal())
		return s.stats.Record(ctx, tx, in.CompanyID, in.BranchID, stats.Entry{
			Accepted: value.InexactFloat64(),
			Stock:    in.Quantity.Float64(),
			Date:     time.Now().UTC(),
		})
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "transfer item accepted",
		"transfer_id", in.TransferID,
		"item_id", in.ItemID,
		"quantity", in.Quantity)
	return nil
}

// RejectInput identifies the rejected quantity of one item of an incoming
// transfer, with the mandatory reason.
type RejectInput struct {
	CompanyID  string
	BranchID   string
	TransferID string
	ItemID     string
	Quantity   types.Quantity
	Reason     string
	Desc       string
}

// Reject records the receiving branch refusing quantity of one item.
// Rejection never touches inventory and never completes an item; the
// refused goods sit in the rejected list until the sender restocks them.
func (s *Service) Reject(ctx context.Context, in RejectInput) error {
	if !in.Quantity.IsPositive() {
		return apperror.NewValidation("reject quantity must be positive")
	}
	if in.Reason == "" {
		return apperror.NewValidation("reject reason is required")
	}

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		pair, err := s.loadPair(tx, in.CompanyID, in.BranchID, in.TransferID, DirectionIn)
		if err != nil {
			return err
		}

		ourIdx, err := pair.ours.FindItem(in.ItemID)
		if err != nil {
			return err
		}
		item := pair.ours.Items[ourIdx]

		if in.Quantity > item.UntouchedQty {
			return apperror.NewQuantityExceeded(in.ItemID, in.Quantity.Float64(), item.UntouchedQty.Float64())
		}

		item.Rejected = append(item.Rejected, Rejected{
			Qty:    in.Quantity,
			Reason: in.Reason,
			Desc:   in.Desc,
		})
		item.Recompute()

		if err := pair.replaceItem(item); err != nil {
			return err
		}
		return pair.save(tx)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "transfer item rejected",
		"transfer_id", in.TransferID,
		"item_id", in.ItemID,
		"quantity", in.Quantity,
		"reason", in.Reason)
	return nil
}

// RestockInput selects rejected entries of one item being taken back by the
// sending branch. BranchID is the sender; TransferID is the OUT-side id.
type RestockInput struct {
	CompanyID  string
	BranchID   string
	TransferID string
	ItemID     string
	Indexes    []int
}

// Restock removes the selected rejected entries, shrinks the item (removing
// it entirely on a full restock), returns non-damaged quantity to the
// sender's stock, and records damaged quantity in the sender's damaged
// products collection. Damaged entries never re-enter stock but are still
// removed from the rejected list.
func (s *Service) Restock(ctx context.Context, in RestockInput) error {
	if len(in.Indexes) == 0 {
		return apperror.NewValidation("no rejected entries selected")
	}

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		pair, err := s.loadPair(tx, in.CompanyID, in.BranchID, in.TransferID, DirectionOut)
		if err != nil {
			return err
		}

		ourIdx, err := pair.ours.FindItem(in.ItemID)
		if err != nil {
			return err
		}
		item := pair.ours.Items[ourIdx]

		selected, err := selectEntries(item.Rejected, in.Indexes)
		if err != nil {
			return err
		}

		var restocked, damaged types.Quantity
		for _, entry := range selected.entries {
			restocked += entry.Qty
			if entry.Reason == ReasonDamaged {
				damaged += entry.Qty
			}
		}

		item.Rejected = selected.remaining
		item.Quantity -= restocked

		if item.Quantity.IsZero() {
			// Full restock removes the line from both mirrors.
			if err := pair.removeItem(in.ItemID); err != nil {
				return err
			}
		} else {
			item.Recompute()
			if err := pair.replaceItem(item); err != nil {
				return err
			}
		}
		if err := pair.save(tx); err != nil {
			return err
		}

		returnable := restocked - damaged
		if returnable.IsPositive() {
			err := s.inventory.Apply(ctx, tx, in.CompanyID, in.BranchID, inventory.Change{
				ItemID:   in.ItemID,
				ItemName: item.ItemName,
				Quantity: returnable,
				Action:   inventory.ActionRestock,
			})
			if err != nil {
				return err
			}
		}

		// Damaged goods always leave a trace, even when nothing returns
		// to stock.
		if damaged.IsPositive() {
			record := DamagedProduct{
				Action:      "Transfer",
				ToBranch:    pair.ours.ToBranch,
				To:          pair.ours.To,
				Quantity:    damaged,
				Items:       selected.entries,
				Transfer:    in.TransferID,
				Item:        in.ItemID,
				ItemName:    item.ItemName,
				CreatedTime: time.Now().UTC(),
			}
			path := DamagedCollectionPath(in.CompanyID, in.BranchID) + "/" + id.New().String()
			if err := tx.Create(path, record); err != nil {
				return err
			}
		}

		if returnable.IsPositive() {
			return s.stats.Record(ctx, tx, in.CompanyID, in.BranchID, stats.Entry{
				Stock: returnable.Float64(),
				Date:  time.Now().UTC(),
			})
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "transfer item restocked",
		"transfer_id", in.TransferID,
		"item_id", in.ItemID,
		"entries", len(in.Indexes))
	return nil
}

// Get loads one transfer document of a branch.
func (s *Service) Get(ctx context.Context, companyID, branchID, transferID string) (*Transfer, error) {
	snapshot, err := s.store.Get(ctx, Path(companyID, branchID, transferID))
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, apperror.NewNotFound("transfer", transferID)
	}
	var t Transfer
	if err := snapshot.DataTo(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns a branch's transfers, optionally filtered by direction.
func (s *Service) List(ctx context.Context, companyID, branchID string, direction Direction) ([]Transfer, error) {
	q := store.Query{
		Collection: CollectionPath(companyID, branchID),
		OrderBy:    "createdTime",
		Desc:       true,
	}
	if direction != "" {
		q.Filters = append(q.Filters, store.Filter{Field: "transferType", Op: store.OpEqual, Value: string(direction)})
	}

	docs, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]Transfer, 0, len(docs))
	for _, doc := range docs {
		var t Transfer
		if err := doc.DataTo(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// --- mirror pair handling ---

// pair holds the two mirror documents of one logical transfer plus the
// paths to write them back to.
type pair struct {
	ours, theirs         *Transfer
	ourPath, theirPath   string
}

// loadPair loads the caller's transfer document and its mirror, enforcing
// the calling side: accepts/rejects come from the receiving (IN) branch,
// restocks from the sending (OUT) branch.
func (s *Service) loadPair(tx store.Tx, companyID, branchID, transferID string, want Direction) (*pair, error) {
	ourPath := Path(companyID, branchID, transferID)
	snapshot, err := tx.Get(ourPath)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, apperror.NewNotFound("transfer", transferID)
	}

	var ours Transfer
	if err := snapshot.DataTo(&ours); err != nil {
		return nil, err
	}

	if ours.TransferType != want {
		if want == DirectionIn {
			return nil, apperror.NewValidation("only the receiving branch can accept or reject items")
		}
		return nil, apperror.NewValidation("only the sending branch can restock rejected items")
	}

	// A completed transfer has every remaining item fully accepted; nothing
	// is left to accept, reject or restock.
	if ours.Status == StatusCompleted {
		return nil, apperror.NewTransferCompleted(transferID)
	}

	otherBranch := ours.From
	if want == DirectionOut {
		otherBranch = ours.To
	}
	theirPath := Path(companyID, otherBranch, ours.TheirTransfer)
	mirrorSnap, err := tx.Get(theirPath)
	if err != nil {
		return nil, err
	}
	if mirrorSnap == nil {
		return nil, apperror.NewInternal(fmt.Errorf("mirror transfer %s missing at %s", ours.TheirTransfer, theirPath))
	}

	var theirs Transfer
	if err := mirrorSnap.DataTo(&theirs); err != nil {
		return nil, err
	}

	return &pair{ours: &ours, theirs: &theirs, ourPath: ourPath, theirPath: theirPath}, nil
}

// replaceItem writes the updated line into both mirrors.
func (p *pair) replaceItem(item Item) error {
	for _, t := range []*Transfer{p.ours, p.theirs} {
		idx, err := t.FindItem(item.Item)
		if err != nil {
			return apperror.NewInternal(fmt.Errorf("mirror documents diverged on item %s", item.Item))
		}
		t.Items[idx] = item
	}
	return nil
}

// removeItem drops the line from both mirrors.
func (p *pair) removeItem(itemID string) error {
	for _, t := range []*Transfer{p.ours, p.theirs} {
		idx, err := t.FindItem(itemID)
		if err != nil {
			return apperror.NewInternal(fmt.Errorf("mirror documents diverged on item %s", itemID))
		}
		t.Items = append(t.Items[:idx], t.Items[idx+1:]...)
	}
	return nil
}

// save refreshes aggregates on both mirrors and writes them back.
func (p *pair) save(tx store.Tx) error {
	now := time.Now().UTC()
	p.ours.RefreshTotals()
	p.theirs.RefreshTotals()
	p.ours.UpdatedTime = now
	p.theirs.UpdatedTime = now

	if err := tx.Update(p.ourPath, p.ours); err != nil {
		return err
	}
	return tx.Update(p.theirPath, p.theirs)
}

// --- rejected entry selection ---

type selection struct {
	entries   []Rejected
	remaining []Rejected
}

// selectEntries partitions the rejected list into the selected entries and
// the remainder. Indexes must be unique and in range.
func selectEntries(rejected []Rejected, indexes []int) (selection, error) {
	picked := make(map[int]bool, len(indexes))
	for _, idx := range indexes {
		if idx < 0 || idx >= len(rejected) {
			return selection{}, apperror.NewValidation("rejected entry index out of range").
				WithDetail("index", idx)
		}
		if picked[idx] {
			return selection{}, apperror.NewValidation("rejected entry selected twice").
				WithDetail("index", idx)
		}
		picked[idx] = true
	}

	var sel selection
	sel.remaining = make([]Rejected, 0, len(rejected)-len(indexes))
	for i, entry := range rejected {
		if picked[i] {
			sel.entries = append(sel.entries, entry)
		} else {
			sel.remaining = append(sel.remaining, entry)
		}
	}
	return sel, nil
}
