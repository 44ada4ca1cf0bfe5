package inventory

import (
	"context"

	"melowms/internal/core/apperror"
	"melowms/internal/core/store"
	"melowms/internal/core/types"
)

// Change describes one stock mutation applied inside a caller-owned
// transaction. Positive Quantity credits stock, negative debits it.
type Change struct {
	ItemID   string
	ItemName string
	Quantity types.Quantity
	Action   Action

	// Optional price/tax refresh, set by purchase confirmation.
	UnitPrice *types.Money
	Tax       *types.Money
	TaxCode   string
}

// Service provides transactional stock mutations shared by transfers,
// sales and purchases, plus plain reads for the API.
type Service struct {
	store store.Store
}

// NewService creates an inventory service.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Apply upserts the branch inventory document for the change's item on the
// given transaction handle. Credits create the document when absent;
// debits require enough stock and fail the transaction otherwise.
func (s *Service) Apply(ctx context.Context, tx store.Tx, companyID, branchID string, ch Change) error {
	if ch.Quantity.IsZero() {
		return nil
	}

	path := Path(companyID, branchID, ch.ItemID)
	snapshot, err := tx.Get(path)
	if err != nil {
		return err
	}

	var inv Inventory
	if snapshot != nil {
		if err := snapshot.DataTo(&inv); err != nil {
			return err
		}
	} else {
		if ch.Quantity.IsNegative() {
			return apperror.NewInsufficientStock(ch.ItemID, ch.Quantity.Neg().Float64(), 0)
		}
		inv = Inventory{
			Item:     ch.ItemID,
			ItemName: ch.ItemName,
			Branch:   branchID,
			Company:  companyID,
		}
	}

	next := inv.Quantity + ch.Quantity
	if next.IsNegative() {
		return apperror.NewInsufficientStock(ch.ItemID, ch.Quantity.Neg().Float64(), inv.Quantity.Float64())
	}

	inv.Quantity = next
	inv.UnAllocated += ch.Quantity
	if inv.UnAllocated.IsNegative() {
		inv.UnAllocated = 0
	}
	inv.LastAction = ch.Action
	inv.LastChange = ch.Quantity
	if ch.ItemName != "" {
		inv.ItemName = ch.ItemName
	}
	if ch.UnitPrice != nil {
		inv.UnitPrice = *ch.UnitPrice
	}
	if ch.Tax != nil {
		inv.LastTax = *ch.Tax
	}
	if ch.TaxCode != "" {
		inv.TaxCode = ch.TaxCode
	}

	return tx.Set(path, inv)
}

// Get returns the inventory document for an item, or nil if the branch has
// never stocked it.
func (s *Service) Get(ctx context.Context, companyID, branchID, itemID string) (*Inventory, error) {
	snapshot, err := s.store.Get(ctx, Path(companyID, branchID, itemID))
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, nil
	}
	var inv Inventory
	if err := snapshot.DataTo(&inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// List returns every inventory document of a branch ordered by item name.
func (s *Service) List(ctx context.Context, companyID, branchID string) ([]Inventory, error) {
	docs, err := s.store.Query(ctx, store.Query{
		Collection: CollectionPath(companyID, branchID),
		OrderBy:    "itemName",
	})
	if err != nil {
		return nil, err
	}

	out := make([]Inventory, 0, len(docs))
	for _, doc := range docs {
		var inv Inventory
		if err := doc.DataTo(&inv); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}
