package sales

import (
	"context"
	"time"

	"melowms/internal/core/apperror"
	"melowms/internal/core/id"
	"melowms/internal/core/numerator"
	"melowms/internal/core/store"
	"melowms/internal/core/types"
	"melowms/internal/domain/fillables"
	"melowms/internal/domain/inventory"
	"melowms/internal/domain/stats"
	"melowms/pkg/logger"
)

// Service drafts and confirms sales invoices.
type Service struct {
	store     store.Store
	inventory *inventory.Service
	fillables *fillables.Service
	stats     *stats.Service
}

// NewService creates a sales service.
func NewService(st store.Store, inv *inventory.Service, fil *fillables.Service, statsSvc *stats.Service) *Service {
	return &Service{store: st, inventory: inv, fillables: fil, stats: statsSvc}
}

// CreateInput is a sales cart being drafted.
type CreateInput struct {
	CompanyID    string
	BranchID     string
	CustomerID   string
	CustomerName string
	Items        []Line
}

func (in CreateInput) validate() error {
	if in.CustomerID == "" {
		return apperror.NewValidation("customer is required")
	}
	if len(in.Items) == 0 {
		return apperror.NewValidation("sale needs at least one item")
	}
	for i, l := range in.Items {
		if l.Item == "" {
			return apperror.NewValidation("item is required").WithDetail("line", i+1)
		}
		if !l.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").WithDetail("line", i+1)
		}
		if l.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price cannot be negative").WithDetail("line", i+1)
		}
	}
	return nil
}

// Create stores a DRAFT invoice and returns its id. Drafts touch nothing
// but the sale document itself.
func (s *Service) Create(ctx context.Context, in CreateInput) (string, error) {
	if err := in.validate(); err != nil {
		return "", err
	}

	saleID := id.New().String()
	now := time.Now().UTC()

	items := make([]Line, len(in.Items))
	copy(items, in.Items)
	for i := range items {
		items[i].Recompute()
	}

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		number, err := numerator.Next(tx, numerator.DefaultConfig("SL"), now)
		if err != nil {
			return err
		}
		sale := Sale{
			Number:       number,
			Customer:     in.CustomerID,
			CustomerName: in.CustomerName,
			Items:        items,
			Status:       StatusDraft,
			Branch:       in.BranchID,
			Company:      in.CompanyID,
			CreatedTime:  now,
			UpdatedTime:  now,
		}
		sale.RefreshTotals()
		return tx.Create(Path(in.CompanyID, in.BranchID, saleID), sale)
	})
	if err != nil {
		return "", err
	}
	return saleID, nil
}

// Confirm executes a draft invoice: debits branch stock for every line,
// settles the customer's empties balance when fillable lines are present,
// and records the revenue stats. All of it commits atomically or not at
// all.
func (s *Service) Confirm(ctx context.Context, companyID, branchID, saleID string, emptiesReturned types.Quantity) error {
	if emptiesReturned.IsNegative() {
		return apperror.NewValidation("returned empties cannot be negative")
	}

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		path := Path(companyID, branchID, saleID)
		snapshot, err := tx.Get(path)
		if err != nil {
			return err
		}
		if snapshot == nil {
			return apperror.NewNotFound("sale", saleID)
		}

		var sale Sale
		if err := snapshot.DataTo(&sale); err != nil {
			return err
		}

		switch sale.Status {
		case StatusConfirmed:
			return apperror.NewAlreadyConfirmed("sale", saleID)
		case StatusCanceled:
			return apperror.NewValidation("cannot confirm a canceled sale")
		}

		for _, l := range sale.Items {
			err := s.inventory.Apply(ctx, tx, companyID, branchID, inventory.Change{
				ItemID:   l.Item,
				ItemName: l.ItemName,
				Quantity: l.Quantity.Neg(),
				Action:   inventory.ActionSale,
			})
			if err != nil {
				return err
			}
		}

		taken := sale.FillableQuantity()
		if taken.IsPositive() || emptiesReturned.IsPositive() {
			if err := s.fillables.Settle(ctx, tx, companyID, sale.Customer, taken, emptiesReturned); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		sale.Status = StatusConfirmed
		sale.ConfirmedTime = &now
		sale.UpdatedTime = now
		sale.EmptiesReturned = emptiesReturned
		if err := tx.Update(path, sale); err != nil {
			return err
		}

		return s.stats.Record(ctx, tx, companyID, branchID, stats.Entry{
			Sales:    sale.CostAfterDiscount.InexactFloat64(),
			SalesVAT: sale.TotalVAT.InexactFloat64(),
			Stock:    sale.TotalQuantity.Neg().Float64(),
			Date:     now,
		})
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "sale confirmed", "sale_id", saleID, "branch_id", branchID)
	return nil
}

// Cancel voids a draft. Confirmed invoices stay as the audit trail.
func (s *Service) Cancel(ctx context.Context, companyID, branchID, saleID string) error {
	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		path := Path(companyID, branchID, saleID)
		snapshot, err := tx.Get(path)
		if err != nil {
			return err
		}
		if snapshot == nil {
			return apperror.NewNotFound("sale", saleID)
		}

		var sale Sale
		if err := snapshot.DataTo(&sale); err != nil {
			return err
		}
		if sale.Status != StatusDraft {
			return apperror.NewValidation("only draft sales can be canceled")
		}

		sale.Status = StatusCanceled
		sale.UpdatedTime = time.Now().UTC()
		return tx.Update(path, sale)
	})
}

// Get loads one sale document.
func (s *Service) Get(ctx context.Context, companyID, branchID, saleID string) (*Sale, error) {
	snapshot, err := s.store.Get(ctx, Path(companyID, branchID, saleID))
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, apperror.NewNotFound("sale", saleID)
	}
	var sale Sale
	if err := snapshot.DataTo(&sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// List returns a branch's sales, newest first.
func (s *Service) List(ctx context.Context, companyID, branchID string) ([]Sale, error) {
	docs, err := s.store.Query(ctx, store.Query{
		Collection: CollectionPath(companyID, branchID),
		OrderBy:    "createdTime",
		Desc:       true,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Sale, 0, len(docs))
	for _, doc := range docs {
		var sale Sale
		if err := doc.DataTo(&sale); err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, nil
}
