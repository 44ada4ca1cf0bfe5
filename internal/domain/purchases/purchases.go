// Package purchases implements supplier purchase orders. Confirming a
// purchase credits the branch's inventory (stock and unallocated amount,
// with refreshed purchase prices) and records the spend stats.
package purchases

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

// Status of a purchase document.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusConfirmed Status = "CONFIRMED"
)

// Line is one purchased item.
type Line struct {
	Item       string         `json:"item"`
	ItemName   string         `json:"itemName"`
	Quantity   types.Quantity `json:"quantity"`
	UnitPrice  types.Money    `json:"unitPrice"`
	TaxAmount  types.Money    `json:"taxAmount"`
	TaxCode    string         `json:"taxCode"`
	TotalPrice types.Money    `json:"totalPrice"`
}

// Purchase is one supplier order document of a branch.
type Purchase struct {
	Number        string         `json:"number"`
	Supplier      string         `json:"supplier"`
	SupplierName  string         `json:"supplierName"`
	Items         []Line         `json:"items"`
	Status        Status         `json:"status"`
	TotalQuantity types.Quantity `json:"totalQuantity"`
	TotalCost     types.Money    `json:"totalCost"`
	TotalVAT      types.Money    `json:"totalVAT"`
	Branch        string         `json:"branch"`
	Company       string         `json:"company"`
	CreatedTime   time.Time      `json:"createdTime"`
	UpdatedTime   time.Time      `json:"updatedTime"`
	ConfirmedTime *time.Time     `json:"confirmedTime,omitempty"`
}

func (p *Purchase) refreshTotals() {
	var qty types.Quantity
	cost := types.Zero()
	vat := types.Zero()
	for i := range p.Items {
		l := &p.Items[i]
		l.TotalPrice = l.UnitPrice.Mul(l.Quantity.Decimal())
		qty += l.Quantity
		cost = cost.Add(l.TotalPrice)
		vat = vat.Add(l.TaxAmount)
	}
	p.TotalQuantity = qty
	p.TotalCost = cost
	p.TotalVAT = vat
}

// Path returns the purchase document path within a branch.
func Path(companyID, branchID, purchaseID string) string {
	return fmt.Sprintf("companies/%s/branches/%s/purchases/%s", companyID, branchID, purchaseID)
}

// CollectionPath returns a branch's purchases collection path.
func CollectionPath(companyID, branchID string) string {
	return fmt.Sprintf("companies/%s/branches/%s/purchases", companyID, branchID)
}

// Service drafts and confirms purchases.
type Service struct {
	store     store.Store
	inventory *inventory.Service
	stats     *stats.Service
}

// NewService creates a purchases service.
func NewService(st store.Store, inv *inventory.Service, statsSvc *stats.Service) *Service {
	return &Service{store: st, inventory: inv, stats: statsSvc}
}

// CreateInput is a purchase order being drafted.
type CreateInput struct {
	CompanyID    string
	BranchID     string
	SupplierID   string
	SupplierName string
	Items        []Line
}

func (in CreateInput) validate() error {
	if in.SupplierID == "" {
		return apperror.NewValidation("supplier is required")
	}
	if len(in.Items) == 0 {
		return apperror.NewValidation("purchase needs at least one item")
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

// Create stores a DRAFT purchase and returns its id.
func (s *Service) Create(ctx context.Context, in CreateInput) (string, error) {
	if err := in.validate(); err != nil {
		return "", err
	}

	purchaseID := id.New().String()
	now := time.Now().UTC()

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		number, err := numerator.Next(tx, numerator.DefaultConfig("PO"), now)
		if err != nil {
			return err
		}
		p := Purchase{
			Number:       number,
			Supplier:     in.SupplierID,
			SupplierName: in.SupplierName,
			Items:        append([]Line(nil), in.Items...),
			Status:       StatusDraft,
			Branch:       in.BranchID,
			Company:      in.CompanyID,
			CreatedTime:  now,
			UpdatedTime:  now,
		}
		p.refreshTotals()
		return tx.Create(Path(in.CompanyID, in.BranchID, purchaseID), p)
	})
	if err != nil {
		return "", err
	}
	return purchaseID, nil
}

// Confirm receives the goods: credits branch stock per line with refreshed
// purchase price and tax, and records {purchase, pVAT} stats, atomically.
func (s *Service) Confirm(ctx context.Context, companyID, branchID, purchaseID string) error {
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		path := Path(companyID, branchID, purchaseID)
		snapshot, err := tx.Get(path)
		if err != nil {
			return err
		}
		if snapshot == nil {
			return apperror.NewNotFound("purchase", purchaseID)
		}

		var p Purchase
		if err := snapshot.DataTo(&p); err != nil {
			return err
		}
		if p.Status == StatusConfirmed {
			return apperror.NewAlreadyConfirmed("purchase", purchaseID)
		}

		for _, l := range p.Items {
			price := l.UnitPrice
			tax := l.TaxAmount
			err := s.inventory.Apply(ctx, tx, companyID, branchID, inventory.Change{
				ItemID:    l.Item,
				ItemName:  l.ItemName,
				Quantity:  l.Quantity,
				Action:    inventory.ActionPurchase,
				UnitPrice: &price,
				Tax:       &tax,
				TaxCode:   l.TaxCode,
			})
			if err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		p.Status = StatusConfirmed
		p.ConfirmedTime = &now
		p.UpdatedTime = now
		if err := tx.Update(path, p); err != nil {
			return err
		}

		return s.stats.Record(ctx, tx, companyID, branchID, stats.Entry{
			Purchase:    p.TotalCost.InexactFloat64(),
			PurchaseVAT: p.TotalVAT.InexactFloat64(),
			Stock:       p.TotalQuantity.Float64(),
			Date:        now,
		})
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "purchase confirmed", "purchase_id", purchaseID, "branch_id", branchID)
	return nil
}

// Get loads one purchase document.
func (s *Service) Get(ctx context.Context, companyID, branchID, purchaseID string) (*Purchase, error) {
	snapshot, err := s.store.Get(ctx, Path(companyID, branchID, purchaseID))
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, apperror.NewNotFound("purchase", purchaseID)
	}
	var p Purchase
	if err := snapshot.DataTo(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns a branch's purchases, newest first.
func (s *Service) List(ctx context.Context, companyID, branchID string) ([]Purchase, error) {
	docs, err := s.store.Query(ctx, store.Query{
		Collection: CollectionPath(companyID, branchID),
		OrderBy:    "createdTime",
		Desc:       true,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Purchase, 0, len(docs))
	for _, doc := range docs {
		var p Purchase
		if err := doc.DataTo(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
