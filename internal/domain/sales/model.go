// Package sales implements sales invoices: drafted from a cart, then
// confirmed in one transaction that debits stock, settles the customer's
// returnable packaging and records the revenue stats.
package sales

import (
	"fmt"
	"time"

	"melowms/internal/core/types"
)

// Status of a sale document.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusConfirmed Status = "CONFIRMED"
	StatusCanceled  Status = "CANCELED"
)

// Line is one invoice line. IsFillable marks goods sold in returnable
// packaging; confirming such a line moves the customer's empties balance.
type Line struct {
	Item               string         `json:"item"`
	ItemName           string         `json:"itemName"`
	Quantity           types.Quantity `json:"quantity"`
	UnitPrice          types.Money    `json:"unitPrice"`
	TaxAmount          types.Money    `json:"taxAmount"`
	TaxCode            string         `json:"taxCode"`
	Discount           types.Money    `json:"discount"` // percent, 0-100
	TotalPrice         types.Money    `json:"totalPrice"`
	TotalAfterDiscount types.Money    `json:"totalAfterDiscount"`
	IsFillable         bool           `json:"isFillable"`
}

// Recompute refreshes the derived line totals.
func (l *Line) Recompute() {
	l.TotalPrice = l.UnitPrice.Mul(l.Quantity.Decimal())
	if l.Discount.IsZero() {
		l.TotalAfterDiscount = l.TotalPrice
		return
	}
	hundred := types.NewMoney(100)
	l.TotalAfterDiscount = l.TotalPrice.Sub(l.TotalPrice.Mul(l.Discount).Div(hundred))
}

// Sale is one invoice document of a branch.
type Sale struct {
	Number            string         `json:"number"`
	Customer          string         `json:"customer"`
	CustomerName      string         `json:"customerName"`
	Items             []Line         `json:"items"`
	Status            Status         `json:"status"`
	TotalQuantity     types.Quantity `json:"totalQuantity"`
	TotalCost         types.Money    `json:"totalCost"`
	CostAfterDiscount types.Money    `json:"costAfterDiscount"`
	TotalVAT          types.Money    `json:"totalVAT"`
	EmptiesReturned   types.Quantity `json:"emptiesReturned"`
	Branch            string         `json:"branch"`
	Company           string         `json:"company"`
	CreatedTime       time.Time      `json:"createdTime"`
	UpdatedTime       time.Time      `json:"updatedTime"`
	ConfirmedTime     *time.Time     `json:"confirmedTime,omitempty"`
}

// RefreshTotals recomputes invoice-level aggregates from the lines.
func (s *Sale) RefreshTotals() {
	var qty types.Quantity
	cost := types.Zero()
	afterDiscount := types.Zero()
	vat := types.Zero()
	for i := range s.Items {
		l := &s.Items[i]
		qty += l.Quantity
		cost = cost.Add(l.TotalPrice)
		afterDiscount = afterDiscount.Add(l.TotalAfterDiscount)
		vat = vat.Add(l.TaxAmount)
	}
	s.TotalQuantity = qty
	s.TotalCost = cost
	s.CostAfterDiscount = afterDiscount
	s.TotalVAT = vat
}

// FillableQuantity sums the quantity of fillable lines: the empties going
// out with this invoice.
func (s *Sale) FillableQuantity() types.Quantity {
	var total types.Quantity
	for i := range s.Items {
		if s.Items[i].IsFillable {
			total += s.Items[i].Quantity
		}
	}
	return total
}

// Path returns the sale document path within a branch.
func Path(companyID, branchID, saleID string) string {
	return fmt.Sprintf("companies/%s/branches/%s/sales/%s", companyID, branchID, saleID)
}

// CollectionPath returns a branch's sales collection path.
func CollectionPath(companyID, branchID string) string {
	return fmt.Sprintf("companies/%s/branches/%s/sales", companyID, branchID)
}
