// Package transfers implements the branch-to-branch goods transfer state
// machine: a sending branch ships items, the receiving branch accepts or
// rejects each line, and the sender may later restock rejected quantity.
package transfers

import (
	"fmt"
	"time"

	"melowms/internal/core/apperror"
	"melowms/internal/core/types"
)

// Status of a transfer document.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
)

// Direction distinguishes the two mirror views of one logical transfer.
type Direction string

const (
	DirectionOut Direction = "OUT" // stored at the sending branch
	DirectionIn  Direction = "IN"  // stored at the receiving branch
)

// ReasonDamaged marks a rejected entry whose goods never return to stock.
const ReasonDamaged = "Damaged"

// Rejected is one rejection of part of an item's quantity. Entries are
// append-only until a restock removes them.
type Rejected struct {
	Qty    types.Quantity `json:"qty"`
	Reason string         `json:"reason"`
	Desc   string         `json:"desc"`
}

// Item is a transfer line. AcceptedQty and the Rejected list are the source
// of truth; TotRejected, UntouchedQty, IsAccepted and IsRejected are derived
// and recomputed on every write so readers of the wire shape get them
// pre-computed.
type Item struct {
	Item               string         `json:"item"`
	ItemName           string         `json:"itemName"`
	UnitPrice          types.Money    `json:"unitPrice"`
	Quantity           types.Quantity `json:"quantity"`
	TaxAmount          types.Money    `json:"taxAmount"`
	TaxCode            string         `json:"taxCode"`
	TotalPrice         types.Money    `json:"totalPrice"`
	TotalAfterDiscount types.Money    `json:"totalAfterDiscount"`
	Discount           types.Money    `json:"discount"` // percent, 0-100

	AcceptedQty  types.Quantity `json:"acceptedQty"`
	Rejected     []Rejected     `json:"rejected"`
	TotRejected  types.Quantity `json:"totRejected"`
	UntouchedQty types.Quantity `json:"untouchedQty"`
	IsAccepted   bool           `json:"isAccepted"`
	IsRejected   bool           `json:"isRejected"`
}

// Recompute refreshes every derived field from Quantity, AcceptedQty and
// the Rejected list. IsAccepted and IsRejected are independent flags, not
// mutually exclusive states: an item accepted 60 and rejected 40 out of 100
// is neither fully accepted nor fully rejected.
func (it *Item) Recompute() {
	var rejected types.Quantity
	for _, r := range it.Rejected {
		rejected += r.Qty
	}
	it.TotRejected = rejected
	it.UntouchedQty = it.Quantity - it.AcceptedQty - rejected
	it.IsAccepted = it.AcceptedQty == it.Quantity
	it.IsRejected = rejected == it.Quantity

	it.TotalPrice = it.UnitPrice.Mul(it.Quantity.Decimal())
	it.TotalAfterDiscount = applyDiscount(it.TotalPrice, it.Discount)
}

func applyDiscount(total, percent types.Money) types.Money {
	if percent.IsZero() {
		return total
	}
	hundred := types.NewMoney(100)
	return total.Sub(total.Mul(percent).Div(hundred))
}

// Transfer is one mirror document of a logical branch-to-branch transfer.
// The paired document lives in the other branch's transfers collection
// under TheirTransfer; both must stay identical in items, doneItems and
// status after every operation.
type Transfer struct {
	Number            string         `json:"number"`
	Items             []Item         `json:"items"`
	DoneItems         int            `json:"doneItems"`
	Status            Status         `json:"status"`
	TransferType      Direction      `json:"transferType"`
	TheirTransfer     string         `json:"theirTransfer"`
	TotalQuantity     types.Quantity `json:"totalQuantity"`
	TotalCost         types.Money    `json:"totalCost"`
	CostAfterDiscount types.Money    `json:"costAfterDiscount"`
	TotalItems        int            `json:"totalItems"`

	From       string `json:"from"` // sending branch id
	To         string `json:"to"`   // receiving branch id
	FromBranch string `json:"fromBranch"`
	ToBranch   string `json:"toBranch"`
	Company    string `json:"company"`

	CreatedTime time.Time `json:"createdTime"`
	UpdatedTime time.Time `json:"updatedTime"`
}

// FindItem returns the index of the line for the given item id.
func (t *Transfer) FindItem(itemID string) (int, error) {
	for i := range t.Items {
		if t.Items[i].Item == itemID {
			return i, nil
		}
	}
	return 0, apperror.NewNotFound("transfer item", itemID)
}

// RefreshTotals recomputes transfer-level aggregates from the remaining
// items: quantities, costs, item counts, doneItems and status. A transfer
// completes when every remaining item is fully accepted, including the
// degenerate case where a full restock removed the last open item.
func (t *Transfer) RefreshTotals() {
	t.TotalItems = len(t.Items)

	var qty types.Quantity
	cost := types.Zero()
	afterDiscount := types.Zero()
	done := 0
	for i := range t.Items {
		it := &t.Items[i]
		qty += it.Quantity
		cost = cost.Add(it.TotalPrice)
		afterDiscount = afterDiscount.Add(it.TotalAfterDiscount)
		if it.IsAccepted {
			done++
		}
	}

	t.TotalQuantity = qty
	t.TotalCost = cost
	t.CostAfterDiscount = afterDiscount
	t.DoneItems = done
	if done == len(t.Items) {
		t.Status = StatusCompleted
	} else {
		t.Status = StatusPending
	}
}

// Path returns the transfer document path within a branch.
func Path(companyID, branchID, transferID string) string {
	return fmt.Sprintf("companies/%s/branches/%s/transfers/%s", companyID, branchID, transferID)
}

// CollectionPath returns a branch's transfers collection path.
func CollectionPath(companyID, branchID string) string {
	return fmt.Sprintf("companies/%s/branches/%s/transfers", companyID, branchID)
}

// DamagedProduct is the record written to the sending branch when a restock
// includes damaged rejections. Shape is the persisted wire contract.
type DamagedProduct struct {
	Action   string         `json:"action"` // always "Transfer" here
	ToBranch string         `json:"toBranch"`
	To       string         `json:"to"`
	Quantity types.Quantity `json:"quantity"`
	Items    []Rejected     `json:"items"`
	Transfer string         `json:"transfer"`
	Item     string         `json:"item"`
	ItemName string         `json:"itemName"`

	CreatedTime time.Time `json:"createdTime"`
}

// DamagedCollectionPath returns a branch's damaged products collection path.
func DamagedCollectionPath(companyID, branchID string) string {
	return fmt.Sprintf("companies/%s/branches/%s/damaged_products", companyID, branchID)
}
