// Package inventory manages per-branch stock documents.
package inventory

import (
	"fmt"

	"melowms/internal/core/types"
)

// Action tags the operation that last touched an inventory document.
type Action string

const (
	ActionAccept   Action = "Accept"
	ActionTransfer Action = "Transfer"
	ActionRestock  Action = "Restock"
	ActionSale     Action = "Sale"
	ActionPurchase Action = "Purchase"
	ActionAdjust   Action = "Adjust"
)

// Inventory is the per-branch stock document for one item. Field names are
// the persisted wire contract.
type Inventory struct {
	Item             string         `json:"item"`
	ItemName         string         `json:"itemName"`
	UnitPrice        types.Money    `json:"unitPrice"`
	Quantity         types.Quantity `json:"quantity"`
	UnAllocated      types.Quantity `json:"unAllocated"`
	LastAction       Action         `json:"lastAction"`
	LastChange       types.Quantity `json:"lastChange"`
	LastTax          types.Money    `json:"lastTax"`
	TaxCode          string         `json:"taxCode"`
	NonTaxableAmount types.Money    `json:"nonTaxableAmount"`
	Branch           string         `json:"branch"`
	Company          string         `json:"company"`
}

// Path returns the inventory document path for an item within a branch.
func Path(companyID, branchID, itemID string) string {
	return fmt.Sprintf("companies/%s/branches/%s/inventory/%s", companyID, branchID, itemID)
}

// CollectionPath returns the branch inventory collection path.
func CollectionPath(companyID, branchID string) string {
	return fmt.Sprintf("companies/%s/branches/%s/inventory", companyID, branchID)
}
