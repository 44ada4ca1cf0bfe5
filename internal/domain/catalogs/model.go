// Package catalogs provides the lookup entities of the platform: companies,
// their branches, and per-company customers, suppliers and items. All of
// them are plain documents managed by a shared generic collection service.
package catalogs

import (
	"time"

	"melowms/internal/core/types"
)

// Company is the tenant root. Every other document lives under its path.
type Company struct {
	Name        string    `json:"name"`
	TIN         string    `json:"tin"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	CreatedTime time.Time `json:"createdTime"`
}

// Branch is a company location holding its own inventory, transfers and
// stats.
type Branch struct {
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Phone       string    `json:"phone"`
	IsMain      bool      `json:"isMain"`
	CreatedTime time.Time `json:"createdTime"`
}

// Customer buys from a branch. FillableGroup references the returnable
// packaging group the customer trades under; empty means the customer
// cannot buy fillable items.
type Customer struct {
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	TIN           string    `json:"tin"`
	Email         string    `json:"email"`
	FillableGroup string    `json:"fillableGroup,omitempty"`
	CreatedTime   time.Time `json:"createdTime"`
}

// Supplier sells to the company.
type Supplier struct {
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	TIN         string    `json:"tin"`
	Email       string    `json:"email"`
	CreatedTime time.Time `json:"createdTime"`
}

// Item is a sellable product. Fillable items (bottled goods in returnable
// crates) carry the group whose empties balance moves on every sale.
type Item struct {
	Name          string      `json:"name"`
	Code          string      `json:"code"`
	Unit          string      `json:"unit"`
	SalePrice     types.Money `json:"salePrice"`
	PurchasePrice types.Money `json:"purchasePrice"`
	TaxCode       string      `json:"taxCode"`
	IsFillable    bool        `json:"isFillable"`
	FillableGroup string      `json:"fillableGroup,omitempty"`
	CreatedTime   time.Time   `json:"createdTime"`
}
