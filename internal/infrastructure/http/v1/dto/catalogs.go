package dto

// CompanyRequest creates or updates a company.
type CompanyRequest struct {
	Name    string `json:"name" binding:"required"`
	TIN     string `json:"tin"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// BranchRequest creates or updates a branch.
type BranchRequest struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location"`
	Phone    string `json:"phone"`
	IsMain   bool   `json:"isMain"`
}

// CustomerRequest creates or updates a customer. A non-empty fillable
// group opens the customer's empties account on creation.
type CustomerRequest struct {
	Name          string `json:"name" binding:"required"`
	Phone         string `json:"phone"`
	TIN           string `json:"tin"`
	Email         string `json:"email"`
	FillableGroup string `json:"fillableGroup"`
}

// SupplierRequest creates or updates a supplier.
type SupplierRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
	TIN   string `json:"tin"`
	Email string `json:"email"`
}

// ItemRequest creates or updates a catalog item.
type ItemRequest struct {
	Name          string  `json:"name" binding:"required"`
	Code          string  `json:"code"`
	Unit          string  `json:"unit"`
	SalePrice     float64 `json:"salePrice" binding:"gte=0"`
	PurchasePrice float64 `json:"purchasePrice" binding:"gte=0"`
	TaxCode       string  `json:"taxCode"`
	IsFillable    bool    `json:"isFillable"`
	FillableGroup string  `json:"fillableGroup"`
}
