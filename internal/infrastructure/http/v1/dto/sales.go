package dto

// SaleLineRequest is one invoice line.
type SaleLineRequest struct {
	ItemID     string  `json:"itemId" binding:"required"`
	ItemName   string  `json:"itemName"`
	Quantity   float64 `json:"quantity" binding:"required,gt=0"`
	UnitPrice  float64 `json:"unitPrice" binding:"gte=0"`
	TaxAmount  float64 `json:"taxAmount"`
	TaxCode    string  `json:"taxCode"`
	Discount   float64 `json:"discount" binding:"gte=0,lte=100"`
	IsFillable bool    `json:"isFillable"`
}

// CreateSaleRequest drafts an invoice for a customer.
type CreateSaleRequest struct {
	CustomerID   string            `json:"customerId" binding:"required"`
	CustomerName string            `json:"customerName"`
	Items        []SaleLineRequest `json:"items" binding:"required,min=1,dive"`
}

// ConfirmSaleRequest executes a draft invoice. EmptiesReturned is the
// returnable packaging the customer brought back with this order.
type ConfirmSaleRequest struct {
	EmptiesReturned float64 `json:"emptiesReturned" binding:"gte=0"`
}

// PurchaseLineRequest is one purchased item.
type PurchaseLineRequest struct {
	ItemID    string  `json:"itemId" binding:"required"`
	ItemName  string  `json:"itemName"`
	Quantity  float64 `json:"quantity" binding:"required,gt=0"`
	UnitPrice float64 `json:"unitPrice" binding:"gte=0"`
	TaxAmount float64 `json:"taxAmount"`
	TaxCode   string  `json:"taxCode"`
}

// CreatePurchaseRequest drafts a supplier order.
type CreatePurchaseRequest struct {
	SupplierID   string                `json:"supplierId" binding:"required"`
	SupplierName string                `json:"supplierName"`
	Items        []PurchaseLineRequest `json:"items" binding:"required,min=1,dive"`
}

// CreateExpenseRequest files a branch expense for approval.
type CreateExpenseRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Category    string  `json:"category"`
}
