package dto

// TransferLineRequest is one line of an outgoing transfer cart.
type TransferLineRequest struct {
	ItemID    string  `json:"itemId" binding:"required"`
	ItemName  string  `json:"itemName"`
	Quantity  float64 `json:"quantity" binding:"required,gt=0"`
	UnitPrice float64 `json:"unitPrice" binding:"gte=0"`
	TaxAmount float64 `json:"taxAmount"`
	TaxCode   string  `json:"taxCode"`
	Discount  float64 `json:"discount" binding:"gte=0,lte=100"`
}

// CreateTransferRequest ships goods from the branch in the URL to the
// named branch.
type CreateTransferRequest struct {
	ToBranchID   string                `json:"toBranchId" binding:"required"`
	ToBranchName string                `json:"toBranchName"`
	Items        []TransferLineRequest `json:"items" binding:"required,min=1,dive"`
}

// AcceptRequest accepts part of an incoming transfer item.
type AcceptRequest struct {
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
}

// RejectRequest rejects part of an incoming transfer item.
type RejectRequest struct {
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
	Reason   string  `json:"reason" binding:"required"`
	Desc     string  `json:"desc"`
}

// RestockRequest selects rejected entries of an item to take back.
type RestockRequest struct {
	Indexes []int `json:"indexes" binding:"required,min=1"`
}
