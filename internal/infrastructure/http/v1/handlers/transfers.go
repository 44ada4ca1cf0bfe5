package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"melowms/internal/core/apperror"
	"melowms/internal/domain/audit"
	"melowms/internal/domain/catalogs"
	"melowms/internal/domain/transfers"
	"melowms/internal/infrastructure/http/v1/dto"
)

// Transfers handles the branch-to-branch transfer surface.
type Transfers struct {
	transfers *transfers.Service
	catalogs  *catalogs.Service
	audit     *audit.Service
}

// NewTransfers creates the transfers handler.
func NewTransfers(svc *transfers.Service, cat *catalogs.Service, aud *audit.Service) *Transfers {
	return &Transfers{transfers: svc, catalogs: cat, audit: aud}
}

// List handles GET /companies/:companyId/branches/:branchId/transfers.
// The optional ?direction=IN|OUT query narrows the result.
func (h *Transfers) List(c *gin.Context) {
	direction := transfers.Direction(c.Query("direction"))
	list, err := h.transfers.List(c.Request.Context(), c.Param("companyId"), c.Param("branchId"), direction)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get handles GET .../transfers/:transferId.
func (h *Transfers) Get(c *gin.Context) {
	t, err := h.transfers.Get(c.Request.Context(), c.Param("companyId"), c.Param("branchId"), c.Param("transferId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Create handles POST .../transfers. The URL branch is the sender.
func (h *Transfers) Create(c *gin.Context) {
	var req dto.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewValidation(err.Error()))
		return
	}

	ctx := c.Request.Context()
	companyID := c.Param("companyId")
	fromBranchID := c.Param("branchId")

	from, err := h.catalogs.Branches.Get(ctx, companyID, fromBranchID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	fromName := from.Name

	toName := req.ToBranchName
	if toName == "" {
		to, err := h.catalogs.Branches.Get(ctx, companyID, req.ToBranchID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		toName = to.Name
	}

	items := make([]transfers.NewItem, len(req.Items))
	for i, l := range req.Items {
		items[i] = transfers.NewItem{
			ItemID:    l.ItemID,
			ItemName:  l.ItemName,
			UnitPrice: toMoney(l.UnitPrice),
			Quantity:  toQuantity(l.Quantity),
			TaxAmount: toMoney(l.TaxAmount),
			TaxCode:   l.TaxCode,
			Discount:  toMoney(l.Discount),
		}
	}

	transferID, err := h.transfers.Create(ctx, transfers.CreateInput{
		CompanyID:      companyID,
		FromBranchID:   fromBranchID,
		FromBranchName: fromName,
		ToBranchID:     req.ToBranchID,
		ToBranchName:   toName,
		Items:          items,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.audit.Record(ctx, companyID, "transfer.create", "transfer", transferID, req)
	c.JSON(http.StatusCreated, dto.IDResponse{ID: transferID})
}

// Accept handles POST .../transfers/:transferId/items/:itemId/accept.
// The URL branch is the receiver.
func (h *Transfers) Accept(c *gin.Context) {
	var req dto.AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewValidation(err.Error()))
		return
	}

	ctx := c.Request.Context()
	in := transfers.AcceptInput{
		CompanyID:  c.Param("companyId"),
		BranchID:   c.Param("branchId"),
		TransferID: c.Param("transferId"),
		ItemID:     c.Param("itemId"),
		Quantity:   toQuantity(req.Quantity),
	}
	if err := h.transfers.Accept(ctx, in); err != nil {
		_ = c.Error(err)
		return
	}

	h.audit.Record(ctx, in.CompanyID, "transfer.accept", "transfer", in.TransferID, req)
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "accepted"})
}

// Reject handles POST .../transfers/:transferId/items/:itemId/reject.
func (h *Transfers) Reject(c *gin.Context) {
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewValidation(err.Error()))
		return
	}

	ctx := c.Request.Context()
	in := transfers.RejectInput{
		CompanyID:  c.Param("companyId"),
		BranchID:   c.Param("branchId"),
		TransferID: c.Param("transferId"),
		ItemID:     c.Param("itemId"),
		Quantity:   toQuantity(req.Quantity),
		Reason:     req.Reason,
		Desc:       req.Desc,
	}
	if err := h.transfers.Reject(ctx, in); err != nil {
		_ = c.Error(err)
		return
	}

	h.audit.Record(ctx, in.CompanyID, "transfer.reject", "transfer", in.TransferID, req)
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "rejected"})
}

// Restock handles POST .../transfers/:transferId/items/:itemId/restock.
// The URL branch is the sender.
func (h *Transfers) Restock(c *gin.Context) {
	var req dto.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewValidation(err.Error()))
		return
	}

	ctx := c.Request.Context()
	in := transfers.RestockInput{
		CompanyID:  c.Param("companyId"),
		BranchID:   c.Param("branchId"),
		TransferID: c.Param("transferId"),
		ItemID:     c.Param("itemId"),
		Indexes:    req.Indexes,
	}
	if err := h.transfers.Restock(ctx, in); err != nil {
		_ = c.Error(err)
		return
	}

	h.audit.Record(ctx, in.CompanyID, "transfer.restock", "transfer", in.TransferID, req)
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "restocked"})
}
