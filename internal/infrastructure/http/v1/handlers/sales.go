package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"melowms/internal/core/apperror"
	"melowms/internal/domain/audit"
	"melowms/internal/domain/sales"
	"melowms/internal/infrastructure/http/v1/dto"
)

// Sales handles the branch invoice surface.
type Sales struct {
	sales *sales.Service
	audit *audit.Service
}

// NewSales creates the sales handler.
func NewSales(svc *sales.Service, aud *audit.Service) *Sales {
	return &Sales{sales: svc, audit: aud}
}

// List handles GET /companies/:companyId/branches/:branchId/sales.
func (h *Sales) List(c *gin.Context) {
	list, err := h.sales.List(c.Request.Context(), c.Param("companyId"), c.Param("branchId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get handles GET .../sales/:saleId.
func (h *Sales) Get(c *gin.Context) {
	s, err := h.sales.Get(c.Request.Context(), c.Param("companyId"), c.Param("branchId"), c.Param("saleId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Create handles POST .../sales. The invoice starts as a draft; stock
// only moves on confirm.
func (h *Sales) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewValidation(err.Error()))
		return
	}

	ctx := c.Request.Context()
	companyID := c.Param("companyId")

	items := make([]sales.Line, len(req.Items))
	for i, l := range req.Items {
		items[i] = sales.Line{
			Item:       l.ItemID,
			ItemName:   l.ItemName,
			Quantity:   toQuantity(l.Quantity),
			UnitPrice:  toMoney(l.UnitPrice),
			TaxAmount:  toMoney(l.TaxAmount),
			TaxCode:    l.TaxCode,
			Discount:   toMoney(l.Discount),
			IsFillable: l.IsFillable,
		}
	}

	saleID, err := h.sales.Create(ctx, sales.CreateInput{
		CompanyID:    companyID,
		BranchID:     c.Param("branchId"),
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		Items:        items,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.audit.Record(ctx, companyID, "sale.create", "sale", saleID, req)
	c.JSON(http.StatusCreated, dto.IDResponse{ID: saleID})
}

// Confirm handles POST .../sales/:saleId/confirm.
func (h *Sales) Confirm(c *gin.Context) {
	var req dto.ConfirmSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewValidation(err.Error()))
		return
	}

	ctx := c.Request.Context()
	companyID := c.Param("companyId")
	saleID := c.Param("saleId")
	if err := h.sales.Confirm(ctx, companyID, c.Param("branchId"), saleID, toQuantity(req.EmptiesReturned)); err != nil {
		_ = c.Error(err)
		return
	}

	h.audit.Record(ctx, companyID, "sale.confirm", "sale", saleID, req)
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "confirmed"})
}

// Cancel handles POST .../sales/:saleId/cancel. Only drafts can be
// canceled.
func (h *Sales) Cancel(c *gin.Context) {
	ctx := c.Request.Context()
	companyID := c.Param("companyId")
	saleID := c.Param("saleId")
	if err := h.sales.Cancel(ctx, companyID, c.Param("branchId"), saleID); err != nil {
		_ = c.Error(err)
		return
	}

	h.audit.Record(ctx, companyID, "sale.cancel", "sale", saleID, nil)
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "canceled"})
}
