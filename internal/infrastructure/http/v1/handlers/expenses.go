package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"melowms/internal/core/apperror"
	appctx "melowms/internal/core/context"
	"melowms/internal/domain/audit"
	"melowms/internal/domain/expenses"
	"melowms/internal/infrastructure/http/v1/dto"
)

// Expenses handles the branch expense surface.
type Expenses struct {
	expenses *expenses.Service
	audit    *audit.Service
}

// NewExpenses creates the expenses handler.
func NewExpenses(svc *expenses.Service, aud *audit.Service) *Expenses {
	return &Expenses{expenses: svc, audit: aud}
}

// List handles GET /companies/:companyId/branches/:branchId/expenses.
func (h *Expenses) List(c *gin.Context) {
	list, err := h.expenses.List(c.Request.Context(), c.Param("companyId"), c.Param("branchId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Create handles POST .../expenses. The expense stays PENDING until a
// manager approves it.
func (h *Expenses) Create(c *gin.Context) {
	var req dto.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewValidation(err.Error()))
		return
	}

	ctx := c.Request.Context()
	companyID := c.Param("companyId")

	requestedBy := ""
	if user := appctx.GetUser(ctx); user != nil {
		requestedBy = user.UserID
	}

	expenseID, err := h.expenses.Create(ctx, expenses.CreateInput{
		CompanyID:   companyID,
		BranchID:    c.Param("branchId"),
		Title:       req.Title,
		Description: req.Description,
		Amount:      toMoney(req.Amount),
		Category:    req.Category,
		RequestedBy: requestedBy,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.audit.Record(ctx, companyID, "expense.create", "expense", expenseID, req)
	c.JSON(http.StatusCreated, dto.IDResponse{ID: expenseID})
}

// Approve handles POST .../expenses/:expenseId/approve.
func (h *Expenses) Approve(c *gin.Context) {
	ctx := c.Request.Context()
	companyID := c.Param("companyId")
	expenseID := c.Param("expenseId")

	approvedBy := ""
	if user := appctx.GetUser(ctx); user != nil {
		approvedBy = user.UserID
	}

	if err := h.expenses.Approve(ctx, companyID, c.Param("branchId"), expenseID, approvedBy); err != nil {
		_ = c.Error(err)
		return
	}

	h.audit.Record(ctx, companyID, "expense.approve", "expense", expenseID, nil)
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "approved"})
}

// Revoke handles POST .../expenses/:expenseId/revoke. Reverses an
// approval and backs its amount out of the branch totals.
func (h *Expenses) Revoke(c *gin.Context) {
	ctx := c.Request.Context()
	companyID := c.Param("companyId")
	expenseID := c.Param("expenseId")

	if err := h.expenses.Revoke(ctx, companyID, c.Param("branchId"), expenseID); err != nil {
		_ = c.Error(err)
		return
	}

	h.audit.Record(ctx, companyID, "expense.revoke", "expense", expenseID, nil)
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "revoked"})
}
