package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"melowms/internal/domain/inventory"
)

// Inventory exposes branch stock levels.
type Inventory struct {
	inventory *inventory.Service
}

// NewInventory creates the inventory handler.
func NewInventory(svc *inventory.Service) *Inventory {
	return &Inventory{inventory: svc}
}

// List handles GET /companies/:companyId/branches/:branchId/inventory.
func (h *Inventory) List(c *gin.Context) {
	list, err := h.inventory.List(c.Request.Context(), c.Param("companyId"), c.Param("branchId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get handles GET .../inventory/:itemId.
func (h *Inventory) Get(c *gin.Context) {
	inv, err := h.inventory.Get(c.Request.Context(), c.Param("companyId"), c.Param("branchId"), c.Param("itemId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, inv)
}
