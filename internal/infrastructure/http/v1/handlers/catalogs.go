package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"melowms/internal/core/apperror"
	"melowms/internal/domain/catalogs"
	"melowms/internal/domain/fillables"
	"melowms/internal/infrastructure/http/v1/dto"
)

// Catalogs handles the lookup-entity CRUD surface.
type Catalogs struct {
	catalogs  *catalogs.Service
	fillables *fillables.Service
}

// NewCatalogs creates the catalogs handler.
func NewCatalogs(cat *catalogs.Service, fil *fillables.Service) *Catalogs {
	return &Catalogs{catalogs: cat, fillables: fil}
}

// GetCompany handles GET /companies/:companyId.
func (h *Catalogs) GetCompany(c *gin.Context) {
	company, err := h.catalogs.GetCompany(c.Request.Context(), c.Param("companyId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, company)
}

// ListBranches handles GET /companies/:companyId/branches.
func (h *Catalogs) ListBranches(c *gin.Context) {
	branches, err := h.catalogs.Branches.List(c.Request.Context(), c.Param("companyId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, branches)
}

// CreateBranch handles POST /companies/:companyId/branches.
func (h *Catalogs) CreateBranch(c *gin.Context) {
	var req dto.BranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewValidation(err.Error()))
		return
	}

	id, err := h.catalogs.Branches.Create(c.Request.Context(), c.Param("companyId"), catalogs.Branch{
		Name:        req.Name,
		Location:    req.Location,
		Phone:       req.Phone,
		IsMain:      req.IsMain,
		CreatedTime: time.Now().UTC(),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, dto.IDResponse{ID: id})
}

// ListCustomers handles GET /companies/:companyId/customers.
func (h *Catalogs) ListCustomers(c *gin.Context) {
	customers, err := h.catalogs.Customers.List(c.Request.Context(), c.Param("companyId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

// CreateCustomer handles POST /companies/:companyId/customers. A customer
// with a fillable group gets their empties account opened alongside.
func (h *Catalogs) CreateCustomer(c *gin.Context) {
	var req dto.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewValidation(err.Error()))
		return
	}

	companyID := c.Param("companyId")
	id, err := h.catalogs.Customers.Create(c.Request.Context(), companyID, catalogs.Customer{
		Name:          req.Name,
		Phone:         req.Phone,
		TIN:           req.TIN,
		Email:         req.Email,
		FillableGroup: req.FillableGroup,
		CreatedTime:   time.Now().UTC(),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	if req.FillableGroup != "" {
		if err := h.fillables.Open(c.Request.Context(), companyID, id, req.FillableGroup); err != nil {
			_ = c.Error(err)
			return
		}
	}

	c.JSON(http.StatusCreated, dto.IDResponse{ID: id})
}

// GetCustomerFillables handles GET /companies/:companyId/customers/:customerId/fillables.
func (h *Catalogs) GetCustomerFillables(c *gin.Context) {
	acc, err := h.fillables.Get(c.Request.Context(), c.Param("companyId"), c.Param("customerId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if acc == nil {
		_ = c.Error(apperror.NewNotFound("fillables account", c.Param("customerId")))
		return
	}
	c.JSON(http.StatusOK, acc)
}

// ListSuppliers handles GET /companies/:companyId/suppliers.
func (h *Catalogs) ListSuppliers(c *gin.Context) {
	suppliers, err := h.catalogs.Suppliers.List(c.Request.Context(), c.Param("companyId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, suppliers)
}

// CreateSupplier handles POST /companies/:companyId/suppliers.
func (h *Catalogs) CreateSupplier(c *gin.Context) {
	var req dto.SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewValidation(err.Error()))
		return
	}

	id, err := h.catalogs.Suppliers.Create(c.Request.Context(), c.Param("companyId"), catalogs.Supplier{
		Name:        req.Name,
		Phone:       req.Phone,
		TIN:         req.TIN,
		Email:       req.Email,
		CreatedTime: time.Now().UTC(),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, dto.IDResponse{ID: id})
}

// ListItems handles GET /companies/:companyId/items.
func (h *Catalogs) ListItems(c *gin.Context) {
	items, err := h.catalogs.Items.List(c.Request.Context(), c.Param("companyId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// CreateItem handles POST /companies/:companyId/items.
func (h *Catalogs) CreateItem(c *gin.Context) {
	var req dto.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewValidation(err.Error()))
		return
	}
	if req.IsFillable && req.FillableGroup == "" {
		_ = c.Error(apperror.NewValidation("fillable items need a fillable group"))
		return
	}

	id, err := h.catalogs.Items.Create(c.Request.Context(), c.Param("companyId"), catalogs.Item{
		Name:          req.Name,
		Code:          req.Code,
		Unit:          req.Unit,
		SalePrice:     toMoney(req.SalePrice),
		PurchasePrice: toMoney(req.PurchasePrice),
		TaxCode:       req.TaxCode,
		IsFillable:    req.IsFillable,
		FillableGroup: req.FillableGroup,
		CreatedTime:   time.Now().UTC(),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, dto.IDResponse{ID: id})
}
