package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"melowms/internal/domain/stats"
)

// Stats exposes the aggregated year/month/day totals.
type Stats struct {
	stats *stats.Service
}

// NewStats creates the stats handler.
func NewStats(svc *stats.Service) *Stats {
	return &Stats{stats: svc}
}

// Branch handles GET /companies/:companyId/branches/:branchId/stats.
func (h *Stats) Branch(c *gin.Context) {
	doc, err := h.stats.GetBranchStats(c.Request.Context(), c.Param("companyId"), c.Param("branchId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Company handles GET /companies/:companyId/stats.
func (h *Stats) Company(c *gin.Context) {
	doc, err := h.stats.GetCompanyStats(c.Request.Context(), c.Param("companyId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, doc)
}
