package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"melowms/internal/core/apperror"
	"melowms/internal/domain/audit"
)

const defaultAuditLimit = 100

// Audit exposes the company audit trail.
type Audit struct {
	audit *audit.Service
}

// NewAudit creates the audit handler.
func NewAudit(svc *audit.Service) *Audit {
	return &Audit{audit: svc}
}

type auditEntryResponse struct {
	Operation   string          `json:"operation"`
	Entity      string          `json:"entity"`
	EntityID    string          `json:"entityId"`
	UserID      string          `json:"userId,omitempty"`
	Branch      string          `json:"branch,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedTime time.Time       `json:"createdTime"`
}

// List handles GET /companies/:companyId/audit?limit=N. Entries come
// back newest first with payloads decompressed.
func (h *Audit) List(c *gin.Context) {
	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			_ = c.Error(apperror.NewValidation("limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := h.audit.List(c.Request.Context(), c.Param("companyId"), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		payload, err := h.audit.Payload(e)
		if err != nil {
			_ = c.Error(err)
			return
		}
		out = append(out, auditEntryResponse{
			Operation:   e.Operation,
			Entity:      e.Entity,
			EntityID:    e.EntityID,
			UserID:      e.UserID,
			Branch:      e.Branch,
			Payload:     payload,
			CreatedTime: e.CreatedTime,
		})
	}
	c.JSON(http.StatusOK, out)
}
