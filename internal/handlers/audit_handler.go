package handlers

import (
	"net/http"

	"guidia_backend/internal/repositories"
	"guidia_backend/internal/services"
	"guidia_backend/internal/services/dto"
	"guidia_backend/internal/validator"

	"github.com/gin-gonic/gin"
)

// AuditHandler is read-only. There is no write endpoint: audit entries are
// recorded internally by the actions they describe.
type AuditHandler struct {
	*BaseHandler
	auditService services.AuditService
}

func NewAuditHandler(v *validator.Validator, auditService services.AuditService) *AuditHandler {
	return &AuditHandler{
		BaseHandler:  NewBaseHandler(v),
		auditService: auditService,
	}
}

// GET /api/admin/audit
func (h *AuditHandler) Query(c *gin.Context) {
	var criteria repositories.AuditCriteria
	if !h.BindAndValidate_Query(c, &criteria) {
		return
	}

	entries, err := h.auditService.Query(criteria)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	resp := dto.AuditListResponse{
		Entries: make([]dto.AuditEntryResponse, 0, len(entries)),
		Total:   len(entries),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, dto.AuditEntryResponse{
			ID:        e.ID,
			ActorID:   e.ActorID,
			Event:     e.Event,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}
