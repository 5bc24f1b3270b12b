package handler

import (
	"context"
	"net/http"

	"converzia_backend/internal/qualification/transport"
	"converzia_backend/platform/httpkit"
	"converzia_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TemplateCache drops cached scoring templates after they are edited.
type TemplateCache interface {
	Invalidate(ctx context.Context, tenantID uuid.UUID, offerType string)
}

// InvalidateTemplate handles POST /api/v1/admin/scoring-templates/invalidate
func (h *Handler) InvalidateTemplate(c *gin.Context) {
	var req transport.InvalidateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	h.templates.Invalidate(c.Request.Context(), identity.TenantID(), req.OfferType)
	c.Status(http.StatusNoContent)
}
