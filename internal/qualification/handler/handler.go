package handler

import (
	"context"
	"net/http"

	"converzia_backend/internal/qualification"
	"converzia_backend/internal/qualification/domain"
	"converzia_backend/internal/qualification/machine"
	"converzia_backend/internal/qualification/transport"
	"converzia_backend/platform/httpkit"
	"converzia_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid lead offer id"
)

// Service is the orchestrator surface exposed over HTTP.
type Service interface {
	Create(ctx context.Context, params qualification.CreateParams) (domain.LeadOffer, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (domain.LeadOffer, error)
	Detail(ctx context.Context, tenantID, id uuid.UUID) (qualification.Detail, error)
	MapOffer(ctx context.Context, id, offerID uuid.UUID) (domain.LeadOffer, error)
	StartContact(ctx context.Context, id uuid.UUID) (domain.LeadOffer, error)
	ApplySignal(ctx context.Context, id uuid.UUID, sig machine.Signal) (domain.LeadOffer, error)
	CompleteDelivery(ctx context.Context, id uuid.UUID) (domain.LeadOffer, error)
	Funnel(ctx context.Context, tenantID uuid.UUID) ([]domain.FunnelStageCount, error)
	HandleInbound(ctx context.Context, msg qualification.InboundMessage) (qualification.InboundResult, error)
}

var _ Service = (*qualification.Orchestrator)(nil)

// Handler serves the tenant-scoped lead-offer commands.
type Handler struct {
	svc       Service
	val       *validator.Validator
	templates TemplateCache
}

func New(svc Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/offer", h.MapOffer)
	rg.POST("/:id/contact", h.StartContact)
	rg.POST("/:id/signal", h.ApplySignal)
	rg.POST("/:id/deliver", h.Deliver)
}

// Create handles POST /api/v1/lead-offers
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadOfferRequest
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

	params := qualification.CreateParams{
		TenantID:   identity.TenantID(),
		Phone:      req.Phone,
		Name:       req.Name,
		ContactNow: req.ContactNow,
	}
	if req.OfferID != nil {
		offerID := uuid.MustParse(*req.OfferID)
		params.OfferID = &offerID
	}

	lo, err := h.svc.Create(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, lo)
}

// GetByID handles GET /api/v1/lead-offers/:id
func (h *Handler) GetByID(c *gin.Context) {
	identity, id, ok := h.scoped(c)
	if !ok {
		return
	}
	detail, err := h.svc.Detail(c.Request.Context(), identity.TenantID(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, detail)
}

// MapOffer handles POST /api/v1/lead-offers/:id/offer
func (h *Handler) MapOffer(c *gin.Context) {
	var req transport.MapOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	_, id, ok := h.owned(c)
	if !ok {
		return
	}
	lo, err := h.svc.MapOffer(c.Request.Context(), id, uuid.MustParse(req.OfferID))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lo)
}

// StartContact handles POST /api/v1/lead-offers/:id/contact
func (h *Handler) StartContact(c *gin.Context) {
	_, id, ok := h.owned(c)
	if !ok {
		return
	}
	lo, err := h.svc.StartContact(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lo)
}

// ApplySignal handles POST /api/v1/lead-offers/:id/signal
func (h *Handler) ApplySignal(c *gin.Context) {
	var req transport.SignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	target, err := domain.ParseStatus(req.Status)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, map[string]string{"status": "oneof"})
		return
	}
	sig := machine.Signal{Target: target, Reason: req.Reason, Actor: domain.ActorSystem}
	if req.Category != "" {
		category, err := domain.ParseDisqualificationCategory(req.Category)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, map[string]string{"category": "oneof"})
			return
		}
		sig.Category = &category
	}

	_, id, ok := h.owned(c)
	if !ok {
		return
	}
	lo, err := h.svc.ApplySignal(c.Request.Context(), id, sig)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lo)
}

// Deliver handles POST /api/v1/lead-offers/:id/deliver
func (h *Handler) Deliver(c *gin.Context) {
	_, id, ok := h.owned(c)
	if !ok {
		return
	}
	lo, err := h.svc.CompleteDelivery(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lo)
}

// Funnel handles GET /api/v1/funnel
func (h *Handler) Funnel(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	stages, err := h.svc.Funnel(c.Request.Context(), identity.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}
	total := 0
	for _, stage := range stages {
		total += stage.Total
	}
	httpkit.OK(c, transport.FunnelResponse{Stages: stages, Total: total})
}

// scoped resolves the caller and the :id path parameter.
func (h *Handler) scoped(c *gin.Context) (httpkit.Identity, uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return nil, uuid.Nil, false
	}
	return identity, id, true
}

// owned is scoped plus a check that the lead offer belongs to the caller's
// tenant. The id-based orchestrator commands are only reached through it.
func (h *Handler) owned(c *gin.Context) (httpkit.Identity, uuid.UUID, bool) {
	identity, id, ok := h.scoped(c)
	if !ok {
		return nil, uuid.Nil, false
	}
	if _, err := h.svc.Get(c.Request.Context(), identity.TenantID(), id); httpkit.HandleError(c, err) {
		return nil, uuid.Nil, false
	}
	return identity, id, true
}
