package handler

import (
	"errors"
	"io"
	"net/http"

	"converzia_backend/internal/qualification"
	"converzia_backend/internal/qualification/transport"
	"converzia_backend/internal/whatsapp"
	"converzia_backend/platform/apperr"
	"converzia_backend/platform/httpkit"
	"converzia_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 256 << 10

// WebhookHandler receives inbound WhatsApp messages from the gateway.
type WebhookHandler struct {
	svc Service
	log *logger.Logger
}

func NewWebhookHandler(svc Service, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{svc: svc, log: log}
}

// HandleWhatsApp handles POST /webhooks/whatsapp. Events that cannot be
// routed are acknowledged with 200 so the gateway does not redeliver them;
// only server-side failures ask for a retry.
func (h *WebhookHandler) HandleWhatsApp(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	in, err := whatsapp.ParseWebhook(body)
	if errors.Is(err, whatsapp.ErrUnsupportedEvent) {
		httpkit.OK(c, transport.WebhookResponse{Status: "ignored"})
		return
	}
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	res, err := h.svc.HandleInbound(c.Request.Context(), qualification.InboundMessage{
		Phone:      in.Phone,
		Text:       in.Text,
		ExternalID: in.ExternalID,
		ReceivedAt: in.ReceivedAt,
	})
	switch {
	case apperr.Is(err, apperr.KindNotFound), apperr.Is(err, apperr.KindValidation):
		h.log.Info("inbound message not routed", "reason", err.Error())
		httpkit.OK(c, transport.WebhookResponse{Status: "unrouted"})
		return
	case httpkit.HandleError(c, err):
		return
	}

	status := "processed"
	switch {
	case res.Duplicate:
		status = "duplicate"
	case res.Ignored:
		status = "stored"
	}
	httpkit.OK(c, transport.WebhookResponse{
		Status:      status,
		LeadOfferID: res.LeadOffer.ID.String(),
		LeadStatus:  string(res.LeadOffer.Status),
	})
}
