// Package transport holds the request and response shapes of the lead-offer
// HTTP API.
package transport

import "converzia_backend/internal/qualification/domain"

type CreateLeadOfferRequest struct {
	Phone      string  `json:"phone" validate:"required,min=6,max=40"`
	Name       string  `json:"name" validate:"omitempty,max=120"`
	OfferID    *string `json:"offerId" validate:"omitempty,uuid"`
	ContactNow bool    `json:"contactNow"`
}

type MapOfferRequest struct {
	OfferID string `json:"offerId" validate:"required,uuid"`
}

type SignalRequest struct {
	Status   string `json:"status" validate:"required,oneof=DISQUALIFIED STOPPED HUMAN_HANDOFF"`
	Category string `json:"category" validate:"required_if=Status DISQUALIFIED,omitempty,max=40"`
	Reason   string `json:"reason" validate:"omitempty,max=500"`
}

type FunnelResponse struct {
	Stages []domain.FunnelStageCount `json:"stages"`
	Total  int                       `json:"total"`
}

type WebhookResponse struct {
	Status      string `json:"status"`
	LeadOfferID string `json:"leadOfferId,omitempty"`
	LeadStatus  string `json:"leadStatus,omitempty"`
}

type InvalidateTemplateRequest struct {
	OfferType string `json:"offerType" validate:"required,max=60"`
}
