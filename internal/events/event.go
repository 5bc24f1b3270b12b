// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"converzia_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
)

// =============================================================================
// Qualification Domain Events
// =============================================================================

// LeadOfferStatusChanged is published after a status transition is persisted.
type LeadOfferStatusChanged struct {
	BaseEvent
	LeadOfferID uuid.UUID `json:"leadOfferId"`
	TenantID    uuid.UUID `json:"tenantId"`
	From        string    `json:"from"`
	To          string    `json:"to"`
}

func (e LeadOfferStatusChanged) EventName() string { return "qualification.lead_offer.status_changed" }

// LeadOfferScored is published whenever a lead offer receives a (re-)score.
type LeadOfferScored struct {
	BaseEvent
	LeadOfferID    uuid.UUID      `json:"leadOfferId"`
	TenantID       uuid.UUID      `json:"tenantId"`
	Score          int            `json:"score"`
	Breakdown      map[string]int `json:"breakdown"`
	IsReady        bool           `json:"isReady"`
	TemplateSource string         `json:"templateSource"`
}

func (e LeadOfferScored) EventName() string { return "qualification.lead_offer.scored" }

// LeadReady is published when a lead offer reaches LEAD_READY.
type LeadReady struct {
	BaseEvent
	LeadOfferID uuid.UUID  `json:"leadOfferId"`
	TenantID    uuid.UUID  `json:"tenantId"`
	LeadID      uuid.UUID  `json:"leadId"`
	OfferID     *uuid.UUID `json:"offerId,omitempty"`
	Score       int        `json:"score"`
}

func (e LeadReady) EventName() string { return "qualification.lead_offer.ready" }

// DeliveryCreated is published once the lead has been handed to the developer.
type DeliveryCreated struct {
	BaseEvent
	LeadOfferID uuid.UUID `json:"leadOfferId"`
	TenantID    uuid.UUID `json:"tenantId"`
	DeliveryID  uuid.UUID `json:"deliveryId"`
}

func (e DeliveryCreated) EventName() string { return "qualification.delivery.created" }
