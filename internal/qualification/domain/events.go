package domain

import (
	"time"

	"github.com/google/uuid"
)

// Actor identifies who caused an event.
type Actor string

const (
	ActorBot    Actor = "BOT"
	ActorLead   Actor = "LEAD"
	ActorSystem Actor = "SYSTEM"
)

// EventType names an entry in the lead offer event log.
type EventType string

const (
	EventCreated          EventType = "created"
	EventStatusChanged    EventType = "status_changed"
	EventFieldsMerged     EventType = "fields_merged"
	EventScored           EventType = "scored"
	EventContactAttempted EventType = "contact_attempted"
	EventReactivated      EventType = "reactivated"
	EventDeliveryCreated  EventType = "delivery_created"
	EventPatchRejected    EventType = "patch_rejected"
)

// EventRecord is one immutable entry of the append-only event log.
type EventRecord struct {
	ID          uuid.UUID      `json:"id"`
	LeadOfferID uuid.UUID      `json:"leadOfferId"`
	Type        EventType      `json:"type"`
	Actor       Actor          `json:"actor"`
	Payload     map[string]any `json:"payload,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// NewEventRecord builds an event for the given lead offer.
func NewEventRecord(leadOfferID uuid.UUID, eventType EventType, actor Actor, at time.Time, payload map[string]any) EventRecord {
	return EventRecord{
		ID:          uuid.New(),
		LeadOfferID: leadOfferID,
		Type:        eventType,
		Actor:       actor,
		Payload:     payload,
		CreatedAt:   at.UTC(),
	}
}
