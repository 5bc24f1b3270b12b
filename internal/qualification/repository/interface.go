package repository

import (
	"context"
	"time"

	"converzia_backend/internal/qualification/domain"
	"converzia_backend/internal/qualification/scoring"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces
// =====================================

// LeadOfferReader provides read-only access to lead offers.
type LeadOfferReader interface {
	GetLeadOffer(ctx context.Context, id uuid.UUID) (domain.LeadOffer, error)
	GetLeadOfferForTenant(ctx context.Context, tenantID, id uuid.UUID) (domain.LeadOffer, error)
	FindActiveByPhone(ctx context.Context, phone string) (domain.LeadOffer, error)
	ListCoolingBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

// LeadOfferWriter persists lead offers together with their event log.
type LeadOfferWriter interface {
	CreateLeadOffer(ctx context.Context, lo domain.LeadOffer, events []domain.EventRecord) error
	ApplyTransition(ctx context.Context, params TransitionParams) (int, error)
	MarkReactivationFailed(ctx context.Context, id uuid.UUID, at time.Time) error
}

// EventLogReader reads the append-only event log.
type EventLogReader interface {
	ListEvents(ctx context.Context, leadOfferID uuid.UUID) ([]domain.EventRecord, error)
}

// LeadStore reads and upserts leads and reads offers.
type LeadStore interface {
	GetLeadContact(ctx context.Context, leadID uuid.UUID) (domain.LeadContact, error)
	EnsureLead(ctx context.Context, lead domain.LeadContact) (domain.LeadContact, error)
	GetOffer(ctx context.Context, offerID uuid.UUID) (domain.Offer, error)
}

// MessageStore keeps the conversation history.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg domain.Message) error
	MessageExists(ctx context.Context, leadOfferID uuid.UUID, externalID string) (bool, error)
	ListMessages(ctx context.Context, leadOfferID uuid.UUID) ([]domain.Message, error)
}

// DeliveryStore records hand-offs to the developer.
type DeliveryStore interface {
	CreateDelivery(ctx context.Context, delivery domain.Delivery) (uuid.UUID, error)
}

// FunnelReader provides status counts for funnel reporting.
type FunnelReader interface {
	CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[domain.Status]int, error)
}

// TemplateStore reads persisted scoring templates.
type TemplateStore interface {
	TenantTemplate(ctx context.Context, tenantID uuid.UUID, offerType string) (scoring.Template, error)
	GlobalTemplate(ctx context.Context, offerType string) (scoring.Template, error)
}

// LeadOfferStore is everything the orchestrator persists through.
type LeadOfferStore interface {
	LeadOfferReader
	LeadOfferWriter
	EventLogReader
	LeadStore
	MessageStore
	DeliveryStore
	FunnelReader
}

// TransitionParams describes one optimistic write of a lead offer.
type TransitionParams struct {
	Next            domain.LeadOffer
	ExpectedVersion int
	Events          []domain.EventRecord
	Messages        []domain.Message
}

// Ensure Repository implements all interfaces.
var (
	_ LeadOfferStore = (*Repository)(nil)
	_ TemplateStore  = (*Repository)(nil)
)
