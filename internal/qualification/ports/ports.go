// Package ports defines the collaborator contracts of the qualification
// orchestrator. Adapters for WhatsApp, the language model and the scheduler
// implement them; tests use in-memory fakes.
package ports

import (
	"context"
	"time"

	"converzia_backend/internal/qualification/domain"

	"github.com/google/uuid"
)

// FieldExtractor turns a free-text message into a partial field update.
// Implementations return an empty patch rather than guessing.
type FieldExtractor interface {
	Extract(ctx context.Context, message string, current domain.QualificationFields) (domain.FieldsPatch, error)
}

// ReplyInput is what the reply generator sees of the conversation.
type ReplyInput struct {
	LeadName    string
	OfferName   string
	Status      domain.Status
	InboundText string
	Fields      domain.QualificationFields
	Missing     []string
	Ready       bool
	History     []domain.Message
}

// ReplyGenerator produces the next conversational turn.
type ReplyGenerator interface {
	Generate(ctx context.Context, input ReplyInput) (string, error)
}

// Summarizer condenses a conversation for the developer hand-off.
type Summarizer interface {
	Summarize(ctx context.Context, history []domain.Message) (string, error)
}

// MessageSender delivers text to a phone number.
type MessageSender interface {
	SendMessage(ctx context.Context, phone, content string) error
}

// DeliverySink receives leads that reached LEAD_READY. Creating the same
// lead offer's delivery twice returns the first delivery id.
type DeliverySink interface {
	CreateDelivery(ctx context.Context, delivery domain.Delivery) (uuid.UUID, error)
}

// ContactCheck identifies one armed no-response timer. Version is the lead
// offer version persisted when the timer was armed.
type ContactCheck struct {
	LeadOfferID uuid.UUID `json:"leadOfferId"`
	Version     int       `json:"version"`
}

// ContactScheduler arms timers and retries as independent future tasks.
type ContactScheduler interface {
	ScheduleContactCheck(ctx context.Context, check ContactCheck, runAt time.Time) error
	ScheduleDeliveryRetry(ctx context.Context, leadOfferID uuid.UUID, runAt time.Time) error
}
