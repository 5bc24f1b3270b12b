package machine

import (
	"time"

	"converzia_backend/internal/qualification/domain"
	"converzia_backend/internal/qualification/scoring"
)

// Purpose tags outbound messages for logs and metrics.
type Purpose string

const (
	PurposeInitialContact Purpose = "initial_contact"
	PurposeFollowUp       Purpose = "follow_up"
	PurposeReactivation   Purpose = "reactivation"
	PurposeReply          Purpose = "reply"
)

// Command is a side effect the driver executes after persisting a decision.
type Command interface {
	CommandName() string
}

// SendMessage delivers fixed text to the lead.
type SendMessage struct {
	Text    string
	Purpose Purpose
}

// GenerateReply asks the reply collaborator for the next conversational turn
// and sends it.
type GenerateReply struct {
	InboundText string
	Status      domain.Status
	Missing     []string
	Ready       bool
}

// ScheduleContactCheck arms the no-response timer. The driver stamps the
// persisted version so that a timer armed before a later write is ignored.
type ScheduleContactCheck struct {
	RunAt time.Time
}

// CreateDelivery hands a LEAD_READY offer to the tenant.
type CreateDelivery struct {
	Score scoring.Result
}

func (SendMessage) CommandName() string          { return "send_message" }
func (GenerateReply) CommandName() string        { return "generate_reply" }
func (ScheduleContactCheck) CommandName() string { return "schedule_contact_check" }
func (CreateDelivery) CommandName() string       { return "create_delivery" }
