// Package retry decides whether an unanswered lead gets another follow-up or
// moves to cooling, and picks the outbound text for each attempt.
package retry

import (
	"strings"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultInterval    = 24 * time.Hour
)

// Action is what the policy asks the state machine to do.
type Action string

const (
	ActionFollowUp Action = "FOLLOW_UP"
	ActionCool     Action = "COOL"
)

// Policy holds the contact ceiling, the spacing between attempts and the
// message sequence. Messages[0] is the initial contact; Messages[n] the n-th
// follow-up. Indexes past the end reuse the last message.
type Policy struct {
	MaxAttempts          int
	Interval             time.Duration
	Messages             []string
	ReactivationMessages []string
}

// Decision is the outcome of evaluating an unanswered contact.
type Decision struct {
	Action        Action
	Attempt       int
	Message       string
	NextAttemptAt time.Time
}

// DefaultMessages is the Spanish message sequence used when none is configured.
var DefaultMessages = []string{
	"¡Hola{{name}}! Te escribimos por tu consulta sobre {{offer}}. ¿Seguís buscando? Contame qué estás necesitando y te ayudo.",
	"Hola{{name}}, ¿pudiste ver mi mensaje? Me encantaría ayudarte con tu búsqueda en {{offer}}.",
	"Hola{{name}}, te escribo por última vez por {{offer}}. Si te interesa, respondé este mensaje y seguimos.",
}

// DefaultReactivationMessages reopen a cooled conversation.
var DefaultReactivationMessages = []string{
	"¡Hola{{name}}! Hace un tiempo consultaste por {{offer}}. ¿Seguís buscando propiedad? Tenemos novedades que te pueden interesar.",
}

// DefaultPolicy returns the policy with default ceiling, interval and messages.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:          DefaultMaxAttempts,
		Interval:             DefaultInterval,
		Messages:             DefaultMessages,
		ReactivationMessages: DefaultReactivationMessages,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Interval <= 0 {
		p.Interval = DefaultInterval
	}
	if len(p.Messages) == 0 {
		p.Messages = DefaultMessages
	}
	if len(p.ReactivationMessages) == 0 {
		p.ReactivationMessages = DefaultReactivationMessages
	}
	return p
}

// Initial returns the first contact decision.
func (p Policy) Initial(now time.Time) Decision {
	p = p.withDefaults()
	return Decision{
		Action:        ActionFollowUp,
		Attempt:       1,
		Message:       pick(p.Messages, 0),
		NextAttemptAt: now.Add(p.Interval),
	}
}

// Evaluate decides what happens after attempts unanswered contacts. Once the
// ceiling is reached the answer is always ActionCool.
func (p Policy) Evaluate(attempts int, now time.Time) Decision {
	p = p.withDefaults()
	if attempts >= p.MaxAttempts {
		return Decision{Action: ActionCool, Attempt: attempts}
	}
	return Decision{
		Action:        ActionFollowUp,
		Attempt:       attempts + 1,
		Message:       pick(p.Messages, attempts),
		NextAttemptAt: now.Add(p.Interval),
	}
}

// Reactivation returns the message for the reactivationCount-th reactivation
// (zero based). Reactivations have no ceiling.
func (p Policy) Reactivation(reactivationCount int) string {
	p = p.withDefaults()
	return pick(p.ReactivationMessages, reactivationCount)
}

func pick(messages []string, index int) string {
	if index < 0 {
		index = 0
	}
	if index >= len(messages) {
		index = len(messages) - 1
	}
	return messages[index]
}

// Render fills the {{name}} and {{offer}} placeholders. An unknown name drops
// the placeholder together with its leading space.
func Render(message, name, offer string) string {
	name = strings.TrimSpace(name)
	if name != "" {
		name = " " + name
	}
	offer = strings.TrimSpace(offer)
	if offer == "" {
		offer = "la propiedad"
	}
	return strings.NewReplacer("{{name}}", name, "{{offer}}", offer).Replace(message)
}
