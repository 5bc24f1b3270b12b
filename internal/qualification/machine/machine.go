// Package machine is the conversation state machine. Each trigger is a pure
// step: it takes the current lead offer plus already-gathered inputs and
// returns the next state, the events to append and the commands the driver
// must execute. It performs no I/O.
package machine

import (
	"errors"
	"fmt"
	"time"

	"converzia_backend/internal/qualification/domain"
	"converzia_backend/internal/qualification/retry"
	"converzia_backend/internal/qualification/scoring"

	"github.com/google/uuid"
)

var (
	// ErrMissingCategory is returned when disqualifying without a category.
	ErrMissingCategory = errors.New("disqualification requires a category")
	// ErrInvalidSignal is returned for signals that are not escalations.
	ErrInvalidSignal = errors.New("signal target must be DISQUALIFIED, STOPPED or HUMAN_HANDOFF")
)

// Decision is the result of one step.
type Decision struct {
	Next     domain.LeadOffer
	Events   []domain.EventRecord
	Commands []Command
	Score    *scoring.Result
	// Ignored explains why the trigger had no effect. When set, Next equals
	// the input and nothing must be persisted.
	Ignored string
}

// StatusChanged reports whether the step moved the lead offer to a new status.
func (d Decision) StatusChanged(from domain.Status) bool {
	return d.Ignored == "" && d.Next.Status != from
}

// Contact carries the display values used to render outbound templates.
type Contact struct {
	LeadName  string
	OfferName string
}

// Machine holds the pure collaborators of the step functions.
type Machine struct {
	engine    scoring.Engine
	policy    retry.Policy
	validator domain.StructValidator
}

// New creates a state machine. validator may be nil, in which case patches
// are only normalised.
func New(policy retry.Policy, validator domain.StructValidator) *Machine {
	return &Machine{engine: scoring.NewEngine(), policy: policy, validator: validator}
}

// Policy exposes the retry policy the machine applies.
func (m *Machine) Policy() retry.Policy {
	return m.policy
}

// Create builds a new lead offer. Without an offer it waits in PENDING_MAPPING.
func (m *Machine) Create(tenantID, leadID uuid.UUID, offerID *uuid.UUID, now time.Time) Decision {
	now = now.UTC()
	lo := domain.LeadOffer{
		ID:              uuid.New(),
		TenantID:        tenantID,
		LeadID:          leadID,
		OfferID:         offerID,
		Status:          domain.StatusPendingMapping,
		Fields:          domain.NewQualificationFields(),
		StatusChangedAt: now,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if offerID != nil {
		lo.Status = domain.StatusToBeContacted
	}
	created := domain.NewEventRecord(lo.ID, domain.EventCreated, domain.ActorSystem, now, map[string]any{
		"status": lo.Status.String(),
	})
	return Decision{Next: lo, Events: []domain.EventRecord{created}}
}

// MapOffer attaches an offer to a lead offer waiting in PENDING_MAPPING.
func (m *Machine) MapOffer(lo domain.LeadOffer, offerID uuid.UUID, now time.Time) (Decision, error) {
	s := newStep(lo, now)
	s.next.OfferID = &offerID
	if err := s.transition(domain.StatusToBeContacted, domain.ActorSystem, "offer_mapped"); err != nil {
		return Decision{}, err
	}
	return s.decision(), nil
}

// ContactAttempt sends the initial outbound message. The attempt is counted
// when the message is handed to the driver, whether or not delivery succeeds.
func (m *Machine) ContactAttempt(lo domain.LeadOffer, contact Contact, now time.Time) (Decision, error) {
	s := newStep(lo, now)
	initial := m.policy.Initial(s.now)
	if err := s.transition(domain.StatusContacted, domain.ActorBot, "initial_contact"); err != nil {
		return Decision{}, err
	}
	s.recordAttempt(initial)
	s.send(retry.Render(initial.Message, contact.LeadName, contact.OfferName), PurposeInitialContact)
	s.schedule(initial.NextAttemptAt)
	return s.decision(), nil
}

// ContactCheck runs when the no-response timer fires. armedVersion is the
// version the timer was armed at; any later write makes the timer stale.
func (m *Machine) ContactCheck(lo domain.LeadOffer, armedVersion int, contact Contact, now time.Time) (Decision, error) {
	if lo.Version != armedVersion {
		return ignored(lo, fmt.Sprintf("stale contact check: armed at version %d, current %d", armedVersion, lo.Version)), nil
	}

	s := newStep(lo, now)
	switch {
	case lo.Status == domain.StatusReactivation:
		s.next.NextAttemptAt = nil
		if err := s.transition(domain.StatusCooling, domain.ActorSystem, "no_response_after_reactivation"); err != nil {
			return Decision{}, err
		}
		return s.decision(), nil

	case lo.Status.AcceptsContactRetry():
		decision := m.policy.Evaluate(lo.ContactAttempts, s.now)
		if decision.Action == retry.ActionCool {
			s.next.NextAttemptAt = nil
			if err := s.transition(domain.StatusCooling, domain.ActorSystem, "retry_ceiling_reached"); err != nil {
				return Decision{}, err
			}
			return s.decision(), nil
		}
		s.recordAttempt(decision)
		s.send(retry.Render(decision.Message, contact.LeadName, contact.OfferName), PurposeFollowUp)
		s.schedule(decision.NextAttemptAt)
		return s.decision(), nil

	default:
		return ignored(lo, fmt.Sprintf("status %s does not accept contact checks", lo.Status)), nil
	}
}

// InboundInput gathers everything an inbound step depends on. Patch is the
// extraction result, empty when extraction failed.
type InboundInput struct {
	LeadOffer domain.LeadOffer
	Text      string
	Patch     domain.FieldsPatch
	Offer     *domain.Offer
	Template  scoring.Template
	Metrics   *domain.ConversationMetrics
	Now       time.Time
}

// AcceptsInbound reports whether an inbound message is processed at all in s.
// Extraction is only worth running when it does.
func AcceptsInbound(s domain.Status) bool {
	return !s.IsTerminal() && s != domain.StatusHumanHandoff
}

// Inbound handles a message from the lead: engagement, field merge, the
// completeness gate, scoring and the LEAD_READY decision, then the reply.
func (m *Machine) Inbound(in InboundInput) (Decision, error) {
	lo := in.LeadOffer
	if !AcceptsInbound(lo.Status) {
		return ignored(lo, fmt.Sprintf("status %s does not accept inbound messages", lo.Status)), nil
	}

	s := newStep(lo, in.Now)
	inboundAt := s.now
	s.next.LastInboundAt = &inboundAt

	if lo.Status == domain.StatusLeadReady {
		s.commands = append(s.commands, GenerateReply{InboundText: in.Text, Status: lo.Status, Ready: true})
		return s.decision(), nil
	}

	switch lo.Status {
	case domain.StatusToBeContacted, domain.StatusContacted, domain.StatusCooling, domain.StatusReactivation:
		if s.next.FirstResponseAt == nil {
			s.next.FirstResponseAt = &inboundAt
		}
		if err := s.transition(domain.StatusEngaged, domain.ActorLead, "lead_replied"); err != nil {
			return Decision{}, err
		}
	}

	m.merge(s, in.Patch)

	if s.next.Status == domain.StatusEngaged {
		if err := s.transition(domain.StatusQualifying, domain.ActorBot, "qualification_started"); err != nil {
			return Decision{}, err
		}
	}

	gate := domain.EvaluateGate(s.next.Fields)
	if gate.Ready && (s.next.Status == domain.StatusQualifying || s.next.Status == domain.StatusScored) {
		if err := m.score(s, in); err != nil {
			return Decision{}, err
		}
	}

	s.commands = append(s.commands, GenerateReply{
		InboundText: in.Text,
		Status:      s.next.Status,
		Missing:     gate.Missing,
		Ready:       s.next.Status == domain.StatusLeadReady,
	})
	if s.next.Status.AcceptsContactRetry() {
		checkAt := s.now.Add(m.intervalOrDefault())
		s.next.NextAttemptAt = &checkAt
		s.schedule(checkAt)
	}
	return s.decision(), nil
}

func (m *Machine) merge(s *step, patch domain.FieldsPatch) {
	clean, dropped := domain.SanitizePatch(m.validator, patch)
	if len(dropped) > 0 {
		s.event(domain.EventPatchRejected, domain.ActorSystem, map[string]any{"fields": dropped})
	}
	merged, changed := domain.Merge(s.next.Fields, clean, s.now)
	if len(changed) == 0 {
		return
	}
	s.next.Fields = merged
	s.event(domain.EventFieldsMerged, domain.ActorLead, map[string]any{"changed": changed})
}

func (m *Machine) score(s *step, in InboundInput) error {
	result := m.engine.Score(scoring.Input{
		Fields:   s.next.Fields,
		Offer:    in.Offer,
		Template: in.Template,
		Metrics:  in.Metrics,
	})
	s.score = &result

	if s.next.Status == domain.StatusQualifying {
		if err := s.transition(domain.StatusScored, domain.ActorSystem, "completeness_gate_passed"); err != nil {
			return err
		}
	}

	total := result.Score
	scoredAt := s.now
	s.next.ScoreTotal = &total
	s.next.ScoreBreakdown = result.Breakdown
	s.next.ScoredAt = &scoredAt
	s.event(domain.EventScored, domain.ActorSystem, map[string]any{
		"score":          result.Score,
		"breakdown":      result.Breakdown,
		"tiers":          result.Tiers,
		"threshold":      result.Threshold,
		"isReady":        result.IsReady,
		"summary":        result.Explanation.Summary,
		"templateSource": result.TemplateSource,
		"scoreVersion":   result.Version,
	})

	if !result.IsReady {
		return nil
	}
	qualifiedAt := s.now
	s.next.QualifiedAt = &qualifiedAt
	s.next.NextAttemptAt = nil
	if err := s.transition(domain.StatusLeadReady, domain.ActorSystem, "score_above_threshold"); err != nil {
		return err
	}
	s.commands = append(s.commands, CreateDelivery{Score: result})
	return nil
}

// Reactivate reopens a cooled lead offer with one reactivation message.
func (m *Machine) Reactivate(lo domain.LeadOffer, contact Contact, now time.Time) (Decision, error) {
	s := newStep(lo, now)
	if err := s.transition(domain.StatusReactivation, domain.ActorSystem, "reactivation"); err != nil {
		return Decision{}, err
	}
	message := m.policy.Reactivation(lo.ReactivationCount)
	s.next.ReactivationCount++
	attemptAt := s.now
	next := s.now.Add(m.intervalOrDefault())
	s.next.LastAttemptAt = &attemptAt
	s.next.NextAttemptAt = &next
	s.event(domain.EventReactivated, domain.ActorSystem, map[string]any{"reactivationCount": s.next.ReactivationCount})
	s.send(retry.Render(message, contact.LeadName, contact.OfferName), PurposeReactivation)
	s.schedule(next)
	return s.decision(), nil
}

// Signal is an explicit escalation request.
type Signal struct {
	Target   domain.Status
	Category *domain.DisqualificationCategory
	Reason   string
	Actor    domain.Actor
}

// Signal moves a lead offer to DISQUALIFIED, STOPPED or HUMAN_HANDOFF.
func (m *Machine) Signal(lo domain.LeadOffer, sig Signal, now time.Time) (Decision, error) {
	switch sig.Target {
	case domain.StatusDisqualified:
		if sig.Category == nil {
			return Decision{}, ErrMissingCategory
		}
	case domain.StatusStopped, domain.StatusHumanHandoff:
	default:
		return Decision{}, ErrInvalidSignal
	}
	actor := sig.Actor
	if actor == "" {
		actor = domain.ActorSystem
	}

	s := newStep(lo, now)
	s.next.NextAttemptAt = nil
	if sig.Target == domain.StatusDisqualified {
		category := *sig.Category
		s.next.DisqualificationCategory = &category
		if sig.Reason != "" {
			reason := sig.Reason
			s.next.DisqualificationReason = &reason
		}
	}
	reason := sig.Reason
	if reason == "" {
		reason = "signal"
	}
	if err := s.transition(sig.Target, actor, reason); err != nil {
		return Decision{}, err
	}
	return s.decision(), nil
}

// DeliveryCreated records a successful hand-off to the tenant.
func (m *Machine) DeliveryCreated(lo domain.LeadOffer, deliveryID uuid.UUID, now time.Time) (Decision, error) {
	s := newStep(lo, now)
	if err := s.transition(domain.StatusSentToDeveloper, domain.ActorSystem, "delivery_created"); err != nil {
		return Decision{}, err
	}
	s.event(domain.EventDeliveryCreated, domain.ActorSystem, map[string]any{"deliveryId": deliveryID.String()})
	return s.decision(), nil
}

func (m *Machine) intervalOrDefault() time.Duration {
	if m.policy.Interval > 0 {
		return m.policy.Interval
	}
	return retry.DefaultInterval
}

func ignored(lo domain.LeadOffer, reason string) Decision {
	return Decision{Next: lo, Ignored: reason}
}
