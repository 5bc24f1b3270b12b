package qualification

import (
	"context"
	"errors"
	"strings"
	"time"

	"converzia_backend/internal/qualification/domain"
	"converzia_backend/internal/qualification/machine"
	"converzia_backend/internal/qualification/ports"
	"converzia_backend/internal/qualification/repository"
	"converzia_backend/internal/qualification/scoring"
	"converzia_backend/platform/apperr"
	"converzia_backend/platform/sanitize"

	"github.com/google/uuid"
)

// CreateParams describes a new lead offer.
type CreateParams struct {
	TenantID uuid.UUID
	Phone    string
	Name     string
	OfferID  *uuid.UUID
	// ContactNow sends the initial message right away when the offer is known.
	ContactNow bool
}

// Create registers the lead (by tenant and phone) and opens a lead offer for it.
func (o *Orchestrator) Create(ctx context.Context, params CreateParams) (domain.LeadOffer, error) {
	e164, err := o.phones.E164(params.Phone)
	if err != nil {
		return domain.LeadOffer{}, apperr.Validation("invalid phone number").WithDetails(map[string]string{"phone": err.Error()})
	}
	if params.OfferID != nil {
		offer, err := o.store.GetOffer(ctx, *params.OfferID)
		if err != nil {
			return domain.LeadOffer{}, o.mapStoreError("load offer", err)
		}
		if offer.TenantID != params.TenantID {
			return domain.LeadOffer{}, apperr.NotFound("offer not found")
		}
	}

	lead, err := o.store.EnsureLead(ctx, domain.LeadContact{
		TenantID: params.TenantID,
		Phone:    e164,
		Name:     sanitize.Name(params.Name),
	})
	if err != nil {
		return domain.LeadOffer{}, o.mapStoreError("ensure lead", err)
	}

	now := o.now()
	d := o.machine.Create(params.TenantID, lead.ID, params.OfferID, now)
	if lead.Name != "" {
		name := lead.Name
		d.Next.Fields, _ = domain.Merge(d.Next.Fields, domain.FieldsPatch{Name: &name}, now)
	}
	if err := o.store.CreateLeadOffer(ctx, d.Next, d.Events); err != nil {
		return domain.LeadOffer{}, o.mapStoreError("create lead offer", err)
	}
	o.publish(ctx, domain.LeadOffer{}, d.Next, d)

	if params.ContactNow && d.Next.Status == domain.StatusToBeContacted {
		return o.StartContact(ctx, d.Next.ID)
	}
	return d.Next, nil
}

// Get returns a lead offer owned by tenantID.
func (o *Orchestrator) Get(ctx context.Context, tenantID, id uuid.UUID) (domain.LeadOffer, error) {
	lo, err := o.store.GetLeadOfferForTenant(ctx, tenantID, id)
	if err != nil {
		return domain.LeadOffer{}, o.mapStoreError("get lead offer", err)
	}
	return lo, nil
}

// Detail is a lead offer with its conversation and event log.
type Detail struct {
	LeadOffer domain.LeadOffer           `json:"leadOffer"`
	Messages  []domain.Message           `json:"messages"`
	Events    []domain.EventRecord       `json:"events"`
	Metrics   domain.ConversationMetrics `json:"metrics"`
}

// Detail loads a lead offer owned by tenantID together with its history.
func (o *Orchestrator) Detail(ctx context.Context, tenantID, id uuid.UUID) (Detail, error) {
	lo, err := o.Get(ctx, tenantID, id)
	if err != nil {
		return Detail{}, err
	}
	messages, err := o.store.ListMessages(ctx, id)
	if err != nil {
		return Detail{}, o.mapStoreError("list messages", err)
	}
	evts, err := o.store.ListEvents(ctx, id)
	if err != nil {
		return Detail{}, o.mapStoreError("list events", err)
	}
	return Detail{
		LeadOffer: lo,
		Messages:  messages,
		Events:    evts,
		Metrics:   domain.ComputeConversationMetrics(messages),
	}, nil
}

// MapOffer attaches an offer to a lead offer waiting in PENDING_MAPPING.
func (o *Orchestrator) MapOffer(ctx context.Context, id, offerID uuid.UUID) (domain.LeadOffer, error) {
	unlock := o.locks.Lock(id)
	defer unlock()

	lo, err := o.load(ctx, id)
	if err != nil {
		return domain.LeadOffer{}, err
	}
	offer, err := o.store.GetOffer(ctx, offerID)
	if err != nil {
		return domain.LeadOffer{}, o.mapStoreError("load offer", err)
	}
	if offer.TenantID != lo.TenantID {
		return domain.LeadOffer{}, apperr.NotFound("offer not found")
	}

	d, err := o.machine.MapOffer(lo, offerID, o.now())
	if err != nil {
		return domain.LeadOffer{}, o.mapStoreError("map offer", err)
	}
	return o.commit(ctx, lo, d, contact{offer: &offer})
}

// StartContact sends the initial message of a TO_BE_CONTACTED lead offer.
func (o *Orchestrator) StartContact(ctx context.Context, id uuid.UUID) (domain.LeadOffer, error) {
	unlock := o.locks.Lock(id)
	defer unlock()

	lo, err := o.load(ctx, id)
	if err != nil {
		return domain.LeadOffer{}, err
	}
	c, err := o.loadContact(ctx, lo)
	if err != nil {
		return domain.LeadOffer{}, err
	}
	d, err := o.machine.ContactAttempt(lo, c.machineContact(), o.now())
	if err != nil {
		return domain.LeadOffer{}, o.mapStoreError("contact attempt", err)
	}
	return o.commit(ctx, lo, d, c)
}

// InboundMessage is a message received from a lead.
type InboundMessage struct {
	Phone      string
	Text       string
	ExternalID string
	ReceivedAt time.Time
}

// InboundResult reports what HandleInbound did.
type InboundResult struct {
	LeadOffer domain.LeadOffer
	Duplicate bool
	Ignored   bool
}

// HandleInbound routes a lead's message to its active lead offer and runs the
// qualification loop. Redelivered messages (same external id) are no-ops.
func (o *Orchestrator) HandleInbound(ctx context.Context, msg InboundMessage) (InboundResult, error) {
	text := sanitize.Message(msg.Text)
	if text == "" {
		return InboundResult{}, apperr.Validation("empty message")
	}
	e164, err := o.phones.E164(msg.Phone)
	if err != nil {
		return InboundResult{}, apperr.Validation("invalid phone number")
	}
	found, err := o.store.FindActiveByPhone(ctx, e164)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return InboundResult{}, apperr.NotFound("no active lead offer for phone")
		}
		return InboundResult{}, o.mapStoreError("find lead offer", err)
	}

	unlock := o.locks.Lock(found.ID)
	defer unlock()

	lo, err := o.load(ctx, found.ID)
	if err != nil {
		return InboundResult{}, err
	}

	var externalID *string
	if id := strings.TrimSpace(msg.ExternalID); id != "" {
		exists, err := o.store.MessageExists(ctx, lo.ID, id)
		if err != nil {
			return InboundResult{}, o.mapStoreError("check message", err)
		}
		if exists {
			return InboundResult{LeadOffer: lo, Duplicate: true}, nil
		}
		externalID = &id
	}

	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = o.now()
	}
	inbound := domain.Message{
		ID:          uuid.New(),
		LeadOfferID: lo.ID,
		Direction:   domain.DirectionInbound,
		Content:     text,
		ExternalID:  externalID,
		Delivered:   true,
		CreatedAt:   receivedAt.UTC(),
	}

	if !machine.AcceptsInbound(lo.Status) {
		o.appendMessage(ctx, inbound)
		o.log.Info("inbound message stored without processing", "leadOfferId", lo.ID.String(), "status", string(lo.Status))
		return InboundResult{LeadOffer: lo, Ignored: true}, nil
	}

	c, err := o.loadContact(ctx, lo)
	if err != nil {
		return InboundResult{}, err
	}

	var patch domain.FieldsPatch
	if lo.Status != domain.StatusLeadReady {
		patch = o.extract(ctx, lo, text)
	}

	history, err := o.store.ListMessages(ctx, lo.ID)
	if err != nil {
		o.log.DatabaseError("list messages", err)
	}
	convMetrics := domain.ComputeConversationMetrics(append(history, inbound))

	in := machine.InboundInput{
		LeadOffer: lo,
		Text:      text,
		Patch:     patch,
		Offer:     c.offer,
		Metrics:   &convMetrics,
		Now:       o.now(),
	}
	if o.templates != nil {
		in.Template = o.templates.Resolve(ctx, lo.TenantID, c.offer.TypeOrDefault())
	} else {
		in.Template = scoring.FallbackTemplate()
	}

	d, err := o.machine.Inbound(in)
	if err != nil {
		return InboundResult{}, o.mapStoreError("inbound", err)
	}
	next, err := o.commit(ctx, lo, d, c, inbound)
	if err != nil {
		return InboundResult{}, err
	}
	return InboundResult{LeadOffer: next}, nil
}

// extract runs the field extractor. Any failure yields an empty patch.
func (o *Orchestrator) extract(ctx context.Context, lo domain.LeadOffer, text string) domain.FieldsPatch {
	if o.collab.Extractor == nil || strings.TrimSpace(text) == "" {
		return domain.FieldsPatch{}
	}
	extractCtx, cancel := context.WithTimeout(ctx, o.timeouts.Extraction)
	defer cancel()

	start := time.Now()
	patch, err := o.collab.Extractor.Extract(extractCtx, text, lo.Fields)
	observe("extractor", start)
	if err != nil {
		o.collaboratorFailed("extractor", lo.ID, err)
		return domain.FieldsPatch{}
	}
	return patch
}

// HandleContactCheck runs an armed no-response timer. Timers armed before a
// later write are ignored.
func (o *Orchestrator) HandleContactCheck(ctx context.Context, check ports.ContactCheck) (domain.LeadOffer, error) {
	unlock := o.locks.Lock(check.LeadOfferID)
	defer unlock()

	lo, err := o.load(ctx, check.LeadOfferID)
	if err != nil {
		return domain.LeadOffer{}, err
	}
	c, err := o.loadContact(ctx, lo)
	if err != nil {
		return domain.LeadOffer{}, err
	}
	d, err := o.machine.ContactCheck(lo, check.Version, c.machineContact(), o.now())
	if err != nil {
		return domain.LeadOffer{}, o.mapStoreError("contact check", err)
	}
	return o.commit(ctx, lo, d, c)
}

// Reactivate sends one reactivation message to a COOLING lead offer.
func (o *Orchestrator) Reactivate(ctx context.Context, id uuid.UUID) (domain.LeadOffer, error) {
	unlock := o.locks.Lock(id)
	defer unlock()

	lo, err := o.load(ctx, id)
	if err != nil {
		return domain.LeadOffer{}, err
	}
	c, err := o.loadContact(ctx, lo)
	if err != nil {
		return domain.LeadOffer{}, err
	}
	d, err := o.machine.Reactivate(lo, c.machineContact(), o.now())
	if err != nil {
		return domain.LeadOffer{}, o.mapStoreError("reactivate", err)
	}
	return o.commit(ctx, lo, d, c)
}

// ApplySignal escalates a lead offer to DISQUALIFIED, STOPPED or HUMAN_HANDOFF.
func (o *Orchestrator) ApplySignal(ctx context.Context, id uuid.UUID, sig machine.Signal) (domain.LeadOffer, error) {
	unlock := o.locks.Lock(id)
	defer unlock()

	lo, err := o.load(ctx, id)
	if err != nil {
		return domain.LeadOffer{}, err
	}
	d, err := o.machine.Signal(lo, sig, o.now())
	if err != nil {
		return domain.LeadOffer{}, o.mapStoreError("signal", err)
	}
	return o.commit(ctx, lo, d, contact{})
}

// CompleteDelivery retries the hand-off of a LEAD_READY lead offer. It is a
// no-op for lead offers that were already delivered.
func (o *Orchestrator) CompleteDelivery(ctx context.Context, id uuid.UUID) (domain.LeadOffer, error) {
	unlock := o.locks.Lock(id)
	defer unlock()

	lo, err := o.load(ctx, id)
	if err != nil {
		return domain.LeadOffer{}, err
	}
	switch lo.Status {
	case domain.StatusSentToDeveloper:
		return lo, nil
	case domain.StatusLeadReady:
		return o.deliver(ctx, lo, "")
	default:
		return domain.LeadOffer{}, apperr.Conflict("lead offer is not ready for delivery").WithOp("complete delivery")
	}
}

// Funnel aggregates a tenant's lead offers by funnel stage.
func (o *Orchestrator) Funnel(ctx context.Context, tenantID uuid.UUID) ([]domain.FunnelStageCount, error) {
	counts, err := o.store.CountByStatus(ctx, tenantID)
	if err != nil {
		return nil, o.mapStoreError("count by status", err)
	}
	return domain.AggregateFunnel(counts), nil
}

// ReactivateCooling reactivates COOLING lead offers idle since before cutoff.
// It returns how many were reactivated; individual failures are logged.
func (o *Orchestrator) ReactivateCooling(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	ids, err := o.store.ListCoolingBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, o.mapStoreError("list cooling", err)
	}
	done := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if _, err := o.Reactivate(ctx, id); err != nil {
			o.log.Warn("reactivation failed", "leadOfferId", id.String(), "error", err)
			if markErr := o.store.MarkReactivationFailed(ctx, id, o.now()); markErr != nil {
				o.log.DatabaseError("mark reactivation failed", markErr)
			}
			continue
		}
		done++
	}
	return done, nil
}
