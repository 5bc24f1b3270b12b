// Package qualification drives lead offers through the qualification state
// machine. The machine decides; the Orchestrator loads state, persists each
// decision under optimistic concurrency and then executes its commands
// against the collaborators.
package qualification

import (
	"context"
	"errors"
	"time"

	"converzia_backend/internal/events"
	"converzia_backend/internal/qualification/domain"
	"converzia_backend/internal/qualification/machine"
	"converzia_backend/internal/qualification/ports"
	"converzia_backend/internal/qualification/repository"
	"converzia_backend/internal/qualification/scoring"
	"converzia_backend/platform/apperr"
	"converzia_backend/platform/logger"
	"converzia_backend/platform/metrics"
	"converzia_backend/platform/phone"

	"github.com/google/uuid"
)

// deliveryRetryDelay is how long a failed delivery waits before the retry task runs.
const deliveryRetryDelay = time.Minute

// Timeouts bound every collaborator call.
type Timeouts struct {
	Extraction time.Duration
	Reply      time.Duration
	Summary    time.Duration
	Send       time.Duration
}

// DefaultTimeouts are used for zero fields.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Extraction: 20 * time.Second,
		Reply:      20 * time.Second,
		Summary:    30 * time.Second,
		Send:       10 * time.Second,
	}
}

func (t Timeouts) withDefaults() Timeouts {
	d := DefaultTimeouts()
	if t.Extraction <= 0 {
		t.Extraction = d.Extraction
	}
	if t.Reply <= 0 {
		t.Reply = d.Reply
	}
	if t.Summary <= 0 {
		t.Summary = d.Summary
	}
	if t.Send <= 0 {
		t.Send = d.Send
	}
	return t
}

// Collaborators are the external ports the orchestrator calls. Extractor,
// Replies and Summarizer may be nil; the fallbacks are used instead.
type Collaborators struct {
	Extractor  ports.FieldExtractor
	Replies    ports.ReplyGenerator
	Summarizer ports.Summarizer
	Sender     ports.MessageSender
	Deliveries ports.DeliverySink
	Scheduler  ports.ContactScheduler
}

// Orchestrator executes state machine decisions.
type Orchestrator struct {
	store     repository.LeadOfferStore
	machine   *machine.Machine
	templates scoring.TemplateResolver
	collab    Collaborators
	eventBus  events.Bus
	phones    phone.Normalizer
	timeouts  Timeouts
	log       *logger.Logger

	locks *keyedMutex
	now   func() time.Time
}

// NewOrchestrator wires the driver. templates may be nil, in which case every
// lead offer is scored with the fallback template.
func NewOrchestrator(store repository.LeadOfferStore, m *machine.Machine, templates scoring.TemplateResolver, collab Collaborators, eventBus events.Bus, phones phone.Normalizer, timeouts Timeouts, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		machine:   m,
		templates: templates,
		collab:    collab,
		eventBus:  eventBus,
		phones:    phones,
		timeouts:  timeouts.withDefaults(),
		log:       log,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

// contact is everything needed to talk to the lead of a lead offer.
type contact struct {
	lead  domain.LeadContact
	offer *domain.Offer
}

func (c contact) machineContact() machine.Contact {
	out := machine.Contact{LeadName: c.lead.Name}
	if c.offer != nil {
		out.OfferName = c.offer.Name
	}
	return out
}

func (o *Orchestrator) load(ctx context.Context, id uuid.UUID) (domain.LeadOffer, error) {
	lo, err := o.store.GetLeadOffer(ctx, id)
	if err != nil {
		return domain.LeadOffer{}, o.mapStoreError("load lead offer", err)
	}
	return lo, nil
}

func (o *Orchestrator) loadContact(ctx context.Context, lo domain.LeadOffer) (contact, error) {
	lead, err := o.store.GetLeadContact(ctx, lo.LeadID)
	if err != nil {
		return contact{}, o.mapStoreError("load lead", err)
	}
	c := contact{lead: lead}
	if lo.OfferID != nil {
		offer, err := o.store.GetOffer(ctx, *lo.OfferID)
		if err != nil {
			o.log.Warn("offer unavailable, continuing without it", "error", err, "offerId", lo.OfferID.String())
		} else {
			c.offer = &offer
		}
	}
	return c, nil
}

// commit persists a decision and then runs its commands. Commands never run
// for a decision that was not persisted.
func (o *Orchestrator) commit(ctx context.Context, lo domain.LeadOffer, d machine.Decision, c contact, messages ...domain.Message) (domain.LeadOffer, error) {
	if d.Ignored != "" {
		o.log.Debug("trigger ignored", "leadOfferId", lo.ID.String(), "status", string(lo.Status), "reason", d.Ignored)
		for _, msg := range messages {
			o.appendMessage(ctx, msg)
		}
		return lo, nil
	}

	version, err := o.store.ApplyTransition(ctx, repository.TransitionParams{
		Next:            d.Next,
		ExpectedVersion: lo.Version,
		Events:          d.Events,
		Messages:        messages,
	})
	if err != nil {
		return domain.LeadOffer{}, o.mapStoreError("apply transition", err)
	}
	next := d.Next
	next.Version = version

	o.publish(ctx, lo, next, d)

	for _, cmd := range d.Commands {
		switch cmd := cmd.(type) {
		case machine.SendMessage:
			o.send(ctx, next, c, cmd.Text, cmd.Purpose)
		case machine.GenerateReply:
			o.reply(ctx, next, c, cmd)
		case machine.ScheduleContactCheck:
			o.scheduleContactCheck(ctx, next, cmd.RunAt)
		case machine.CreateDelivery:
			delivered, err := o.deliver(ctx, next, cmd.Score.Explanation.Summary)
			if err != nil {
				return next, err
			}
			next = delivered
		}
	}
	return next, nil
}

func (o *Orchestrator) publish(ctx context.Context, prev, next domain.LeadOffer, d machine.Decision) {
	at := o.now()
	if next.Status != prev.Status {
		for _, ev := range d.Events {
			if ev.Type == domain.EventStatusChanged {
				from, _ := ev.Payload["from"].(string)
				to, _ := ev.Payload["to"].(string)
				o.log.StatusTransition(next.ID.String(), from, to, string(ev.Actor))
				metrics.StatusTransitions.WithLabelValues(from, to).Inc()
			}
		}
		if o.eventBus != nil {
			o.eventBus.Publish(ctx, events.LeadOfferStatusChanged{
				BaseEvent:   events.NewBaseEventAt(at),
				LeadOfferID: next.ID,
				TenantID:    next.TenantID,
				From:        string(prev.Status),
				To:          string(next.Status),
			})
		}
	}

	if d.Score != nil {
		if o.eventBus != nil {
			o.eventBus.Publish(ctx, events.LeadOfferScored{
				BaseEvent:      events.NewBaseEventAt(at),
				LeadOfferID:    next.ID,
				TenantID:       next.TenantID,
				Score:          d.Score.Score,
				Breakdown:      d.Score.Breakdown,
				IsReady:        d.Score.IsReady,
				TemplateSource: d.Score.TemplateSource,
			})
		}
	}

	if o.eventBus != nil && next.Status == domain.StatusLeadReady && prev.Status != domain.StatusLeadReady {
		score := 0
		if next.ScoreTotal != nil {
			score = *next.ScoreTotal
		}
		o.eventBus.Publish(ctx, events.LeadReady{
			BaseEvent:   events.NewBaseEventAt(at),
			LeadOfferID: next.ID,
			TenantID:    next.TenantID,
			LeadID:      next.LeadID,
			OfferID:     next.OfferID,
			Score:       score,
		})
	}
}

// mapStoreError turns repository and machine errors into application errors.
func (o *Orchestrator) mapStoreError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("lead offer not found").WithOp(op)
	case errors.Is(err, repository.ErrLeadNotFound):
		return apperr.NotFound("lead not found").WithOp(op)
	case errors.Is(err, repository.ErrOfferNotFound):
		return apperr.NotFound("offer not found").WithOp(op)
	case errors.Is(err, repository.ErrVersionConflict):
		metrics.VersionConflicts.Inc()
		return apperr.Wrap(apperr.KindConflict, "lead offer was modified concurrently", err).WithOp(op)
	case errors.Is(err, domain.ErrIllegalTransition):
		return apperr.Wrap(apperr.KindConflict, err.Error(), err).WithOp(op)
	case errors.Is(err, machine.ErrMissingCategory), errors.Is(err, machine.ErrInvalidSignal):
		return apperr.Wrap(apperr.KindValidation, err.Error(), err).WithOp(op)
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	o.log.DatabaseError(op, err)
	return apperr.Wrap(apperr.KindInternal, "storage failure", err).WithOp(op)
}

func (o *Orchestrator) collaboratorFailed(name string, leadOfferID uuid.UUID, err error) {
	o.log.CollaboratorFailure(name, leadOfferID.String(), err)
	metrics.CollaboratorFailures.WithLabelValues(name).Inc()
}

func observe(name string, start time.Time) {
	metrics.CollaboratorDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}
