package qualification

import (
	"context"
	"errors"
	"strings"
	"time"

	"converzia_backend/internal/events"
	"converzia_backend/internal/qualification/domain"
	"converzia_backend/internal/qualification/machine"
	"converzia_backend/internal/qualification/ports"
	"converzia_backend/internal/qualification/repository"

	"github.com/google/uuid"
)

// send delivers text and records it. A failed send is absorbed: the message
// is stored as undelivered and the retry timer already armed covers it.
func (o *Orchestrator) send(ctx context.Context, lo domain.LeadOffer, c contact, text string, purpose machine.Purpose) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	delivered := false
	if o.collab.Sender != nil && c.lead.Phone != "" {
		sendCtx, cancel := context.WithTimeout(ctx, o.timeouts.Send)
		start := time.Now()
		err := o.collab.Sender.SendMessage(sendCtx, c.lead.Phone, text)
		observe("sender", start)
		cancel()
		if err != nil {
			o.collaboratorFailed("sender", lo.ID, err)
		} else {
			delivered = true
		}
	}

	o.log.Debug("outbound message", "leadOfferId", lo.ID.String(), "purpose", string(purpose), "delivered", delivered)
	o.appendMessage(ctx, domain.Message{
		ID:          uuid.New(),
		LeadOfferID: lo.ID,
		Direction:   domain.DirectionOutbound,
		Content:     text,
		Delivered:   delivered,
		CreatedAt:   o.now().UTC(),
	})
}

func (o *Orchestrator) appendMessage(ctx context.Context, msg domain.Message) {
	if err := o.store.AppendMessage(ctx, msg); err != nil && !errors.Is(err, repository.ErrDuplicateMessage) {
		o.log.DatabaseError("append message", err)
	}
}

// reply asks the generator for the next turn and falls back to a fixed
// question about the first missing field.
func (o *Orchestrator) reply(ctx context.Context, lo domain.LeadOffer, c contact, cmd machine.GenerateReply) {
	text := ""
	if o.collab.Replies != nil {
		history, err := o.store.ListMessages(ctx, lo.ID)
		if err != nil {
			o.log.DatabaseError("list messages", err)
		}
		input := ports.ReplyInput{
			LeadName:    c.lead.Name,
			Status:      cmd.Status,
			InboundText: cmd.InboundText,
			Fields:      lo.Fields,
			Missing:     cmd.Missing,
			Ready:       cmd.Ready,
			History:     history,
		}
		if c.offer != nil {
			input.OfferName = c.offer.Name
		}

		replyCtx, cancel := context.WithTimeout(ctx, o.timeouts.Reply)
		start := time.Now()
		generated, err := o.collab.Replies.Generate(replyCtx, input)
		observe("reply", start)
		cancel()
		if err != nil {
			o.collaboratorFailed("reply", lo.ID, err)
		} else {
			text = generated
		}
	}
	if strings.TrimSpace(text) == "" {
		text = fallbackReply(cmd.Ready, cmd.Missing)
	}
	o.send(ctx, lo, c, text, machine.PurposeReply)
}

// scheduleContactCheck arms the no-response timer stamped with the version
// just persisted.
func (o *Orchestrator) scheduleContactCheck(ctx context.Context, lo domain.LeadOffer, runAt time.Time) {
	if o.collab.Scheduler == nil {
		return
	}
	check := ports.ContactCheck{LeadOfferID: lo.ID, Version: lo.Version}
	if err := o.collab.Scheduler.ScheduleContactCheck(ctx, check, runAt); err != nil {
		o.collaboratorFailed("scheduler", lo.ID, err)
	}
}

// deliver hands a LEAD_READY offer to the developer and records
// SENT_TO_DEVELOPER. Sink failures are absorbed into a delivery retry task;
// the lead offer stays LEAD_READY.
func (o *Orchestrator) deliver(ctx context.Context, lo domain.LeadOffer, explanation string) (domain.LeadOffer, error) {
	if o.collab.Deliveries == nil {
		return lo, nil
	}

	delivery := domain.Delivery{
		LeadOfferID:    lo.ID,
		TenantID:       lo.TenantID,
		LeadID:         lo.LeadID,
		OfferID:        lo.OfferID,
		Fields:         lo.Fields,
		ScoreBreakdown: lo.ScoreBreakdown,
		Summary:        o.summarize(ctx, lo, explanation),
		CreatedAt:      o.now().UTC(),
	}
	if lo.ScoreTotal != nil {
		delivery.Score = *lo.ScoreTotal
	}

	start := time.Now()
	deliveryID, err := o.collab.Deliveries.CreateDelivery(ctx, delivery)
	observe("delivery", start)
	if err != nil {
		o.collaboratorFailed("delivery", lo.ID, err)
		if o.collab.Scheduler != nil {
			if err := o.collab.Scheduler.ScheduleDeliveryRetry(ctx, lo.ID, o.now().Add(deliveryRetryDelay)); err != nil {
				o.collaboratorFailed("scheduler", lo.ID, err)
			}
		}
		return lo, nil
	}

	d, err := o.machine.DeliveryCreated(lo, deliveryID, o.now())
	if err != nil {
		return lo, o.mapStoreError("delivery created", err)
	}
	next, err := o.commit(ctx, lo, d, contact{})
	if err != nil {
		return lo, err
	}
	if o.eventBus != nil {
		o.eventBus.Publish(ctx, events.DeliveryCreated{
			BaseEvent:   events.NewBaseEventAt(o.now()),
			LeadOfferID: lo.ID,
			TenantID:    lo.TenantID,
			DeliveryID:  deliveryID,
		})
	}
	return next, nil
}

func (o *Orchestrator) summarize(ctx context.Context, lo domain.LeadOffer, explanation string) string {
	history, err := o.store.ListMessages(ctx, lo.ID)
	if err != nil {
		o.log.DatabaseError("list messages", err)
		return fallbackSummary(lo, explanation, -1)
	}
	if o.collab.Summarizer != nil {
		sumCtx, cancel := context.WithTimeout(ctx, o.timeouts.Summary)
		start := time.Now()
		summary, err := o.collab.Summarizer.Summarize(sumCtx, history)
		observe("summarizer", start)
		cancel()
		if err != nil {
			o.collaboratorFailed("summarizer", lo.ID, err)
		} else if strings.TrimSpace(summary) != "" {
			return summary
		}
	}
	return fallbackSummary(lo, explanation, len(history))
}
