package qualification

import (
	"context"

	"converzia_backend/internal/events"
	"converzia_backend/internal/qualification/domain"
	"converzia_backend/platform/logger"
	"converzia_backend/platform/metrics"
)

// RegisterHandlers subscribes the funnel metrics and the audit log to the
// qualification events.
func RegisterHandlers(bus events.Bus, log *logger.Logger) {
	bus.Subscribe(events.LeadOfferStatusChanged{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		e, ok := event.(events.LeadOfferStatusChanged)
		if !ok {
			return nil
		}
		from, _ := domain.StageOf(domain.Status(e.From))
		to, known := domain.StageOf(domain.Status(e.To))
		if known && to != from {
			metrics.FunnelStageEntries.WithLabelValues(string(to)).Inc()
		}
		return nil
	}))

	bus.Subscribe(events.LeadOfferScored{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		e, ok := event.(events.LeadOfferScored)
		if !ok {
			return nil
		}
		metrics.ScoresComputed.WithLabelValues(e.TemplateSource).Observe(float64(e.Score))
		log.WithLeadOffer(e.LeadOfferID.String()).Debug("lead offer scored",
			"tenantId", e.TenantID,
			"score", e.Score,
			"ready", e.IsReady,
			"templateSource", e.TemplateSource,
		)
		return nil
	}))

	bus.Subscribe(events.LeadReady{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		e, ok := event.(events.LeadReady)
		if !ok {
			return nil
		}
		log.WithLeadOffer(e.LeadOfferID.String()).Info("lead ready for delivery",
			"tenantId", e.TenantID,
			"leadId", e.LeadID,
			"score", e.Score,
		)
		return nil
	}))

	bus.Subscribe(events.DeliveryCreated{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		e, ok := event.(events.DeliveryCreated)
		if !ok {
			return nil
		}
		log.WithLeadOffer(e.LeadOfferID.String()).Info("lead delivered",
			"tenantId", e.TenantID,
			"deliveryId", e.DeliveryID,
		)
		return nil
	}))
}
