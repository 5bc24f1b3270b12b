package qualification

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"converzia_backend/internal/events"
	"converzia_backend/internal/qualification/domain"
	"converzia_backend/platform/logger"
	"converzia_backend/platform/metrics"

	"github.com/google/uuid"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, stage domain.FunnelStage) float64 {
	t.Helper()
	var m dto.Metric
	if err := metrics.FunnelStageEntries.WithLabelValues(string(stage)).Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestStatusChangesFeedFunnelEntries(t *testing.T) {
	bus := events.NewInMemoryBus(nil)
	RegisterHandlers(bus, logger.Nop())
	ctx := context.Background()
	id := uuid.New()

	qualifiedBefore := counterValue(t, domain.FunnelQualified)
	conversationBefore := counterValue(t, domain.FunnelInConversation)

	publish := func(from, to domain.Status) {
		t.Helper()
		err := bus.PublishSync(ctx, events.LeadOfferStatusChanged{
			BaseEvent: events.NewBaseEvent(), LeadOfferID: id, From: string(from), To: string(to),
		})
		if err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	publish(domain.StatusContacted, domain.StatusQualifying)
	publish(domain.StatusQualifying, domain.StatusLeadReady)

	if got := counterValue(t, domain.FunnelInConversation) - conversationBefore; got != 0 {
		t.Fatalf("a move inside a stage must not count as an entry, got %v", got)
	}
	if got := counterValue(t, domain.FunnelQualified) - qualifiedBefore; got != 1 {
		t.Fatalf("expected one entry into the qualified stage, got %v", got)
	}
}

func TestScoredEventsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	bus := events.NewInMemoryBus(nil)
	RegisterHandlers(bus, logger.NewWithWriter("development", &buf))

	err := bus.PublishSync(context.Background(), events.LeadOfferScored{
		BaseEvent: events.NewBaseEvent(), LeadOfferID: uuid.New(), Score: 81, IsReady: true, TemplateSource: "fallback",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !strings.Contains(buf.String(), "lead offer scored") || !strings.Contains(buf.String(), "score=81") {
		t.Fatalf("expected a scored audit line, got %s", buf.String())
	}
}
