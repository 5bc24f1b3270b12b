package machine

import (
	"errors"
	"testing"
	"time"

	"converzia_backend/internal/qualification/domain"
	"converzia_backend/internal/qualification/retry"
	"converzia_backend/internal/qualification/scoring"
	"converzia_backend/platform/validator"

	"github.com/google/uuid"
)

func strPtr(v string) *string     { return &v }
func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

var t0 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newMachine() *Machine {
	return New(retry.DefaultPolicy(), validator.New())
}

func palermoOffer() *domain.Offer {
	return &domain.Offer{ID: uuid.New(), Name: "Torre Palermo", PriceFrom: floatPtr(95000), Zone: "Palermo"}
}

func fullPatch() domain.FieldsPatch {
	return domain.FieldsPatch{
		Name:     strPtr("Ana"),
		Budget:   &domain.BudgetPatch{Min: floatPtr(100000)},
		Zones:    []string{"Palermo"},
		Timing:   strPtr("inmediato"),
		Purpose:  strPtr("vivienda"),
		Bedrooms: intPtr(2),
	}
}

func commandsOf[T Command](d Decision) []T {
	var out []T
	for _, c := range d.Commands {
		if typed, ok := c.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

func statusPath(d Decision) []domain.Status {
	var path []domain.Status
	for _, e := range d.Events {
		if e.Type == domain.EventStatusChanged {
			path = append(path, domain.Status(e.Payload["to"].(string)))
		}
	}
	return path
}

func contactedLeadOffer(t *testing.T, m *Machine) domain.LeadOffer {
	t.Helper()
	offerID := uuid.New()
	created := m.Create(uuid.New(), uuid.New(), &offerID, t0)
	d, err := m.ContactAttempt(created.Next, Contact{LeadName: "Ana", OfferName: "Torre Palermo"}, t0)
	if err != nil {
		t.Fatalf("contact attempt: %v", err)
	}
	d.Next.Version = 2
	return d.Next
}

func TestCreateWaitsForOfferMapping(t *testing.T) {
	m := newMachine()
	d := m.Create(uuid.New(), uuid.New(), nil, t0)
	if d.Next.Status != domain.StatusPendingMapping || len(d.Events) != 1 || d.Events[0].Type != domain.EventCreated {
		t.Fatalf("unexpected creation: %+v", d)
	}

	mapped, err := m.MapOffer(d.Next, uuid.New(), t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("map offer: %v", err)
	}
	if mapped.Next.Status != domain.StatusToBeContacted || mapped.Next.OfferID == nil {
		t.Fatalf("expected TO_BE_CONTACTED with offer, got %s", mapped.Next.Status)
	}

	if _, err := m.MapOffer(mapped.Next, uuid.New(), t0); !errors.Is(err, domain.ErrIllegalTransition) {
		t.Fatalf("mapping twice must be illegal, got %v", err)
	}
}

func TestContactAttemptSendsInitialMessage(t *testing.T) {
	m := newMachine()
	offerID := uuid.New()
	created := m.Create(uuid.New(), uuid.New(), &offerID, t0)

	d, err := m.ContactAttempt(created.Next, Contact{LeadName: "Ana", OfferName: "Torre Palermo"}, t0)
	if err != nil {
		t.Fatalf("contact attempt: %v", err)
	}
	if d.Next.Status != domain.StatusContacted || d.Next.ContactAttempts != 1 {
		t.Fatalf("expected CONTACTED with one attempt, got %s/%d", d.Next.Status, d.Next.ContactAttempts)
	}
	sends := commandsOf[SendMessage](d)
	if len(sends) != 1 || sends[0].Purpose != PurposeInitialContact {
		t.Fatalf("expected one initial message, got %+v", sends)
	}
	checks := commandsOf[ScheduleContactCheck](d)
	if len(checks) != 1 || !checks[0].RunAt.Equal(t0.Add(24*time.Hour)) {
		t.Fatalf("expected a check in 24h, got %+v", checks)
	}
	if created.Next.ContactAttempts != 0 {
		t.Fatalf("step must not mutate its input")
	}
}

func TestInboundRunsToLeadReadyInOneStep(t *testing.T) {
	m := newMachine()
	lo := contactedLeadOffer(t, m)
	at := t0.Add(2 * time.Hour)

	d, err := m.Inbound(InboundInput{
		LeadOffer: lo,
		Text:      "Hola, soy Ana, busco 2 ambientes en Palermo, tengo 100 mil dólares, para vivir, lo antes posible",
		Patch:     fullPatch(),
		Offer:     palermoOffer(),
		Template:  scoring.FallbackTemplate(),
		Now:       at,
	})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}

	want := []domain.Status{domain.StatusEngaged, domain.StatusQualifying, domain.StatusScored, domain.StatusLeadReady}
	got := statusPath(d)
	if len(got) != len(want) {
		t.Fatalf("expected path %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected path %v, got %v", want, got)
		}
	}

	if d.Next.FirstResponseAt == nil || !d.Next.FirstResponseAt.Equal(at) {
		t.Fatalf("first_response_at must be stamped")
	}
	if d.Next.ScoreTotal == nil || *d.Next.ScoreTotal != 81 || d.Next.QualifiedAt == nil {
		t.Fatalf("expected score 81 and qualified_at, got %+v", d.Next.ScoreTotal)
	}
	if d.Score == nil || !d.Score.IsReady {
		t.Fatalf("expected ready score result")
	}
	if len(commandsOf[CreateDelivery](d)) != 1 {
		t.Fatalf("expected a delivery command")
	}
	replies := commandsOf[GenerateReply](d)
	if len(replies) != 1 || !replies[0].Ready {
		t.Fatalf("expected a ready reply, got %+v", replies)
	}
	if len(commandsOf[ScheduleContactCheck](d)) != 0 || d.Next.NextAttemptAt != nil {
		t.Fatalf("LEAD_READY must not arm the no-response timer")
	}

	sent, err := m.DeliveryCreated(d.Next, uuid.New(), at)
	if err != nil {
		t.Fatalf("delivery created: %v", err)
	}
	if sent.Next.Status != domain.StatusSentToDeveloper || !sent.Next.Status.IsTerminal() {
		t.Fatalf("expected terminal SENT_TO_DEVELOPER, got %s", sent.Next.Status)
	}
}

func TestInboundWithFailedExtractionStillReplies(t *testing.T) {
	m := newMachine()
	lo := contactedLeadOffer(t, m)

	d, err := m.Inbound(InboundInput{LeadOffer: lo, Text: "hola", Template: scoring.FallbackTemplate(), Now: t0.Add(time.Hour)})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if d.Next.Status != domain.StatusQualifying {
		t.Fatalf("expected QUALIFYING even with an empty patch, got %s", d.Next.Status)
	}
	if got := statusPath(d); len(got) != 2 || got[0] != domain.StatusEngaged || got[1] != domain.StatusQualifying {
		t.Fatalf("expected ENGAGED then QUALIFYING, got %v", got)
	}
	if !d.Next.Fields.IsEmpty() {
		t.Fatalf("fields must be unchanged")
	}
	for _, e := range d.Events {
		if e.Type == domain.EventFieldsMerged {
			t.Fatalf("empty patch must not record a merge")
		}
	}
	replies := commandsOf[GenerateReply](d)
	if len(replies) != 1 || len(replies[0].Missing) != len(domain.CoreFields) {
		t.Fatalf("expected reply asking for every core field, got %+v", replies)
	}
	if len(commandsOf[ScheduleContactCheck](d)) != 1 {
		t.Fatalf("expected the no-response timer to be re-armed")
	}
}

func TestInboundBelowGateDoesNotScore(t *testing.T) {
	m := newMachine()
	lo := contactedLeadOffer(t, m)

	d, err := m.Inbound(InboundInput{
		LeadOffer: lo,
		Patch:     domain.FieldsPatch{Name: strPtr("Ana"), Zones: []string{"Palermo"}, Timing: strPtr("ya mismo")},
		Offer:     palermoOffer(),
		Template:  scoring.FallbackTemplate(),
		Now:       t0.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if d.Next.Status != domain.StatusQualifying {
		t.Fatalf("expected QUALIFYING, got %s", d.Next.Status)
	}
	if d.Score != nil || d.Next.ScoreTotal != nil {
		t.Fatalf("three core fields must not trigger scoring")
	}
}

func TestInboundScoredBelowThresholdStaysInLoop(t *testing.T) {
	m := newMachine()
	lo := contactedLeadOffer(t, m)
	patch := fullPatch()
	patch.Zones = []string{"Tigre"}
	offer := palermoOffer()

	d, err := m.Inbound(InboundInput{LeadOffer: lo, Patch: patch, Offer: offer, Template: scoring.FallbackTemplate(), Now: t0.Add(time.Hour)})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if d.Next.Status != domain.StatusScored || d.Score.IsReady {
		t.Fatalf("expected SCORED and not ready, got %s", d.Next.Status)
	}
	d.Next.Version = lo.Version + 1

	// Changing the zone to the offer zone re-scores above the threshold.
	again, err := m.Inbound(InboundInput{
		LeadOffer: d.Next,
		Patch:     domain.FieldsPatch{Zones: []string{"Palermo"}},
		Offer:     offer,
		Template:  scoring.FallbackTemplate(),
		Now:       t0.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("second inbound: %v", err)
	}
	if again.Next.Status != domain.StatusLeadReady {
		t.Fatalf("expected LEAD_READY after re-score, got %s", again.Next.Status)
	}
}

func TestContactChecksForceCoolingAtCeiling(t *testing.T) {
	m := newMachine()
	lo := contactedLeadOffer(t, m)
	contact := Contact{LeadName: "Ana"}
	now := t0

	for attempt := 2; attempt <= 3; attempt++ {
		now = now.Add(24 * time.Hour)
		d, err := m.ContactCheck(lo, lo.Version, contact, now)
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if d.Next.ContactAttempts != attempt || d.Next.Status != domain.StatusContacted {
			t.Fatalf("expected follow-up #%d, got %d/%s", attempt, d.Next.ContactAttempts, d.Next.Status)
		}
		if sends := commandsOf[SendMessage](d); len(sends) != 1 || sends[0].Purpose != PurposeFollowUp {
			t.Fatalf("expected follow-up message, got %+v", sends)
		}
		lo = d.Next
		lo.Version++
	}

	d, err := m.ContactCheck(lo, lo.Version, contact, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if d.Next.Status != domain.StatusCooling {
		t.Fatalf("expected COOLING at the ceiling, got %s", d.Next.Status)
	}
	if len(d.Commands) != 0 || d.Next.NextAttemptAt != nil {
		t.Fatalf("cooling must not schedule another attempt: %+v", d.Commands)
	}
	if d.Next.ContactAttempts != 3 {
		t.Fatalf("attempts must not exceed the ceiling, got %d", d.Next.ContactAttempts)
	}
}

func TestStaleContactCheckIsIgnored(t *testing.T) {
	m := newMachine()
	lo := contactedLeadOffer(t, m)

	d, err := m.ContactCheck(lo, lo.Version-1, Contact{}, t0.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if d.Ignored == "" || len(d.Events) != 0 || len(d.Commands) != 0 {
		t.Fatalf("stale check must be ignored, got %+v", d)
	}
}

func TestReactivationCycle(t *testing.T) {
	m := newMachine()
	lo := contactedLeadOffer(t, m)
	lo.Status = domain.StatusCooling
	lo.ContactAttempts = 3

	d, err := m.Reactivate(lo, Contact{LeadName: "Ana", OfferName: "Torre Palermo"}, t0)
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if d.Next.Status != domain.StatusReactivation || d.Next.ReactivationCount != 1 {
		t.Fatalf("expected REACTIVATION #1, got %s/%d", d.Next.Status, d.Next.ReactivationCount)
	}
	if sends := commandsOf[SendMessage](d); len(sends) != 1 || sends[0].Purpose != PurposeReactivation {
		t.Fatalf("expected reactivation message")
	}

	reactivated := d.Next
	reactivated.Version = lo.Version + 1

	silent, err := m.ContactCheck(reactivated, reactivated.Version, Contact{}, t0.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if silent.Next.Status != domain.StatusCooling {
		t.Fatalf("no response after reactivation must cool again, got %s", silent.Next.Status)
	}

	replied, err := m.Inbound(InboundInput{LeadOffer: reactivated, Text: "sí, sigo buscando", Template: scoring.FallbackTemplate(), Now: t0.Add(time.Hour)})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if replied.Next.Status != domain.StatusQualifying {
		t.Fatalf("reply after reactivation must resume qualification, got %s", replied.Next.Status)
	}

	if _, err := m.Reactivate(reactivated, Contact{}, t0); !errors.Is(err, domain.ErrIllegalTransition) {
		t.Fatalf("only COOLING can be reactivated, got %v", err)
	}
}

func TestSignals(t *testing.T) {
	m := newMachine()
	lo := contactedLeadOffer(t, m)

	if _, err := m.Signal(lo, Signal{Target: domain.StatusDisqualified}, t0); !errors.Is(err, ErrMissingCategory) {
		t.Fatalf("expected missing category error, got %v", err)
	}
	if _, err := m.Signal(lo, Signal{Target: domain.StatusScored}, t0); !errors.Is(err, ErrInvalidSignal) {
		t.Fatalf("expected invalid signal error, got %v", err)
	}

	category := domain.DisqualPriceTooHigh
	d, err := m.Signal(lo, Signal{Target: domain.StatusDisqualified, Category: &category, Reason: "busca hasta 50 mil"}, t0)
	if err != nil {
		t.Fatalf("disqualify: %v", err)
	}
	if d.Next.Status != domain.StatusDisqualified || *d.Next.DisqualificationCategory != category {
		t.Fatalf("unexpected disqualification: %+v", d.Next)
	}

	if _, err := m.Signal(d.Next, Signal{Target: domain.StatusStopped}, t0); !errors.Is(err, domain.ErrIllegalTransition) {
		t.Fatalf("terminal status must reject signals, got %v", err)
	}
}

func TestHumanHandoffHaltsTheBot(t *testing.T) {
	m := newMachine()
	lo := contactedLeadOffer(t, m)

	d, err := m.Signal(lo, Signal{Target: domain.StatusHumanHandoff, Actor: domain.ActorLead, Reason: "pidió hablar con un asesor"}, t0)
	if err != nil {
		t.Fatalf("handoff: %v", err)
	}

	in, err := m.Inbound(InboundInput{LeadOffer: d.Next, Patch: fullPatch(), Template: scoring.FallbackTemplate(), Now: t0})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if in.Ignored == "" || !in.Next.Fields.IsEmpty() {
		t.Fatalf("inbound during handoff must be ignored")
	}

	check, err := m.ContactCheck(d.Next, d.Next.Version, Contact{}, t0)
	if err != nil || check.Ignored == "" {
		t.Fatalf("contact checks during handoff must be ignored, got %v", err)
	}
}

func TestLeadReadyInboundOnlyReplies(t *testing.T) {
	m := newMachine()
	lo := contactedLeadOffer(t, m)
	lo.Status = domain.StatusLeadReady

	d, err := m.Inbound(InboundInput{LeadOffer: lo, Patch: fullPatch(), Template: scoring.FallbackTemplate(), Now: t0})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if d.Next.Status != domain.StatusLeadReady || !d.Next.Fields.IsEmpty() || len(d.Events) != 0 {
		t.Fatalf("LEAD_READY must not merge or transition")
	}
	if len(commandsOf[GenerateReply](d)) != 1 {
		t.Fatalf("expected a reply")
	}
}

func TestInvalidPatchAttributesAreReported(t *testing.T) {
	m := newMachine()
	lo := contactedLeadOffer(t, m)

	d, err := m.Inbound(InboundInput{
		LeadOffer: lo,
		Patch:     domain.FieldsPatch{Name: strPtr("Ana"), Email: strPtr("ana-at-example")},
		Template:  scoring.FallbackTemplate(),
		Now:       t0,
	})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if d.Next.Fields.Email != nil || d.Next.Fields.Name == nil {
		t.Fatalf("only the invalid email must be dropped")
	}
	var rejected bool
	for _, e := range d.Events {
		if e.Type == domain.EventPatchRejected {
			rejected = true
		}
	}
	if !rejected {
		t.Fatalf("expected a patch_rejected event")
	}
}
