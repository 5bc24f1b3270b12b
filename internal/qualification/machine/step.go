package machine

import (
	"time"

	"converzia_backend/internal/qualification/domain"
	"converzia_backend/internal/qualification/retry"
	"converzia_backend/internal/qualification/scoring"
)

// step accumulates the effects of one trigger.
type step struct {
	next     domain.LeadOffer
	now      time.Time
	events   []domain.EventRecord
	commands []Command
	score    *scoring.Result
}

func newStep(lo domain.LeadOffer, now time.Time) *step {
	next := lo.Clone()
	now = now.UTC()
	next.UpdatedAt = now
	return &step{next: next, now: now}
}

func (s *step) transition(to domain.Status, actor domain.Actor, reason string) error {
	from := s.next.Status
	if err := domain.ValidateTransition(from, to); err != nil {
		return err
	}
	s.next.Status = to
	s.next.StatusChangedAt = s.now
	s.event(domain.EventStatusChanged, actor, map[string]any{
		"from":   from.String(),
		"to":     to.String(),
		"reason": reason,
	})
	return nil
}

func (s *step) recordAttempt(d retry.Decision) {
	attemptAt := s.now
	next := d.NextAttemptAt
	s.next.ContactAttempts = d.Attempt
	s.next.LastAttemptAt = &attemptAt
	s.next.NextAttemptAt = &next
	s.event(domain.EventContactAttempted, domain.ActorBot, map[string]any{"attempt": d.Attempt})
}

func (s *step) event(eventType domain.EventType, actor domain.Actor, payload map[string]any) {
	s.events = append(s.events, domain.NewEventRecord(s.next.ID, eventType, actor, s.now, payload))
}

func (s *step) send(text string, purpose Purpose) {
	s.commands = append(s.commands, SendMessage{Text: text, Purpose: purpose})
}

func (s *step) schedule(at time.Time) {
	s.commands = append(s.commands, ScheduleContactCheck{RunAt: at})
}

func (s *step) decision() Decision {
	return Decision{Next: s.next, Events: s.events, Commands: s.commands, Score: s.score}
}
