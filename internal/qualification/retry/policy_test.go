package retry

import (
	"testing"
	"time"
)

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func TestEvaluateForcesCoolingAtCeiling(t *testing.T) {
	p := DefaultPolicy()

	for attempts := 1; attempts < p.MaxAttempts; attempts++ {
		d := p.Evaluate(attempts, now)
		if d.Action != ActionFollowUp || d.Attempt != attempts+1 {
			t.Fatalf("attempts=%d: expected follow-up #%d, got %+v", attempts, attempts+1, d)
		}
		if !d.NextAttemptAt.Equal(now.Add(24 * time.Hour)) {
			t.Fatalf("attempts=%d: expected next attempt in 24h, got %s", attempts, d.NextAttemptAt)
		}
	}

	for _, attempts := range []int{3, 4, 10} {
		d := p.Evaluate(attempts, now)
		if d.Action != ActionCool {
			t.Fatalf("attempts=%d: expected cooling, got %s", attempts, d.Action)
		}
		if !d.NextAttemptAt.IsZero() || d.Message != "" {
			t.Fatalf("attempts=%d: cooling must not schedule another attempt", attempts)
		}
	}
}

func TestEvaluateClampsMessageIndex(t *testing.T) {
	p := Policy{MaxAttempts: 5, Interval: time.Hour, Messages: []string{"first", "second"}}

	if got := p.Initial(now).Message; got != "first" {
		t.Fatalf("expected initial message, got %q", got)
	}
	if got := p.Evaluate(1, now).Message; got != "second" {
		t.Fatalf("expected second message, got %q", got)
	}
	if got := p.Evaluate(4, now).Message; got != "second" {
		t.Fatalf("expected clamped index, got %q", got)
	}
}

func TestZeroPolicyUsesDefaults(t *testing.T) {
	d := Policy{}.Evaluate(2, now)
	if d.Action != ActionFollowUp || d.Message != DefaultMessages[2] {
		t.Fatalf("unexpected decision %+v", d)
	}
	if (Policy{}).Evaluate(3, now).Action != ActionCool {
		t.Fatalf("default ceiling must be 3")
	}
}

func TestReactivationHasNoCeiling(t *testing.T) {
	p := Policy{ReactivationMessages: []string{"a", "b"}}
	if p.Reactivation(0) != "a" || p.Reactivation(1) != "b" || p.Reactivation(7) != "b" {
		t.Fatalf("unexpected reactivation messages")
	}
}

func TestRender(t *testing.T) {
	msg := "Hola{{name}}, ¿seguís buscando en {{offer}}?"
	if got := Render(msg, "Ana", "Torre Palermo"); got != "Hola Ana, ¿seguís buscando en Torre Palermo?" {
		t.Fatalf("unexpected render %q", got)
	}
	if got := Render(msg, " ", ""); got != "Hola, ¿seguís buscando en la propiedad?" {
		t.Fatalf("unexpected render %q", got)
	}
}
