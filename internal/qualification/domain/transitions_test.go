package domain

import (
	"errors"
	"testing"
)

func TestValidateTransitionHappyPath(t *testing.T) {
	path := []Status{
		StatusPendingMapping,
		StatusToBeContacted,
		StatusContacted,
		StatusEngaged,
		StatusQualifying,
		StatusScored,
		StatusLeadReady,
		StatusSentToDeveloper,
	}
	for i := 0; i < len(path)-1; i++ {
		if err := ValidateTransition(path[i], path[i+1]); err != nil {
			t.Fatalf("expected %s -> %s to be allowed: %v", path[i], path[i+1], err)
		}
	}
}

func TestValidateTransitionRejectsSkips(t *testing.T) {
	cases := [][2]Status{
		{StatusContacted, StatusScored},
		{StatusQualifying, StatusLeadReady},
		{StatusToBeContacted, StatusQualifying},
		{StatusCooling, StatusQualifying},
		{StatusLeadReady, StatusCooling},
		{StatusHumanHandoff, StatusEngaged},
	}
	for _, tc := range cases {
		err := ValidateTransition(tc[0], tc[1])
		if err == nil {
			t.Fatalf("expected %s -> %s to be rejected", tc[0], tc[1])
		}
		if !errors.Is(err, ErrIllegalTransition) {
			t.Fatalf("expected ErrIllegalTransition, got %v", err)
		}
	}
}

func TestEscalationsReachableFromEveryNonTerminalStatus(t *testing.T) {
	for _, from := range AllStatuses {
		for _, to := range []Status{StatusDisqualified, StatusStopped, StatusHumanHandoff} {
			err := ValidateTransition(from, to)
			switch {
			case from.IsTerminal() && err == nil:
				t.Fatalf("terminal %s must not move to %s", from, to)
			case !from.IsTerminal() && from != to && err != nil:
				t.Fatalf("expected %s -> %s to be allowed: %v", from, to, err)
			}
		}
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for _, s := range []Status{StatusDisqualified, StatusStopped, StatusSentToDeveloper} {
		if next := NextStatuses(s); len(next) != 0 {
			t.Fatalf("expected no exits from %s, got %v", s, next)
		}
	}
}

func TestCoolingBranch(t *testing.T) {
	if !CanTransition(StatusCooling, StatusReactivation) {
		t.Fatalf("expected COOLING -> REACTIVATION")
	}
	if !CanTransition(StatusReactivation, StatusCooling) {
		t.Fatalf("expected REACTIVATION -> COOLING")
	}
	if !CanTransition(StatusReactivation, StatusEngaged) {
		t.Fatalf("expected REACTIVATION -> ENGAGED")
	}
}

func TestParseStatus(t *testing.T) {
	got, err := ParseStatus(" lead_ready ")
	if err != nil || got != StatusLeadReady {
		t.Fatalf("unexpected parse result %q, %v", got, err)
	}
	if _, err := ParseStatus("WON"); err == nil {
		t.Fatalf("expected unknown status error")
	}
}
