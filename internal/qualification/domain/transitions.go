package domain

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is wrapped by every rejected transition.
var ErrIllegalTransition = errors.New("illegal lead offer transition")

// TransitionError describes a rejected status change.
type TransitionError struct {
	From   Status
	To     Status
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s -> %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("%s -> %s not allowed", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}

// lifecycleTransitions lists the automatic moves. Escalations reachable from
// every non-terminal status live in escalationTargets.
var lifecycleTransitions = map[Status][]Status{
	StatusPendingMapping: {StatusToBeContacted},
	// A lead may write before the first outbound contact goes out.
	StatusToBeContacted: {StatusContacted, StatusEngaged},
	StatusContacted:     {StatusEngaged, StatusCooling},
	StatusEngaged:       {StatusQualifying, StatusCooling},
	StatusQualifying:    {StatusScored, StatusCooling},
	StatusScored:        {StatusLeadReady, StatusCooling},
	StatusLeadReady:     {StatusSentToDeveloper},
	StatusCooling:       {StatusReactivation, StatusEngaged},
	StatusReactivation:  {StatusEngaged, StatusCooling},
}

var escalationTargets = map[Status]bool{
	StatusDisqualified: true,
	StatusStopped:      true,
	StatusHumanHandoff: true,
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to Status) bool {
	return ValidateTransition(from, to) == nil
}

// ValidateTransition returns a *TransitionError when from -> to is illegal.
func ValidateTransition(from, to Status) error {
	if from == to {
		return &TransitionError{From: from, To: to, Reason: "status unchanged"}
	}
	if from.IsTerminal() {
		return &TransitionError{From: from, To: to, Reason: "status is terminal"}
	}
	if escalationTargets[to] {
		return nil
	}
	for _, candidate := range lifecycleTransitions[from] {
		if candidate == to {
			return nil
		}
	}
	return &TransitionError{From: from, To: to}
}

// NextStatuses lists every status reachable from s in one step.
func NextStatuses(s Status) []Status {
	if s.IsTerminal() {
		return nil
	}
	next := append([]Status(nil), lifecycleTransitions[s]...)
	for _, target := range []Status{StatusDisqualified, StatusStopped, StatusHumanHandoff} {
		if target != s {
			next = append(next, target)
		}
	}
	return next
}
