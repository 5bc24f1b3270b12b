// Package domain holds the lead qualification model: lead offer statuses and
// their transition table, the sparse qualification record, the completeness
// gate and funnel grouping. Everything here is pure.
package domain

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a lead offer.
type Status string

const (
	StatusPendingMapping  Status = "PENDING_MAPPING"
	StatusToBeContacted   Status = "TO_BE_CONTACTED"
	StatusContacted       Status = "CONTACTED"
	StatusEngaged         Status = "ENGAGED"
	StatusQualifying      Status = "QUALIFYING"
	StatusScored          Status = "SCORED"
	StatusLeadReady       Status = "LEAD_READY"
	StatusSentToDeveloper Status = "SENT_TO_DEVELOPER"
	StatusCooling         Status = "COOLING"
	StatusReactivation    Status = "REACTIVATION"
	StatusDisqualified    Status = "DISQUALIFIED"
	StatusStopped         Status = "STOPPED"
	StatusHumanHandoff    Status = "HUMAN_HANDOFF"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusPendingMapping,
	StatusToBeContacted,
	StatusContacted,
	StatusEngaged,
	StatusQualifying,
	StatusScored,
	StatusLeadReady,
	StatusSentToDeveloper,
	StatusCooling,
	StatusReactivation,
	StatusDisqualified,
	StatusStopped,
	StatusHumanHandoff,
}

var terminalStatuses = map[Status]bool{
	StatusDisqualified:    true,
	StatusStopped:         true,
	StatusSentToDeveloper: true,
}

// ParseStatus converts a stored or user supplied value into a Status.
func ParseStatus(value string) (Status, error) {
	candidate := Status(strings.ToUpper(strings.TrimSpace(value)))
	for _, s := range AllStatuses {
		if s == candidate {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown lead offer status %q", value)
}

// IsTerminal reports whether no further transition may leave s.
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// HaltsQualification reports whether inbound messages must no longer merge
// fields or trigger scoring.
func (s Status) HaltsQualification() bool {
	return s.IsTerminal() || s == StatusHumanHandoff || s == StatusLeadReady
}

// AcceptsContactRetry reports whether the no-response policy governs s.
func (s Status) AcceptsContactRetry() bool {
	switch s {
	case StatusContacted, StatusEngaged, StatusQualifying, StatusScored:
		return true
	}
	return false
}

// IsScored reports whether s is SCORED or a later status on the happy path.
// score_total may only be set for these.
func (s Status) IsScored() bool {
	switch s {
	case StatusScored, StatusLeadReady, StatusSentToDeveloper:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// DisqualificationCategory explains why a lead offer was disqualified.
type DisqualificationCategory string

const (
	DisqualPriceTooHigh   DisqualificationCategory = "PRICE_TOO_HIGH"
	DisqualPriceTooLow    DisqualificationCategory = "PRICE_TOO_LOW"
	DisqualWrongZone      DisqualificationCategory = "WRONG_ZONE"
	DisqualWrongTypology  DisqualificationCategory = "WRONG_TYPOLOGY"
	DisqualNoResponse     DisqualificationCategory = "NO_RESPONSE"
	DisqualNotInterested  DisqualificationCategory = "NOT_INTERESTED"
	DisqualMissingAmenity DisqualificationCategory = "MISSING_AMENITY"
	DisqualDuplicate      DisqualificationCategory = "DUPLICATE"
	DisqualSpam           DisqualificationCategory = "SPAM"
	DisqualOther          DisqualificationCategory = "OTHER"
)

var disqualificationCategories = map[DisqualificationCategory]bool{
	DisqualPriceTooHigh:   true,
	DisqualPriceTooLow:    true,
	DisqualWrongZone:      true,
	DisqualWrongTypology:  true,
	DisqualNoResponse:     true,
	DisqualNotInterested:  true,
	DisqualMissingAmenity: true,
	DisqualDuplicate:      true,
	DisqualSpam:           true,
	DisqualOther:          true,
}

// ParseDisqualificationCategory validates a category value.
func ParseDisqualificationCategory(value string) (DisqualificationCategory, error) {
	candidate := DisqualificationCategory(strings.ToUpper(strings.TrimSpace(value)))
	if !disqualificationCategories[candidate] {
		return "", fmt.Errorf("unknown disqualification category %q", value)
	}
	return candidate, nil
}
