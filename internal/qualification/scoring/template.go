package scoring

import (
	"fmt"

	"github.com/google/uuid"
)

// Dimension is one of the six weighted scoring axes.
type Dimension string

const (
	DimensionBudget       Dimension = "budget"
	DimensionZone         Dimension = "zone"
	DimensionTypology     Dimension = "typology"
	DimensionTiming       Dimension = "timing"
	DimensionIntent       Dimension = "intent"
	DimensionConversation Dimension = "conversation"
)

// Dimensions lists the weighted dimensions in evaluation order.
var Dimensions = []Dimension{
	DimensionBudget, DimensionZone, DimensionTypology,
	DimensionTiming, DimensionIntent, DimensionConversation,
}

// BreakdownFinePreferences is the breakdown key of the completeness bonus.
const BreakdownFinePreferences = "fine_preferences"

// FinePreferenceBonusMax caps the completeness bonus.
const FinePreferenceBonusMax = 10

// TierNoData is shared by every dimension that can lack comparable data.
const TierNoData = "no_data"

// Template sources, in resolution order.
const (
	SourceTenant   = "tenant"
	SourceGlobal   = "global"
	SourceFile     = "file"
	SourceFallback = "fallback"
)

// Template holds the weights and tier points used to score one offer type.
type Template struct {
	ID                 uuid.UUID                    `json:"id" yaml:"id"`
	TenantID           *uuid.UUID                   `json:"tenantId,omitempty" yaml:"tenantId,omitempty"`
	OfferType          string                       `json:"offerType" yaml:"offerType"`
	Name               string                       `json:"name" yaml:"name"`
	LeadReadyThreshold int                          `json:"leadReadyThreshold" yaml:"leadReadyThreshold"`
	Weights            map[Dimension]int            `json:"weights" yaml:"weights"`
	Rules              map[Dimension]map[string]int `json:"rules" yaml:"rules"`
	Source             string                       `json:"source" yaml:"-"`
}

// FallbackTemplate is used when neither a tenant nor a global template exists.
func FallbackTemplate() Template {
	return Template{
		OfferType:          "*",
		Name:               "Default lead scoring",
		LeadReadyThreshold: 80,
		Weights: map[Dimension]int{
			DimensionBudget:       25,
			DimensionZone:         20,
			DimensionTypology:     15,
			DimensionTiming:       15,
			DimensionIntent:       15,
			DimensionConversation: 10,
		},
		Rules: map[Dimension]map[string]int{
			DimensionBudget: {
				TierBudgetPerfect: 25, TierBudgetCompatible: 18, TierBudgetPartial: 12,
				TierBudgetNear: 8, TierBudgetFar: 3, TierBudgetOutOfRange: 0, TierNoData: 5,
			},
			DimensionZone: {
				TierZoneExact: 20, TierZoneCity: 14, TierZoneAdjacent: 10, TierZoneNoMatch: 0, TierNoData: 4,
			},
			DimensionTypology: {
				TierTypologyFull: 10, TierTypologyPartial: 6, TierNoData: 3,
			},
			DimensionTiming: {
				TierTimingImmediate: 15, TierTimingSixMonths: 12, TierTimingOneYear: 8,
				TierTimingFlexible: 5, TierTimingLongTerm: 2, TierNoData: 3,
			},
			DimensionIntent: {
				TierIntentInvestor: 15, TierIntentHigh: 10, TierIntentExploring: 5, TierNoData: 0,
			},
			DimensionConversation: {
				TierConversationExcellent: 10, TierConversationGood: 7,
				TierConversationModerate: 5, TierConversationLow: 2,
			},
		},
		Source: SourceFallback,
	}
}

// WithDefaults fills dimensions a stored template leaves out from the
// fallback template, so a partially configured template still scores every
// dimension. The threshold is only defaulted for an unconfigured template;
// a configured threshold of 0 is kept.
func (t Template) WithDefaults() Template {
	fallback := FallbackTemplate()
	out := t
	out.Weights = make(map[Dimension]int, len(Dimensions))
	out.Rules = make(map[Dimension]map[string]int, len(Dimensions))
	for _, dim := range Dimensions {
		if w, ok := t.Weights[dim]; ok {
			out.Weights[dim] = w
		} else {
			out.Weights[dim] = fallback.Weights[dim]
		}
		if rules, ok := t.Rules[dim]; ok && len(rules) > 0 {
			out.Rules[dim] = rules
		} else {
			out.Rules[dim] = fallback.Rules[dim]
		}
	}
	if !t.configured() || out.LeadReadyThreshold < 0 {
		out.LeadReadyThreshold = fallback.LeadReadyThreshold
	}
	return out
}

func (t Template) configured() bool {
	return t.Source != "" || len(t.Weights) > 0 || len(t.Rules) > 0
}

// Validate rejects templates that could never produce a sane score.
func (t Template) Validate() error {
	if t.LeadReadyThreshold < 0 || t.LeadReadyThreshold > 100 {
		return fmt.Errorf("lead ready threshold %d out of range", t.LeadReadyThreshold)
	}
	for dim, weight := range t.Weights {
		if weight < 0 {
			return fmt.Errorf("negative weight for %s", dim)
		}
	}
	for dim, tiers := range t.Rules {
		for tier, points := range tiers {
			if points < 0 {
				return fmt.Errorf("negative points for %s/%s", dim, tier)
			}
		}
	}
	return nil
}

// Points returns the points of tier, clamped to the dimension weight when a
// weight is configured. Unknown tiers score zero.
func (t Template) Points(dim Dimension, tier string) int {
	points := t.Rules[dim][tier]
	if points < 0 {
		points = 0
	}
	if weight, ok := t.Weights[dim]; ok && weight > 0 && points > weight {
		points = weight
	}
	return points
}
