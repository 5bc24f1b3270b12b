// Package scoring computes a deterministic 0-100 lead score from accumulated
// qualification fields, the offer being pursued and a scoring template.
package scoring

import (
	"fmt"
	"strings"

	"converzia_backend/internal/qualification/domain"
)

// Version identifies the rule set. It is recorded with every scoring event.
const Version = "scoring-v2"

// MaxScore caps the total.
const MaxScore = 100

// Input carries everything a single scoring run depends on.
type Input struct {
	Fields   domain.QualificationFields
	Offer    *domain.Offer
	Template Template
	Metrics  *domain.ConversationMetrics
}

// Explanation is the human-readable part of a result.
type Explanation struct {
	Summary string               `json:"summary"`
	Reasons map[Dimension]string `json:"reasons"`
}

// Result is the outcome of one scoring run.
type Result struct {
	Score          int                  `json:"score"`
	Breakdown      map[string]int       `json:"breakdown"`
	Tiers          map[Dimension]string `json:"tiers"`
	Explanation    Explanation          `json:"explanation"`
	IsReady        bool                 `json:"isReady"`
	Threshold      int                  `json:"threshold"`
	TemplateSource string               `json:"templateSource"`
	Version        string               `json:"version"`
}

// Engine is stateless; the zero value is ready to use.
type Engine struct{}

// NewEngine returns a scoring engine.
func NewEngine() Engine {
	return Engine{}
}

// Score applies every dimension rule of in.Template to the lead.
func (Engine) Score(in Input) Result {
	tpl := in.Template.WithDefaults()

	outcomes := map[Dimension]ruleOutcome{
		DimensionBudget:       evaluateBudget(in.Fields, in.Offer),
		DimensionZone:         evaluateZone(in.Fields, in.Offer),
		DimensionTypology:     evaluateTypology(in.Fields),
		DimensionTiming:       evaluateTiming(in.Fields),
		DimensionIntent:       evaluateIntent(in.Fields),
		DimensionConversation: evaluateConversation(in.Metrics),
	}

	result := Result{
		Breakdown:      make(map[string]int, len(Dimensions)+1),
		Tiers:          make(map[Dimension]string, len(Dimensions)),
		Explanation:    Explanation{Reasons: make(map[Dimension]string, len(Dimensions))},
		Threshold:      tpl.LeadReadyThreshold,
		TemplateSource: tpl.Source,
		Version:        Version,
	}

	total := 0
	for _, dim := range Dimensions {
		outcome := outcomes[dim]
		points := tpl.Points(dim, outcome.Tier)
		result.Breakdown[string(dim)] = points
		result.Tiers[dim] = outcome.Tier
		result.Explanation.Reasons[dim] = outcome.Reason
		total += points
	}

	bonus := finePreferenceBonus(in.Fields)
	result.Breakdown[BreakdownFinePreferences] = bonus
	total += bonus

	result.Score = min(max(total, 0), MaxScore)
	result.IsReady = result.Score >= result.Threshold
	result.Explanation.Summary = summarize(result, in.Fields)
	return result
}

var coreFieldLabels = map[string]string{
	domain.FieldName:     "nombre",
	domain.FieldBudget:   "presupuesto",
	domain.FieldZones:    "zona",
	domain.FieldTiming:   "plazos",
	domain.FieldPurpose:  "propósito",
	domain.FieldBedrooms: "dormitorios",
}

func summarize(r Result, fields domain.QualificationFields) string {
	if r.IsReady {
		return fmt.Sprintf("Lead listo para el desarrollador: %d/100 (umbral %d).", r.Score, r.Threshold)
	}
	missing := fields.MissingCoreFields()
	if len(missing) > 0 {
		labels := make([]string, 0, len(missing))
		for _, name := range missing {
			labels = append(labels, coreFieldLabels[name])
		}
		return fmt.Sprintf("Puntaje %d/100. Falta conocer: %s.", r.Score, strings.Join(labels, ", "))
	}
	return fmt.Sprintf("Puntaje %d/100. Se necesita más información para calificar al lead.", r.Score)
}
