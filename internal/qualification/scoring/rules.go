package scoring

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"converzia_backend/internal/qualification/domain"
)

// Tier names per dimension.
const (
	TierBudgetPerfect    = "perfect"
	TierBudgetCompatible = "compatible"
	TierBudgetPartial    = "partial"
	TierBudgetNear       = "near"
	TierBudgetFar        = "far"
	TierBudgetOutOfRange = "out_of_range"

	TierZoneExact    = "exact"
	TierZoneCity     = "city"
	TierZoneAdjacent = "adjacent"
	TierZoneNoMatch  = "no_match"

	TierTypologyFull    = "full_preference"
	TierTypologyPartial = "partial_preference"

	TierTimingImmediate = "immediate"
	TierTimingSixMonths = "within_6_months"
	TierTimingOneYear   = "within_1_year"
	TierTimingFlexible  = "flexible"
	TierTimingLongTerm  = "long_term"

	TierIntentInvestor  = "investor"
	TierIntentHigh      = "high_intent"
	TierIntentExploring = "exploring"

	TierConversationExcellent = "excellent"
	TierConversationGood      = "good"
	TierConversationModerate  = "moderate"
	TierConversationLow       = "low"
)

type ruleOutcome struct {
	Tier   string
	Reason string
}

// Overlap ratio thresholds and distance thresholds of the budget rule.
const (
	budgetPerfectRatio    = 0.8
	budgetCompatibleRatio = 0.5
	budgetNearDistance    = 0.2
	budgetFarDistance     = 0.5
)

// budgetRange turns a declared budget into a range. A ceiling-only budget
// covers everything up to the ceiling, a floor-only budget collapses to a
// point and a zero-width range is treated as one unit wide.
func budgetRange(b *domain.Budget) (lo, hi float64) {
	switch {
	case b.Min != nil && b.Max != nil:
		lo, hi = *b.Min, *b.Max
		if lo > hi {
			lo, hi = hi, lo
		}
	case b.Min != nil:
		lo, hi = *b.Min, *b.Min
	default:
		lo, hi = 0, *b.Max
	}
	if hi-lo <= 0 {
		hi = lo + 1
	}
	return lo, hi
}

func evaluateBudget(fields domain.QualificationFields, offer *domain.Offer) ruleOutcome {
	if !fields.Budget.HasValue() {
		return ruleOutcome{Tier: TierNoData, Reason: "El lead no indicó presupuesto"}
	}
	if offer == nil || (offer.PriceFrom == nil && offer.PriceTo == nil) {
		return ruleOutcome{Tier: TierNoData, Reason: "La oferta no tiene rango de precios"}
	}

	lo, hi := budgetRange(fields.Budget)
	offerLo, offerHi := 0.0, math.Inf(1)
	if offer.PriceFrom != nil {
		offerLo = *offer.PriceFrom
	}
	if offer.PriceTo != nil {
		offerHi = *offer.PriceTo
	}

	overlap := math.Min(hi, offerHi) - math.Max(lo, offerLo)
	if overlap > 0 {
		ratio := overlap / (hi - lo)
		pct := int(math.Round(ratio * 100))
		switch {
		case ratio >= budgetPerfectRatio:
			return ruleOutcome{Tier: TierBudgetPerfect, Reason: fmt.Sprintf("Presupuesto dentro del rango de la oferta (%d%% de coincidencia)", pct)}
		case ratio >= budgetCompatibleRatio:
			return ruleOutcome{Tier: TierBudgetCompatible, Reason: fmt.Sprintf("Presupuesto compatible con la oferta (%d%% de coincidencia)", pct)}
		default:
			return ruleOutcome{Tier: TierBudgetPartial, Reason: fmt.Sprintf("Presupuesto coincide parcialmente (%d%% de coincidencia)", pct)}
		}
	}

	var distance float64
	var direction string
	if hi <= offerLo {
		distance = (offerLo - hi) / offerLo
		direction = "por debajo"
	} else {
		distance = (lo - offerHi) / offerHi
		direction = "por encima"
	}
	pct := int(math.Round(distance * 100))
	switch {
	case distance <= budgetNearDistance:
		return ruleOutcome{Tier: TierBudgetNear, Reason: fmt.Sprintf("Presupuesto %d%% %s del rango de la oferta", pct, direction)}
	case distance <= budgetFarDistance:
		return ruleOutcome{Tier: TierBudgetFar, Reason: fmt.Sprintf("Presupuesto %d%% %s del rango de la oferta", pct, direction)}
	default:
		return ruleOutcome{Tier: TierBudgetOutOfRange, Reason: fmt.Sprintf("Presupuesto fuera de rango (%d%% %s)", pct, direction)}
	}
}

// zoneAdjacency lists known neighbouring zones, keyed by folded zone name.
var zoneAdjacency = map[string][]string{
	"palermo":       {"belgrano", "colegiales", "villa crespo", "recoleta", "chacarita"},
	"belgrano":      {"palermo", "nunez", "colegiales", "coghlan", "villa urquiza"},
	"nunez":         {"belgrano", "saavedra", "vicente lopez", "coghlan"},
	"recoleta":      {"palermo", "barrio norte", "retiro", "balvanera"},
	"barrio norte":  {"recoleta", "palermo"},
	"colegiales":    {"palermo", "belgrano", "chacarita"},
	"villa crespo":  {"palermo", "almagro", "caballito", "chacarita"},
	"caballito":     {"almagro", "villa crespo", "flores", "boedo"},
	"almagro":       {"caballito", "villa crespo", "boedo", "balvanera"},
	"villa urquiza": {"belgrano", "coghlan", "saavedra", "villa ortuzar"},
	"puerto madero": {"san telmo", "retiro", "monserrat"},
	"san telmo":     {"puerto madero", "monserrat", "barracas"},
	"vicente lopez": {"olivos", "nunez", "florida"},
	"olivos":        {"vicente lopez", "martinez", "florida"},
	"martinez":      {"olivos", "san isidro", "acassuso"},
	"san isidro":    {"martinez", "acassuso", "beccar"},
	"nordelta":      {"tigre", "benavidez"},
	"tigre":         {"nordelta", "san fernando"},
	"chacarita":     {"palermo", "colegiales", "villa crespo", "villa ortuzar"},
	"coghlan":       {"belgrano", "villa urquiza", "saavedra", "nunez"},
	"saavedra":      {"nunez", "coghlan", "villa urquiza"},
	"villa ortuzar": {"chacarita", "villa urquiza"},
	"retiro":        {"recoleta", "puerto madero", "san nicolas"},
	"monserrat":     {"san telmo", "puerto madero", "san nicolas"},
	"balvanera":     {"recoleta", "almagro", "san nicolas"},
	"boedo":         {"almagro", "caballito"},
	"florida":       {"vicente lopez", "olivos"},
	"san nicolas":   {"retiro", "monserrat", "balvanera"},
	"flores":        {"caballito"},
	"barracas":      {"san telmo"},
	"acassuso":      {"martinez", "san isidro"},
	"beccar":        {"san isidro"},
	"benavidez":     {"nordelta"},
	"san fernando":  {"tigre"},
}

func evaluateZone(fields domain.QualificationFields, offer *domain.Offer) ruleOutcome {
	if len(fields.Zones) == 0 {
		return ruleOutcome{Tier: TierNoData, Reason: "El lead no indicó zona"}
	}
	if offer == nil || (strings.TrimSpace(offer.Zone) == "" && strings.TrimSpace(offer.City) == "") {
		return ruleOutcome{Tier: TierNoData, Reason: "La oferta no tiene zona"}
	}

	for _, zone := range fields.Zones {
		if looselyMatches(zone, offer.Zone) {
			return ruleOutcome{Tier: TierZoneExact, Reason: fmt.Sprintf("Busca en %s, la zona de la oferta", zone)}
		}
	}
	for _, zone := range fields.Zones {
		if looselyMatches(zone, offer.City) {
			return ruleOutcome{Tier: TierZoneCity, Reason: fmt.Sprintf("Busca en %s, misma ciudad que la oferta", zone)}
		}
	}
	for _, neighbour := range zoneAdjacency[foldText(offer.Zone)] {
		for _, zone := range fields.Zones {
			if looselyMatches(zone, neighbour) {
				return ruleOutcome{Tier: TierZoneAdjacent, Reason: fmt.Sprintf("Busca en %s, zona vecina a %s", zone, offer.Zone)}
			}
		}
	}
	return ruleOutcome{Tier: TierZoneNoMatch, Reason: fmt.Sprintf("Busca en %s, fuera de la zona de la oferta", strings.Join(fields.Zones, ", "))}
}

func evaluateTypology(fields domain.QualificationFields) ruleOutcome {
	hasType := fields.PropertyType != nil && strings.TrimSpace(*fields.PropertyType) != ""
	hasBedrooms := fields.Bedrooms != nil
	switch {
	case hasType && hasBedrooms:
		return ruleOutcome{Tier: TierTypologyFull, Reason: fmt.Sprintf("Busca %s de %d dormitorios", *fields.PropertyType, *fields.Bedrooms)}
	case hasBedrooms:
		return ruleOutcome{Tier: TierTypologyPartial, Reason: fmt.Sprintf("Busca %d dormitorios", *fields.Bedrooms)}
	case hasType:
		return ruleOutcome{Tier: TierTypologyPartial, Reason: fmt.Sprintf("Busca %s", *fields.PropertyType)}
	default:
		return ruleOutcome{Tier: TierNoData, Reason: "Sin preferencia de tipología"}
	}
}

// timingKeywords are folded whole-word phrases, checked in slice order.
var timingKeywords = []struct {
	tier     string
	phrases  []string
	reasonES string
}{
	{TierTimingImmediate, []string{
		"inmediato", "inmediata", "inmediatamente", "ya mismo", "ahora mismo", "urgente", "lo antes posible",
		"cuanto antes", "este mes", "asap", "immediately", "right away", "now",
	}, "Quiere mudarse de inmediato"},
	{TierTimingLongTerm, []string{
		"largo plazo", "mas adelante", "mas de un ano", "dos anos", "2 anos", "proximos anos",
		"long term", "few years", "couple of years",
	}, "Horizonte de largo plazo"},
	{TierTimingOneYear, []string{
		"un ano", "1 ano", "12 meses", "doce meses", "este ano", "fin de ano", "ano que viene",
		"proximo ano", "within a year", "next year", "this year",
	}, "Planea concretar dentro del año"},
	{TierTimingSixMonths, []string{
		"mes", "meses", "un mes", "pocos meses", "seis meses", "6 meses", "tres meses", "3 meses",
		"corto plazo", "months", "soon", "pronto",
	}, "Planea concretar en los próximos meses"},
	{TierTimingFlexible, []string{
		"flexible", "sin apuro", "no tengo apuro", "cuando sea", "indistinto", "depende", "no se", "whenever",
	}, "Plazo flexible"},
}

// horizonRegex matches an explicit count of months or years in folded text.
var horizonRegex = regexp.MustCompile(` (mas de |more than )?(\d{1,3}|[a-z]+) (mes|meses|ano|anos|month|months|year|years) `)

var spelledCounts = map[string]int{
	"un": 1, "uno": 1, "una": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5, "seis": 6,
	"siete": 7, "ocho": 8, "nueve": 9, "diez": 10, "once": 11, "doce": 12, "quince": 15,
	"dieciocho": 18, "veinte": 20, "veinticuatro": 24, "treinta": 30,
	"one": 1, "two": 2, "three": 3, "six": 6, "twelve": 12, "eighteen": 18,
}

// timingHorizon reads "18 meses", "dos años" or "más de un año" as a tier. ok is false when
// the text carries no explicit count.
func timingHorizon(text string) (tier string, ok bool) {
	m := horizonRegex.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	count, err := strconv.Atoi(m[2])
	if err != nil {
		spelled, known := spelledCounts[m[2]]
		if !known {
			return "", false
		}
		count = spelled
	}
	months := count
	if strings.HasPrefix(m[3], "ano") || strings.HasPrefix(m[3], "year") {
		months = count * 12
	}
	if m[1] != "" {
		months++
	}
	switch {
	case months <= 6:
		return TierTimingSixMonths, true
	case months <= 12:
		return TierTimingOneYear, true
	default:
		return TierTimingLongTerm, true
	}
}

func evaluateTiming(fields domain.QualificationFields) ruleOutcome {
	if fields.Timing == nil || strings.TrimSpace(*fields.Timing) == "" {
		return ruleOutcome{Tier: TierNoData, Reason: "El lead no indicó plazos"}
	}
	text := wordText(*fields.Timing)
	if tier, ok := timingHorizon(text); ok {
		for _, group := range timingKeywords {
			if group.tier == tier {
				return ruleOutcome{Tier: tier, Reason: group.reasonES}
			}
		}
	}
	for _, group := range timingKeywords {
		for _, phrase := range group.phrases {
			if containsPhrase(text, phrase) {
				return ruleOutcome{Tier: group.tier, Reason: group.reasonES}
			}
		}
	}
	return ruleOutcome{Tier: TierTimingFlexible, Reason: strings.TrimSpace(*fields.Timing)}
}

func evaluateIntent(fields domain.QualificationFields) ruleOutcome {
	switch {
	case fields.IsInvestor != nil && *fields.IsInvestor:
		return ruleOutcome{Tier: TierIntentInvestor, Reason: "Perfil inversor"}
	case fields.NeedsFinancing != nil && *fields.NeedsFinancing:
		return ruleOutcome{Tier: TierIntentHigh, Reason: "Consulta por financiación"}
	case fields.HasCoreField(domain.FieldName) && fields.HasCoreField(domain.FieldBudget) && fields.HasCoreField(domain.FieldZones):
		return ruleOutcome{Tier: TierIntentHigh, Reason: "Compartió nombre, presupuesto y zona"}
	case !fields.IsEmpty():
		return ruleOutcome{Tier: TierIntentExploring, Reason: "Está explorando opciones"}
	default:
		return ruleOutcome{Tier: TierNoData, Reason: "Sin señales de intención"}
	}
}

func evaluateConversation(metrics *domain.ConversationMetrics) ruleOutcome {
	if metrics == nil {
		return ruleOutcome{Tier: TierConversationModerate, Reason: "Sin métricas de conversación"}
	}
	reason := fmt.Sprintf("%d mensajes, respuesta promedio %.0fs", metrics.MessageCount, metrics.AvgResponseSeconds)
	switch {
	case metrics.MessageCount >= 10 && metrics.AvgResponseSeconds < 60:
		return ruleOutcome{Tier: TierConversationExcellent, Reason: reason}
	case metrics.MessageCount >= 5 && metrics.AvgResponseSeconds < 300:
		return ruleOutcome{Tier: TierConversationGood, Reason: reason}
	case metrics.MessageCount >= 2:
		return ruleOutcome{Tier: TierConversationModerate, Reason: reason}
	default:
		return ruleOutcome{Tier: TierConversationLow, Reason: reason}
	}
}

// finePreferenceBonus is proportional to the filled fine preferences.
func finePreferenceBonus(fields domain.QualificationFields) int {
	filled := fields.FilledFinePreferences()
	return int(math.Round(float64(filled) / float64(domain.FinePreferenceCount) * FinePreferenceBonusMax))
}
