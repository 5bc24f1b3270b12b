package qualification

import (
	"fmt"
	"strings"

	"converzia_backend/internal/qualification/domain"
)

var missingFieldQuestions = map[string]string{
	domain.FieldName:     "¿Con quién tengo el gusto de hablar?",
	domain.FieldBudget:   "¿Qué presupuesto aproximado estás manejando?",
	domain.FieldZones:    "¿En qué zonas te gustaría vivir o invertir?",
	domain.FieldTiming:   "¿Para cuándo estarías buscando concretar?",
	domain.FieldPurpose:  "¿La propiedad sería para vivienda propia o para inversión?",
	domain.FieldBedrooms: "¿Cuántos dormitorios necesitás?",
}

const (
	readyReply   = "¡Gracias! Ya tengo todo lo necesario. Un asesor se va a comunicar con vos a la brevedad."
	genericReply = "¡Gracias por tu mensaje! Enseguida seguimos."
)

// fallbackReply is sent when the reply generator fails. It asks for the first
// missing core field so the conversation keeps moving.
func fallbackReply(ready bool, missing []string) string {
	if ready {
		return readyReply
	}
	for _, field := range missing {
		if q, ok := missingFieldQuestions[field]; ok {
			return "¡Gracias! " + q
		}
	}
	return genericReply
}

// fallbackSummary describes a lead for the developer when the summarizer
// fails: the size of the conversation, then the score and the core fields.
// A negative messageCount means the history could not be read.
func fallbackSummary(lo domain.LeadOffer, explanation string, messageCount int) string {
	var b strings.Builder
	switch {
	case messageCount == 1:
		b.WriteString("Conversación de 1 mensaje con el lead.")
	case messageCount >= 0:
		fmt.Fprintf(&b, "Conversación de %d mensajes con el lead.", messageCount)
	default:
		b.WriteString("Conversación con el lead.")
	}
	if explanation != "" {
		b.WriteString(" " + explanation)
	} else if lo.ScoreTotal != nil {
		fmt.Fprintf(&b, " Lead listo para el desarrollador: %d/100.", *lo.ScoreTotal)
	}
	f := lo.Fields
	if f.Name != nil {
		fmt.Fprintf(&b, " Nombre: %s.", *f.Name)
	}
	if len(f.Zones) > 0 {
		fmt.Fprintf(&b, " Zonas: %s.", strings.Join(f.Zones, ", "))
	}
	if f.Timing != nil {
		fmt.Fprintf(&b, " Plazo: %s.", *f.Timing)
	}
	if f.Purpose != nil {
		fmt.Fprintf(&b, " Propósito: %s.", *f.Purpose)
	}
	return b.String()
}
