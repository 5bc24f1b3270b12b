package agent

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/adk/agent/llmagent"

	"converzia_backend/internal/qualification/domain"
	"converzia_backend/internal/qualification/ports"
)

// historyWindow is how many trailing messages are shown to the models.
const historyWindow = 12

var fieldLabels = map[string]string{
	domain.FieldName:     "nombre",
	domain.FieldBudget:   "presupuesto",
	domain.FieldZones:    "zonas",
	domain.FieldTiming:   "plazo",
	domain.FieldPurpose:  "propósito (vivienda o inversión)",
	domain.FieldBedrooms: "dormitorios",
}

// Responder is the ports.ReplyGenerator that writes the next WhatsApp turn.
type Responder struct {
	turn *singleTurn
}

var _ ports.ReplyGenerator = (*Responder)(nil)

func NewResponder(cfg Config) (*Responder, error) {
	turn, err := newSingleTurn("qualification-responder", llmagent.Config{
		Name:        "LeadResponder",
		Model:       cfg.model(false),
		Description: "Writes short WhatsApp replies that qualify real-estate leads.",
		Instruction: responderInstruction,
	})
	if err != nil {
		return nil, err
	}
	return &Responder{turn: turn}, nil
}

func (r *Responder) Generate(ctx context.Context, input ports.ReplyInput) (string, error) {
	return r.turn.run(ctx, "responder", BuildReplyPrompt(input))
}

// BuildReplyPrompt renders the conversation state for the responder.
func BuildReplyPrompt(input ports.ReplyInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Proyecto: %s\n", orDash(input.OfferName))
	fmt.Fprintf(&b, "Lead: %s\n", orDash(input.LeadName))
	fmt.Fprintf(&b, "Estado: %s\n", input.Status)

	if input.Ready {
		b.WriteString("El lead ya está calificado: agradecé y avisá que un asesor lo va a contactar. No hagas más preguntas.\n")
	} else if len(input.Missing) > 0 {
		labels := make([]string, 0, len(input.Missing))
		for _, field := range input.Missing {
			if label, ok := fieldLabels[field]; ok {
				labels = append(labels, label)
			}
		}
		fmt.Fprintf(&b, "Datos que faltan: %s\n", strings.Join(labels, ", "))
	}

	b.WriteString("\nConversación:\n")
	b.WriteString(renderHistory(input.History))
	if input.InboundText != "" && !endsWithInbound(input.History, input.InboundText) {
		fmt.Fprintf(&b, "Lead: %s\n", input.InboundText)
	}
	return b.String()
}

func renderHistory(history []domain.Message) string {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	var b strings.Builder
	for _, msg := range history {
		speaker := "Asesor"
		if msg.Direction == domain.DirectionInbound {
			speaker = "Lead"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, strings.TrimSpace(msg.Content))
	}
	return b.String()
}

func endsWithInbound(history []domain.Message, text string) bool {
	if len(history) == 0 {
		return false
	}
	last := history[len(history)-1]
	return last.Direction == domain.DirectionInbound && strings.TrimSpace(last.Content) == strings.TrimSpace(text)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

const responderInstruction = `Sos un asesor inmobiliario que conversa por WhatsApp con personas interesadas en un proyecto.
Tu objetivo es conocer, de a una pregunta por vez, los datos que faltan.

Reglas:
- Español rioplatense, tono cálido y profesional, máximo 2 oraciones.
- Hacé como mucho una pregunta por mensaje, sobre el primer dato que falte.
- No inventes precios, disponibilidad ni características del proyecto.
- No prometas nada en nombre del desarrollador.
- Devolvé solo el texto del mensaje, sin comillas ni formato.`
