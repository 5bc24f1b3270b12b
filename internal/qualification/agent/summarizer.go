package agent

import (
	"context"

	"google.golang.org/adk/agent/llmagent"

	"converzia_backend/internal/qualification/domain"
	"converzia_backend/internal/qualification/ports"
)

// Summarizer condenses a qualified conversation for the developer.
type Summarizer struct {
	turn *singleTurn
}

var _ ports.Summarizer = (*Summarizer)(nil)

func NewSummarizer(cfg Config) (*Summarizer, error) {
	turn, err := newSingleTurn("qualification-summarizer", llmagent.Config{
		Name:        "LeadSummarizer",
		Model:       cfg.model(false),
		Description: "Summarizes a qualified lead conversation for the sales team.",
		Instruction: summarizerInstruction,
	})
	if err != nil {
		return nil, err
	}
	return &Summarizer{turn: turn}, nil
}

func (s *Summarizer) Summarize(ctx context.Context, history []domain.Message) (string, error) {
	if len(history) == 0 {
		return "", nil
	}
	return s.turn.run(ctx, "summarizer", "Conversación:\n"+renderHistory(history))
}

const summarizerInstruction = `Resumí en 3 a 5 oraciones, en español, lo que busca este lead inmobiliario:
presupuesto, zonas, tipología, plazo, propósito y cualquier preferencia relevante.
Usá solo lo que dijo el lead. No incluyas teléfono ni email.`
