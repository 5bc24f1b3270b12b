package scoring

import (
	"context"

	"converzia_backend/internal/qualification/domain"

	"github.com/google/uuid"
)

// TemplateResolver returns the template to score with. Implementations never
// fail; the fallback template covers every configuration gap.
type TemplateResolver interface {
	Resolve(ctx context.Context, tenantID uuid.UUID, offerType string) Template
}

// Service resolves a template and runs the engine.
type Service struct {
	engine    Engine
	templates TemplateResolver
}

// NewService creates a scoring service. A nil resolver always scores with
// FallbackTemplate.
func NewService(templates TemplateResolver) *Service {
	return &Service{engine: NewEngine(), templates: templates}
}

// Score is deterministic given its inputs and the resolved template.
func (s *Service) Score(ctx context.Context, fields domain.QualificationFields, offer *domain.Offer, tenantID uuid.UUID, metrics *domain.ConversationMetrics) Result {
	tpl := FallbackTemplate()
	if s.templates != nil {
		tpl = s.templates.Resolve(ctx, tenantID, offer.TypeOrDefault())
	}
	return s.engine.Score(Input{Fields: fields, Offer: offer, Template: tpl, Metrics: metrics})
}
