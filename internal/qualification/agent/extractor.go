package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"google.golang.org/adk/agent/llmagent"

	"converzia_backend/internal/qualification/domain"
	"converzia_backend/internal/qualification/ports"
)

// ErrInvalidExtraction is returned when the model output is not a JSON object
// matching the extraction schema.
var ErrInvalidExtraction = errors.New("extraction output rejected")

// extractionSchema constrains the model output to the FieldsPatch shape.
// Unknown properties are rejected so that a drifting prompt fails loudly.
const extractionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "email": {"type": "string"},
    "budget": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "min": {"type": "number", "exclusiveMinimum": 0},
        "max": {"type": "number", "exclusiveMinimum": 0},
        "currency": {"type": "string"}
      }
    },
    "zones": {"type": "array", "items": {"type": "string"}},
    "bedrooms": {"type": "integer", "minimum": 0},
    "bathrooms": {"type": "integer", "minimum": 0},
    "propertyType": {"type": "string"},
    "timing": {"type": "string"},
    "purpose": {"type": "string"},
    "garage": {"type": "boolean"},
    "amenities": {"type": "array", "items": {"type": "string"}},
    "floorPreference": {"type": "string"},
    "orientation": {"type": "string"},
    "balcony": {"type": "boolean"},
    "terrace": {"type": "boolean"},
    "petsAllowed": {"type": "boolean"},
    "minArea": {"type": "number"},
    "maxArea": {"type": "number"},
    "needsFinancing": {"type": "boolean"},
    "mortgagePreapproved": {"type": "boolean"},
    "isInvestor": {"type": "boolean"},
    "consentEvidence": {"type": "string"}
  }
}`

var extractionSchemaLoader = gojsonschema.NewStringLoader(extractionSchema)

// Extractor is the ports.FieldExtractor backed by a JSON-mode agent.
type Extractor struct {
	turn *singleTurn
}

var _ ports.FieldExtractor = (*Extractor)(nil)

func NewExtractor(cfg Config) (*Extractor, error) {
	turn, err := newSingleTurn("qualification-extractor", llmagent.Config{
		Name:        "FieldExtractor",
		Model:       cfg.model(true),
		Description: "Extracts structured real-estate search criteria from a lead's message.",
		Instruction: extractorInstruction,
	})
	if err != nil {
		return nil, err
	}
	return &Extractor{turn: turn}, nil
}

// Extract returns only what the lead stated in message.
func (e *Extractor) Extract(ctx context.Context, message string, current domain.QualificationFields) (domain.FieldsPatch, error) {
	known, err := json.Marshal(current)
	if err != nil {
		return domain.FieldsPatch{}, fmt.Errorf("extract: encode known fields: %w", err)
	}
	prompt := fmt.Sprintf("Datos ya conocidos:\n%s\n\nMensaje del lead:\n%s", known, message)

	output, err := e.turn.run(ctx, "extractor", prompt)
	if err != nil {
		return domain.FieldsPatch{}, err
	}
	return ParseExtraction(output)
}

// ParseExtraction validates raw model output against the extraction schema
// and decodes it. Markdown code fences around the JSON are tolerated.
func ParseExtraction(output string) (domain.FieldsPatch, error) {
	raw := stripCodeFence(output)
	if raw == "" {
		return domain.FieldsPatch{}, nil
	}

	result, err := gojsonschema.Validate(extractionSchemaLoader, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return domain.FieldsPatch{}, fmt.Errorf("%w: %v", ErrInvalidExtraction, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return domain.FieldsPatch{}, fmt.Errorf("%w: %s", ErrInvalidExtraction, strings.Join(errs, "; "))
	}

	var patch domain.FieldsPatch
	if err := json.Unmarshal([]byte(raw), &patch); err != nil {
		return domain.FieldsPatch{}, fmt.Errorf("%w: %v", ErrInvalidExtraction, err)
	}
	return patch, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

const extractorInstruction = `Sos un extractor de datos para una inmobiliaria. Recibís los datos ya conocidos de un lead y su último mensaje.

Devolvé SOLO un objeto JSON con los campos que el lead dijo explícitamente en este mensaje:
name, email, budget {min, max, currency}, zones, bedrooms, bathrooms, propertyType, timing, purpose,
garage, amenities, floorPreference, orientation, balcony, terrace, petsAllowed, minArea, maxArea,
needsFinancing, mortgagePreapproved, isInvestor, consentEvidence.

Reglas:
- No inventes ni deduzcas valores. Si un dato no aparece, omití el campo.
- Montos como números (ej. "120 mil dólares" => {"min": 120000, "currency": "USD"}).
- timing y purpose con las palabras del lead (ej. "inmediato", "para vivir", "inversión").
- consentEvidence solo si el lead acepta explícitamente ser contactado por un asesor; copiá sus palabras literales.
- Si no hay nada nuevo, devolvé {}.`
