package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"converzia_backend/internal/qualification/scoring"
	"converzia_backend/internal/qualification/templates"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var _ templates.Store = (*Repository)(nil)

const templateColumns = `id, tenant_id, offer_type, name, lead_ready_threshold, weights, rules`

func scanTemplate(row pgx.Row, source string) (scoring.Template, error) {
	var t scoring.Template
	var weightsJSON, rulesJSON []byte
	err := row.Scan(&t.ID, &t.TenantID, &t.OfferType, &t.Name, &t.LeadReadyThreshold, &weightsJSON, &rulesJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return scoring.Template{}, templates.ErrNotFound
	}
	if err != nil {
		return scoring.Template{}, err
	}
	if len(weightsJSON) > 0 {
		if err := json.Unmarshal(weightsJSON, &t.Weights); err != nil {
			return scoring.Template{}, fmt.Errorf("decode template weights: %w", err)
		}
	}
	if len(rulesJSON) > 0 {
		if err := json.Unmarshal(rulesJSON, &t.Rules); err != nil {
			return scoring.Template{}, fmt.Errorf("decode template rules: %w", err)
		}
	}
	t.Source = source
	return t, nil
}

// TenantTemplate returns the tenant's active template for an offer type.
func (r *Repository) TenantTemplate(ctx context.Context, tenantID uuid.UUID, offerType string) (scoring.Template, error) {
	return scanTemplate(r.pool.QueryRow(ctx, `
		SELECT `+templateColumns+`
		FROM scoring_templates
		WHERE tenant_id = $1 AND offer_type = $2 AND is_active
		ORDER BY updated_at DESC
		LIMIT 1
	`, tenantID, strings.ToUpper(offerType)), scoring.SourceTenant)
}

// GlobalTemplate returns the tenant-independent active template for an offer type.
func (r *Repository) GlobalTemplate(ctx context.Context, offerType string) (scoring.Template, error) {
	return scanTemplate(r.pool.QueryRow(ctx, `
		SELECT `+templateColumns+`
		FROM scoring_templates
		WHERE tenant_id IS NULL AND offer_type = $1 AND is_active
		ORDER BY updated_at DESC
		LIMIT 1
	`, strings.ToUpper(offerType)), scoring.SourceGlobal)
}
