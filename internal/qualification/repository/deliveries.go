package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"converzia_backend/internal/qualification/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateDelivery stores the hand-off snapshot. A lead offer is delivered at
// most once: repeated calls return the existing delivery id.
func (r *Repository) CreateDelivery(ctx context.Context, delivery domain.Delivery) (uuid.UUID, error) {
	fieldsJSON, err := json.Marshal(delivery.Fields)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode delivery fields: %w", err)
	}
	breakdown := delivery.ScoreBreakdown
	if breakdown == nil {
		breakdown = map[string]int{}
	}
	breakdownJSON, err := json.Marshal(breakdown)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode delivery breakdown: %w", err)
	}
	id := delivery.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	var created uuid.UUID
	err = r.pool.QueryRow(ctx, `
		INSERT INTO deliveries (id, lead_offer_id, tenant_id, lead_id, offer_id, fields_snapshot, score, score_breakdown, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (lead_offer_id) DO NOTHING
		RETURNING id
	`, id, delivery.LeadOfferID, delivery.TenantID, delivery.LeadID, delivery.OfferID,
		fieldsJSON, delivery.Score, breakdownJSON, delivery.Summary).Scan(&created)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("insert delivery: %w", err)
	}

	err = r.pool.QueryRow(ctx, `SELECT id FROM deliveries WHERE lead_offer_id = $1`, delivery.LeadOfferID).Scan(&created)
	if err != nil {
		return uuid.Nil, fmt.Errorf("load existing delivery: %w", err)
	}
	return created, nil
}
