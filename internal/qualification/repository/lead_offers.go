package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"converzia_backend/internal/qualification/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const leadOfferColumns = `
	lo.id, lo.tenant_id, lo.lead_id, lo.offer_id, lo.status, lo.qualification_fields,
	lo.score_total, lo.score_breakdown, lo.contact_attempts, lo.last_attempt_at,
	lo.next_attempt_at, lo.first_response_at, lo.last_inbound_at, lo.scored_at,
	lo.qualified_at, lo.reactivation_count, lo.disqualification_category,
	lo.disqualification_reason, lo.status_changed_at, lo.version, lo.created_at, lo.updated_at`

func scanLeadOffer(row pgx.Row) (domain.LeadOffer, error) {
	var lo domain.LeadOffer
	var status string
	var fieldsJSON, breakdownJSON []byte
	var category *string

	if err := row.Scan(
		&lo.ID, &lo.TenantID, &lo.LeadID, &lo.OfferID, &status, &fieldsJSON,
		&lo.ScoreTotal, &breakdownJSON, &lo.ContactAttempts, &lo.LastAttemptAt,
		&lo.NextAttemptAt, &lo.FirstResponseAt, &lo.LastInboundAt, &lo.ScoredAt,
		&lo.QualifiedAt, &lo.ReactivationCount, &category,
		&lo.DisqualificationReason, &lo.StatusChangedAt, &lo.Version, &lo.CreatedAt, &lo.UpdatedAt,
	); err != nil {
		return domain.LeadOffer{}, err
	}

	lo.Status = domain.Status(status)
	lo.Fields = domain.NewQualificationFields()
	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &lo.Fields); err != nil {
			return domain.LeadOffer{}, fmt.Errorf("decode qualification fields: %w", err)
		}
	}
	if len(breakdownJSON) > 0 {
		if err := json.Unmarshal(breakdownJSON, &lo.ScoreBreakdown); err != nil {
			return domain.LeadOffer{}, fmt.Errorf("decode score breakdown: %w", err)
		}
	}
	if category != nil {
		c := domain.DisqualificationCategory(*category)
		lo.DisqualificationCategory = &c
	}
	return lo, nil
}

func (r *Repository) GetLeadOffer(ctx context.Context, id uuid.UUID) (domain.LeadOffer, error) {
	lo, err := scanLeadOffer(r.pool.QueryRow(ctx, `
		SELECT `+leadOfferColumns+`
		FROM lead_offers lo
		WHERE lo.id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LeadOffer{}, ErrNotFound
	}
	return lo, err
}

func (r *Repository) GetLeadOfferForTenant(ctx context.Context, tenantID, id uuid.UUID) (domain.LeadOffer, error) {
	lo, err := scanLeadOffer(r.pool.QueryRow(ctx, `
		SELECT `+leadOfferColumns+`
		FROM lead_offers lo
		WHERE lo.id = $1 AND lo.tenant_id = $2
	`, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LeadOffer{}, ErrNotFound
	}
	return lo, err
}

// FindActiveByPhone returns the most recently active, non-terminal lead offer
// of the lead with the given E.164 phone.
func (r *Repository) FindActiveByPhone(ctx context.Context, phone string) (domain.LeadOffer, error) {
	lo, err := scanLeadOffer(r.pool.QueryRow(ctx, `
		SELECT `+leadOfferColumns+`
		FROM lead_offers lo
		JOIN leads l ON l.id = lo.lead_id
		WHERE l.phone = $1
		  AND lo.status NOT IN ('DISQUALIFIED', 'STOPPED', 'SENT_TO_DEVELOPER', 'PENDING_MAPPING')
		ORDER BY lo.status_changed_at DESC
		LIMIT 1
	`, phone))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LeadOffer{}, ErrNotFound
	}
	return lo, err
}

// ListCoolingBefore returns COOLING lead offers that have not moved since
// cutoff. Offers whose reactivation failed after cutoff are skipped, so they
// cannot fill every batch.
func (r *Repository) ListCoolingBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id
		FROM lead_offers
		WHERE status = 'COOLING' AND status_changed_at < $1
		  AND (reactivation_failed_at IS NULL OR reactivation_failed_at < $1)
		ORDER BY reactivation_failed_at ASC NULLS FIRST, status_changed_at ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkReactivationFailed stamps a COOLING lead offer whose reactivation failed.
func (r *Repository) MarkReactivationFailed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE lead_offers
		SET reactivation_failed_at = $2
		WHERE id = $1 AND status = 'COOLING'
	`, id, at)
	return err
}

// CreateLeadOffer inserts a new lead offer and its creation events atomically.
func (r *Repository) CreateLeadOffer(ctx context.Context, lo domain.LeadOffer, events []domain.EventRecord) error {
	fieldsJSON, breakdownJSON, err := encodeLeadOffer(lo)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO lead_offers (
			id, tenant_id, lead_id, offer_id, status, qualification_fields, score_breakdown,
			status_changed_at, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`, lo.ID, lo.TenantID, lo.LeadID, lo.OfferID, string(lo.Status), fieldsJSON, breakdownJSON,
		lo.StatusChangedAt, lo.Version, lo.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert lead offer: %w", err)
	}

	if err := insertEvents(ctx, tx, events); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ApplyTransition writes the next state of a lead offer if nobody else has
// written it since ExpectedVersion, appending events and messages in the same
// transaction. It returns the new version.
func (r *Repository) ApplyTransition(ctx context.Context, params TransitionParams) (int, error) {
	lo := params.Next
	fieldsJSON, breakdownJSON, err := encodeLeadOffer(lo)
	if err != nil {
		return 0, err
	}
	var category *string
	if lo.DisqualificationCategory != nil {
		c := string(*lo.DisqualificationCategory)
		category = &c
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var version int
	err = tx.QueryRow(ctx, `
		UPDATE lead_offers SET
			offer_id = $3,
			status = $4,
			qualification_fields = $5,
			score_total = $6,
			score_breakdown = $7,
			contact_attempts = $8,
			last_attempt_at = $9,
			next_attempt_at = $10,
			first_response_at = $11,
			last_inbound_at = $12,
			scored_at = $13,
			qualified_at = $14,
			reactivation_count = $15,
			disqualification_category = $16,
			disqualification_reason = $17,
			status_changed_at = $18,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version
	`, lo.ID, params.ExpectedVersion, lo.OfferID, string(lo.Status), fieldsJSON, lo.ScoreTotal,
		breakdownJSON, lo.ContactAttempts, lo.LastAttemptAt, lo.NextAttemptAt, lo.FirstResponseAt,
		lo.LastInboundAt, lo.ScoredAt, lo.QualifiedAt, lo.ReactivationCount, category,
		lo.DisqualificationReason, lo.StatusChangedAt).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrVersionConflict
	}
	if err != nil {
		return 0, fmt.Errorf("update lead offer: %w", err)
	}

	if err := insertEvents(ctx, tx, params.Events); err != nil {
		return 0, err
	}
	for _, msg := range params.Messages {
		if _, err := insertMessage(ctx, tx, msg); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return version, nil
}

func encodeLeadOffer(lo domain.LeadOffer) ([]byte, []byte, error) {
	fieldsJSON, err := json.Marshal(lo.Fields)
	if err != nil {
		return nil, nil, fmt.Errorf("encode qualification fields: %w", err)
	}
	var breakdownJSON []byte
	if lo.ScoreBreakdown != nil {
		breakdownJSON, err = json.Marshal(lo.ScoreBreakdown)
		if err != nil {
			return nil, nil, fmt.Errorf("encode score breakdown: %w", err)
		}
	}
	return fieldsJSON, breakdownJSON, nil
}
