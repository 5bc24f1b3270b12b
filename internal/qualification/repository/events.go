package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"converzia_backend/internal/qualification/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertEvents(ctx context.Context, tx pgx.Tx, events []domain.EventRecord) error {
	for _, ev := range events {
		payload := ev.Payload
		if payload == nil {
			payload = map[string]any{}
		}
		payloadJSON, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode event payload: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO lead_offer_events (id, lead_offer_id, type, actor, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, ev.ID, ev.LeadOfferID, string(ev.Type), string(ev.Actor), payloadJSON, ev.CreatedAt); err != nil {
			return fmt.Errorf("insert event %s: %w", ev.Type, err)
		}
	}
	return nil
}

// ListEvents returns the event log of a lead offer in chronological order.
func (r *Repository) ListEvents(ctx context.Context, leadOfferID uuid.UUID) ([]domain.EventRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_offer_id, type, actor, payload, created_at
		FROM lead_offer_events
		WHERE lead_offer_id = $1
		ORDER BY created_at ASC, id ASC
	`, leadOfferID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.EventRecord, 0)
	for rows.Next() {
		var ev domain.EventRecord
		var eventType, actor string
		var payloadJSON []byte
		if err := rows.Scan(&ev.ID, &ev.LeadOfferID, &eventType, &actor, &payloadJSON, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Type = domain.EventType(eventType)
		ev.Actor = domain.Actor(actor)
		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &ev.Payload); err != nil {
				return nil, fmt.Errorf("decode event payload: %w", err)
			}
		}
		items = append(items, ev)
	}
	return items, rows.Err()
}
