package repository

import (
	"context"
	"fmt"

	"converzia_backend/internal/qualification/domain"

	"github.com/google/uuid"
)

func insertMessage(ctx context.Context, db execer, msg domain.Message) (bool, error) {
	tag, err := db.Exec(ctx, `
		INSERT INTO conversation_messages (id, lead_offer_id, direction, content, external_id, delivered, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (lead_offer_id, external_id) WHERE external_id IS NOT NULL DO NOTHING
	`, msg.ID, msg.LeadOfferID, string(msg.Direction), msg.Content, msg.ExternalID, msg.Delivered, msg.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert message: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AppendMessage stores a message outside of a transition. A repeated external
// id yields ErrDuplicateMessage.
func (r *Repository) AppendMessage(ctx context.Context, msg domain.Message) error {
	inserted, err := insertMessage(ctx, r.pool, msg)
	if err != nil {
		return err
	}
	if !inserted {
		return ErrDuplicateMessage
	}
	return nil
}

func (r *Repository) MessageExists(ctx context.Context, leadOfferID uuid.UUID, externalID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM conversation_messages WHERE lead_offer_id = $1 AND external_id = $2
		)
	`, leadOfferID, externalID).Scan(&exists)
	return exists, err
}

// ListMessages returns the conversation in chronological order.
func (r *Repository) ListMessages(ctx context.Context, leadOfferID uuid.UUID) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_offer_id, direction, content, external_id, delivered, created_at
		FROM conversation_messages
		WHERE lead_offer_id = $1
		ORDER BY created_at ASC, id ASC
	`, leadOfferID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Message, 0)
	for rows.Next() {
		var msg domain.Message
		var direction string
		if err := rows.Scan(&msg.ID, &msg.LeadOfferID, &direction, &msg.Content, &msg.ExternalID, &msg.Delivered, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Direction = domain.Direction(direction)
		items = append(items, msg)
	}
	return items, rows.Err()
}
