package domain

import (
	"time"

	"github.com/google/uuid"
)

// Delivery is the snapshot handed to the developer once a lead is ready.
type Delivery struct {
	ID             uuid.UUID           `json:"id"`
	LeadOfferID    uuid.UUID           `json:"leadOfferId"`
	TenantID       uuid.UUID           `json:"tenantId"`
	LeadID         uuid.UUID           `json:"leadId"`
	OfferID        *uuid.UUID          `json:"offerId,omitempty"`
	Fields         QualificationFields `json:"qualificationFields"`
	Score          int                 `json:"score"`
	ScoreBreakdown map[string]int      `json:"scoreBreakdown"`
	Summary        string              `json:"summary"`
	CreatedAt      time.Time           `json:"createdAt"`
}
