package domain

import (
	"time"

	"github.com/google/uuid"
)

// LeadOffer pairs one lead with one candidate offer and carries its lifecycle.
type LeadOffer struct {
	ID                       uuid.UUID                 `json:"id"`
	TenantID                 uuid.UUID                 `json:"tenantId"`
	LeadID                   uuid.UUID                 `json:"leadId"`
	OfferID                  *uuid.UUID                `json:"offerId,omitempty"`
	Status                   Status                    `json:"status"`
	Fields                   QualificationFields       `json:"qualificationFields"`
	ScoreTotal               *int                      `json:"scoreTotal,omitempty"`
	ScoreBreakdown           map[string]int            `json:"scoreBreakdown,omitempty"`
	ContactAttempts          int                       `json:"contactAttempts"`
	LastAttemptAt            *time.Time                `json:"lastAttemptAt,omitempty"`
	NextAttemptAt            *time.Time                `json:"nextAttemptAt,omitempty"`
	FirstResponseAt          *time.Time                `json:"firstResponseAt,omitempty"`
	LastInboundAt            *time.Time                `json:"lastInboundAt,omitempty"`
	ScoredAt                 *time.Time                `json:"scoredAt,omitempty"`
	QualifiedAt              *time.Time                `json:"qualifiedAt,omitempty"`
	ReactivationCount        int                       `json:"reactivationCount"`
	DisqualificationCategory *DisqualificationCategory `json:"disqualificationCategory,omitempty"`
	DisqualificationReason   *string                   `json:"disqualificationReason,omitempty"`
	StatusChangedAt          time.Time                 `json:"statusChangedAt"`
	Version                  int                       `json:"version"`
	CreatedAt                time.Time                 `json:"createdAt"`
	UpdatedAt                time.Time                 `json:"updatedAt"`
}

// Clone returns a deep copy so that step functions never alias the input.
func (lo LeadOffer) Clone() LeadOffer {
	out := lo
	out.Fields = lo.Fields.clone()
	if lo.ScoreBreakdown != nil {
		out.ScoreBreakdown = make(map[string]int, len(lo.ScoreBreakdown))
		for k, v := range lo.ScoreBreakdown {
			out.ScoreBreakdown[k] = v
		}
	}
	return out
}

// LeadContact is what the orchestrator needs to reach a lead.
type LeadContact struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenantId"`
	Phone    string    `json:"phone"`
	Name     string    `json:"name"`
}

// Offer is a listing a lead can be matched against.
type Offer struct {
	ID            uuid.UUID `json:"id"`
	TenantID      uuid.UUID `json:"tenantId"`
	Name          string    `json:"name"`
	OfferType     string    `json:"offerType"`
	Zone          string    `json:"zone"`
	City          string    `json:"city"`
	PriceFrom     *float64  `json:"priceFrom,omitempty"`
	PriceTo       *float64  `json:"priceTo,omitempty"`
	Currency      string    `json:"currency"`
	PropertyTypes []string  `json:"propertyTypes,omitempty"`
	Bedrooms      []int     `json:"bedrooms,omitempty"`
}

// DefaultOfferType is used for template resolution when no offer is mapped.
const DefaultOfferType = "PROPERTY"

// TypeOrDefault returns the offer type used to resolve scoring templates.
func (o *Offer) TypeOrDefault() string {
	if o == nil || o.OfferType == "" {
		return DefaultOfferType
	}
	return o.OfferType
}
