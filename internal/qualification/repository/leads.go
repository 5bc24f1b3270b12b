package repository

import (
	"context"
	"errors"

	"converzia_backend/internal/qualification/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) GetLeadContact(ctx context.Context, leadID uuid.UUID) (domain.LeadContact, error) {
	var lead domain.LeadContact
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, phone, COALESCE(name, '')
		FROM leads
		WHERE id = $1
	`, leadID).Scan(&lead.ID, &lead.TenantID, &lead.Phone, &lead.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LeadContact{}, ErrLeadNotFound
	}
	return lead, err
}

// EnsureLead returns the tenant's lead with the given phone, creating it when
// missing. A known name is never replaced by an empty one.
func (r *Repository) EnsureLead(ctx context.Context, lead domain.LeadContact) (domain.LeadContact, error) {
	id := lead.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	var name *string
	if lead.Name != "" {
		name = &lead.Name
	}

	var out domain.LeadContact
	err := r.pool.QueryRow(ctx, `
		INSERT INTO leads (id, tenant_id, phone, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, phone) DO UPDATE
			SET name = COALESCE(EXCLUDED.name, leads.name)
		RETURNING id, tenant_id, phone, COALESCE(name, '')
	`, id, lead.TenantID, lead.Phone, name).Scan(&out.ID, &out.TenantID, &out.Phone, &out.Name)
	return out, err
}

func (r *Repository) GetOffer(ctx context.Context, offerID uuid.UUID) (domain.Offer, error) {
	var offer domain.Offer
	var zone, city *string
	var bedrooms []int32
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, offer_type, zone, city, price_from::float8, price_to::float8,
			currency, property_types, bedrooms
		FROM offers
		WHERE id = $1
	`, offerID).Scan(&offer.ID, &offer.TenantID, &offer.Name, &offer.OfferType, &zone, &city,
		&offer.PriceFrom, &offer.PriceTo, &offer.Currency, &offer.PropertyTypes, &bedrooms)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Offer{}, ErrOfferNotFound
	}
	if err != nil {
		return domain.Offer{}, err
	}
	if zone != nil {
		offer.Zone = *zone
	}
	if city != nil {
		offer.City = *city
	}
	for _, b := range bedrooms {
		offer.Bedrooms = append(offer.Bedrooms, int(b))
	}
	return offer, nil
}
