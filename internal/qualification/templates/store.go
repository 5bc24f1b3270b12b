// Package templates resolves the scoring template for a tenant and offer type.
// Resolution order: tenant template, global template, file defaults, then the
// hard-coded fallback. Resolution never fails.
package templates

import (
	"context"
	"errors"

	"converzia_backend/internal/qualification/scoring"

	"github.com/google/uuid"
)

// ErrNotFound is returned by stores when no active template matches.
var ErrNotFound = errors.New("scoring template not found")

// Store reads persisted templates.
type Store interface {
	TenantTemplate(ctx context.Context, tenantID uuid.UUID, offerType string) (scoring.Template, error)
	GlobalStore
}

// GlobalStore reads tenant-independent templates.
type GlobalStore interface {
	GlobalTemplate(ctx context.Context, offerType string) (scoring.Template, error)
}
