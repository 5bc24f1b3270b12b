package templates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"converzia_backend/internal/qualification/scoring"
	"converzia_backend/platform/logger"
	"converzia_backend/platform/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Repository resolves templates through the cache, collapsing concurrent
// misses for the same key into one store lookup.
type Repository struct {
	store    Store
	defaults GlobalStore
	cache    Cache
	log      *logger.Logger
	group    singleflight.Group
}

var _ scoring.TemplateResolver = (*Repository)(nil)

// Option configures a Repository.
type Option func(*Repository)

// WithFileDefaults consults defaults after the store's global template.
func WithFileDefaults(defaults GlobalStore) Option {
	return func(r *Repository) { r.defaults = defaults }
}

// WithCache sets the cache collaborator. Without it nothing is cached.
func WithCache(cache Cache) Option {
	return func(r *Repository) { r.cache = cache }
}

// NewRepository creates a template repository. store may be nil.
func NewRepository(store Store, log *logger.Logger, opts ...Option) *Repository {
	if log == nil {
		log = logger.Nop()
	}
	r := &Repository{store: store, log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CacheKey is the cache key of a (tenant, offer type) pair.
func CacheKey(tenantID uuid.UUID, offerType string) string {
	return fmt.Sprintf("scoring_template:%s:%s", tenantID, normalizeOfferType(offerType))
}

func normalizeOfferType(offerType string) string {
	return strings.ToUpper(strings.TrimSpace(offerType))
}

type resolution struct {
	tpl       scoring.Template
	cacheable bool
}

// Resolve returns the template for tenantID and offerType. It never fails:
// store errors are logged and the next source is tried.
func (r *Repository) Resolve(ctx context.Context, tenantID uuid.UUID, offerType string) scoring.Template {
	offerType = normalizeOfferType(offerType)
	key := CacheKey(tenantID, offerType)

	if r.cache != nil {
		if tpl, ok := r.cache.Get(ctx, key); ok {
			metrics.TemplateResolutions.WithLabelValues("cache").Inc()
			return tpl
		}
	}

	v, _, _ := r.group.Do(key, func() (any, error) {
		res := r.lookup(ctx, tenantID, offerType)
		if res.cacheable && r.cache != nil {
			r.cache.Set(ctx, key, res.tpl)
		}
		return res, nil
	})
	tpl := v.(resolution).tpl
	metrics.TemplateResolutions.WithLabelValues(tpl.Source).Inc()
	return tpl
}

// Invalidate drops the cached template of a tenant and offer type.
func (r *Repository) Invalidate(ctx context.Context, tenantID uuid.UUID, offerType string) {
	if r.cache != nil {
		r.cache.Invalidate(ctx, CacheKey(tenantID, offerType))
	}
}

func (r *Repository) lookup(ctx context.Context, tenantID uuid.UUID, offerType string) resolution {
	cacheable := true

	if r.store != nil {
		tpl, err := r.store.TenantTemplate(ctx, tenantID, offerType)
		if ok, healthy := r.accept("tenant", tenantID, offerType, tpl, err); ok {
			tpl.Source = scoring.SourceTenant
			return resolution{tpl: tpl, cacheable: true}
		} else if !healthy {
			cacheable = false
		}

		tpl, err = r.store.GlobalTemplate(ctx, offerType)
		if ok, healthy := r.accept("global", tenantID, offerType, tpl, err); ok {
			tpl.Source = scoring.SourceGlobal
			return resolution{tpl: tpl, cacheable: cacheable}
		} else if !healthy {
			cacheable = false
		}
	}

	if r.defaults != nil {
		if tpl, err := r.defaults.GlobalTemplate(ctx, offerType); err == nil {
			tpl.Source = scoring.SourceFile
			return resolution{tpl: tpl, cacheable: cacheable}
		}
	}

	return resolution{tpl: scoring.FallbackTemplate(), cacheable: cacheable}
}

// accept reports whether a store answer is usable, and whether the store
// behaved (a miss is healthy, an error is not).
func (r *Repository) accept(level string, tenantID uuid.UUID, offerType string, tpl scoring.Template, err error) (ok, healthy bool) {
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, true
		}
		r.log.Warn("scoring template lookup failed",
			"level", level, "tenant_id", tenantID.String(), "offer_type", offerType, "error", err)
		return false, false
	}
	if verr := tpl.Validate(); verr != nil {
		r.log.Warn("scoring template rejected",
			"level", level, "tenant_id", tenantID.String(), "offer_type", offerType, "error", verr)
		return false, true
	}
	return true, true
}
