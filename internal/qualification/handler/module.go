// Package handler exposes the qualification orchestrator over HTTP: the
// tenant-scoped lead-offer commands and the WhatsApp inbound webhook.
package handler

import (
	"context"
	"time"

	apphttp "converzia_backend/internal/http"
	"converzia_backend/platform/config"
	"converzia_backend/platform/httpkit"
	"converzia_backend/platform/logger"
	"converzia_backend/platform/validator"
)

const (
	webhookBurst         = 20
	limiterSweepInterval = time.Minute
	limiterIdleTimeout   = 10 * time.Minute
)

// Module is the qualification bounded context module implementing http.Module.
type Module struct {
	handler      *Handler
	webhook      *WebhookHandler
	limiter      *httpkit.IPRateLimiter
	webhookToken string
}

func NewModule(svc Service, val *validator.Validator, cfg config.HTTPConfig, log *logger.Logger) *Module {
	perSecond := cfg.GetWebhookRateLimit()
	if perSecond <= 0 {
		perSecond = 10
	}
	return &Module{
		handler:      New(svc, val),
		webhook:      NewWebhookHandler(svc, log),
		limiter:      httpkit.NewIPRateLimiter(perSecond, webhookBurst, log),
		webhookToken: cfg.GetWebhookToken(),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "qualification"
}

// RegisterRoutes mounts the module routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Gateway webhook (shared-secret header, no JWT)
	ctx.Engine.POST("/webhooks/whatsapp",
		m.limiter.RateLimit(),
		httpkit.WebhookTokenRequired(m.webhookToken),
		m.webhook.HandleWhatsApp,
	)

	m.handler.RegisterRoutes(ctx.Protected.Group("/lead-offers"))
	ctx.Protected.GET("/funnel", m.handler.Funnel)

	if m.handler.templates != nil {
		ctx.Admin.POST("/scoring-templates/invalidate", m.handler.InvalidateTemplate)
	}
}

// SetTemplateCache enables the admin endpoint that drops cached scoring
// templates. Must be called before RegisterRoutes.
func (m *Module) SetTemplateCache(cache TemplateCache) {
	m.handler.templates = cache
}

// RunLimiterSweep evicts idle webhook rate limiters until ctx is done.
func (m *Module) RunLimiterSweep(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.limiter.Sweep(limiterIdleTimeout)
		}
	}
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
