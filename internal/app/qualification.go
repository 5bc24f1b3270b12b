// Package app is the composition root shared by the API server and the
// scheduler worker. Both processes drive the same orchestrator; only the
// entry points differ.
package app

import (
	"context"
	"fmt"

	"converzia_backend/internal/events"
	"converzia_backend/internal/qualification"
	"converzia_backend/internal/qualification/agent"
	"converzia_backend/internal/qualification/machine"
	"converzia_backend/internal/qualification/repository"
	"converzia_backend/internal/qualification/retry"
	"converzia_backend/internal/qualification/templates"
	"converzia_backend/internal/scheduler"
	"converzia_backend/internal/whatsapp"
	"converzia_backend/platform/config"
	"converzia_backend/platform/logger"
	"converzia_backend/platform/phone"
	"converzia_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Qualification holds the wired orchestrator and the resources that must be
// released on shutdown.
type Qualification struct {
	Orchestrator *qualification.Orchestrator
	Templates    *templates.Repository
	EventBus     *events.InMemoryBus
	Validator    *validator.Validator

	closers []func() error
}

// NewQualification wires the orchestrator from configuration. Optional
// collaborators (language model, WhatsApp gateway, scheduler) are skipped
// with a warning when not configured.
func NewQualification(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, log *logger.Logger) (*Qualification, error) {
	q := &Qualification{
		EventBus:  events.NewInMemoryBus(log),
		Validator: validator.New(),
	}
	qualification.RegisterHandlers(q.EventBus, log)

	store := repository.New(pool)

	tpl, err := q.newTemplates(ctx, cfg, store, log)
	if err != nil {
		q.Close()
		return nil, err
	}
	q.Templates = tpl

	policy := retry.DefaultPolicy()
	if n := cfg.GetContactMaxAttempts(); n > 0 {
		policy.MaxAttempts = n
	}
	if d := cfg.GetContactRetryInterval(); d > 0 {
		policy.Interval = d
	}

	collab := qualification.Collaborators{Deliveries: store}
	if err := wireAgents(cfg, &collab, log); err != nil {
		q.Close()
		return nil, err
	}

	if sender := whatsapp.NewClient(cfg, log); sender != nil {
		collab.Sender = sender
	} else {
		log.Warn("WHATSAPP_URL not configured; outbound messages will be recorded as undelivered")
	}

	if cfg.GetRedisURL() != "" {
		client, err := scheduler.NewClient(cfg)
		if err != nil {
			q.Close()
			return nil, fmt.Errorf("scheduler client: %w", err)
		}
		collab.Scheduler = client
		q.closers = append(q.closers, client.Close)
	} else {
		log.Warn("REDIS_URL not configured; contact timers and delivery retries disabled")
	}

	timeouts := qualification.Timeouts{
		Extraction: cfg.GetExtractionTimeout(),
		Reply:      cfg.GetReplyTimeout(),
		Summary:    cfg.GetSummaryTimeout(),
		Send:       cfg.GetSendTimeout(),
	}

	q.Orchestrator = qualification.NewOrchestrator(
		store,
		machine.New(policy, q.Validator),
		tpl,
		collab,
		q.EventBus,
		phone.NewNormalizer(cfg.GetPhoneDefaultRegion()),
		timeouts,
		log,
	)
	return q, nil
}

func (q *Qualification) newTemplates(ctx context.Context, cfg *config.Config, store templates.Store, log *logger.Logger) (*templates.Repository, error) {
	opts := make([]templates.Option, 0, 2)

	if path := cfg.GetScoringTemplatesFile(); path != "" {
		defaults, err := templates.LoadFileStore(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, templates.WithFileDefaults(defaults))
		log.Info("scoring template defaults loaded", "file", path)
	}

	ttl := cfg.GetTemplateCacheTTL()
	if redisURL := cfg.GetRedisURL(); redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(redisOpts)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable; template cache falls back to memory", "error", err)
			_ = client.Close()
			opts = append(opts, templates.WithCache(templates.NewMemoryCache(ttl)))
		} else {
			q.closers = append(q.closers, client.Close)
			opts = append(opts, templates.WithCache(templates.NewRedisCache(client, ttl, log)))
		}
	} else {
		opts = append(opts, templates.WithCache(templates.NewMemoryCache(ttl)))
	}

	return templates.NewRepository(store, log, opts...), nil
}

func wireAgents(cfg *config.Config, collab *qualification.Collaborators, log *logger.Logger) error {
	if !cfg.IsAIEnabled() {
		log.Warn("MOONSHOT_API_KEY not configured; inbound text will not be extracted and replies are scripted")
		return nil
	}

	agentCfg := agent.Config{APIKey: cfg.GetMoonshotAPIKey(), Model: cfg.GetMoonshotModel()}

	extractor, err := agent.NewExtractor(agentCfg)
	if err != nil {
		return fmt.Errorf("extraction agent: %w", err)
	}
	responder, err := agent.NewResponder(agentCfg)
	if err != nil {
		return fmt.Errorf("reply agent: %w", err)
	}
	summarizer, err := agent.NewSummarizer(agentCfg)
	if err != nil {
		return fmt.Errorf("summary agent: %w", err)
	}

	collab.Extractor = extractor
	collab.Replies = responder
	collab.Summarizer = summarizer
	log.Info("language model agents initialized", "model", cfg.GetMoonshotModel())
	return nil
}

// Close releases Redis connections held by the cache and scheduler client.
func (q *Qualification) Close() {
	for i := len(q.closers) - 1; i >= 0; i-- {
		_ = q.closers[i]()
	}
	q.closers = nil
}
