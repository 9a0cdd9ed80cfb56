package bootstrap

import (
	"context"
	"sync"

	"huddle/internal/adapters/config"
	"huddle/internal/adapters/fantasy"
	"huddle/internal/adapters/fantasy/espn"
	"huddle/internal/adapters/fantasy/retry"
	"huddle/internal/adapters/leaguefactory"
	"huddle/internal/adapters/telegram"
	"huddle/internal/api"
	"huddle/internal/api/health"
	"huddle/internal/live"
	"huddle/internal/metrics"
	"huddle/internal/repository/file"
	leaguesvc "huddle/internal/services/league"
	snapshotsvc "huddle/internal/services/snapshot"
	"huddle/internal/workers"
	"huddle/pkg/cache"
	"huddle/pkg/crypto"
	"huddle/pkg/errors"
	"huddle/pkg/logger"
	"huddle/pkg/templates"
)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure layer
	Store     *file.Store
	Snapshots *cache.Cache[*fantasy.Snapshot]
	Connector *espn.Connector
	Factory   fantasy.Factory

	// Services
	Registry    *leaguesvc.Service
	SnapshotSvc *snapshotsvc.Service

	// Background processing
	Scheduler *workers.Scheduler

	// Application layer
	Bot           *telegram.Bot
	Handler       *telegram.Handler
	Sessions      *live.Manager
	HealthHandler *health.Handler
	HTTPServer    *api.Server

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// NewContainer creates a new dependency container
func NewContainer(cfg *config.Config, tracker errors.Tracker) *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Config:       cfg,
		Log:          logger.Get(),
		ErrorTracker: tracker,
		Lifecycle:    NewLifecycle(),
		WG:           &sync.WaitGroup{},
		Context:      ctx,
		Cancel:       cancel,
	}
}

// MustInit initializes all components in the correct order
// Panics on any initialization error (fail-fast at startup)
func (c *Container) MustInit() {
	c.MustInitInfrastructure()
	c.MustInitServices()
	c.MustInitBackground()
	c.MustInitApplication()
}

// MustInitInfrastructure initializes the registry store, the snapshot
// cache and the provider connection factory
func (c *Container) MustInitInfrastructure() {
	cfg := c.Config

	var enc *crypto.Encryptor
	if cfg.Store.EncryptionKey != "" {
		var err error
		enc, err = crypto.NewEncryptor(cfg.Store.EncryptionKey)
		if err != nil {
			c.Log.Fatalf("Failed to initialize registry encryption: %v", err)
		}
	}

	c.Store = file.NewStore(cfg.Store.Path, enc)
	c.Snapshots = cache.New[*fantasy.Snapshot](cfg.Cache.TTL)

	c.Connector = espn.NewConnector(espn.Config{
		BaseURL:     cfg.Provider.BaseURL,
		HTTPTimeout: cfg.Provider.HTTPTimeout,
		RateLimit:   cfg.Provider.RateLimit,
	})

	c.Factory = leaguefactory.New(c.Connector, retry.Config{
		MaxAttempts: cfg.Provider.Retries,
		Delay:       cfg.Provider.RetryDelay,
		Strategy:    retry.StrategyFixed,
	})

	c.Log.Infow("✓ Infrastructure initialized",
		"registry_path", cfg.Store.Path,
		"credentials_sealed", enc != nil,
		"cache_ttl", cfg.Cache.TTL,
		"provider_rate_limit", cfg.Provider.RateLimit,
	)
}

// MustInitServices initializes domain services and loads the registry
// from disk
func (c *Container) MustInitServices() {
	c.Registry = leaguesvc.NewService(c.Store, c.Factory, c.Log)
	if err := c.Registry.Load(c.Context); err != nil {
		c.Log.Fatalf("Failed to load league registry: %v", err)
	}

	c.SnapshotSvc = snapshotsvc.NewService(c.Snapshots, c.Factory)

	c.Log.Infow("✓ Services initialized",
		"registered_leagues", len(c.Registry.AllLeagues(c.Context)),
	)
}

// MustInitBackground initializes the refresh scheduler. Skipped
// entirely when background refresh is disabled; the cache then fills
// on demand only.
func (c *Container) MustInitBackground() {
	cfg := c.Config

	if !cfg.Refresh.Enabled {
		c.Log.Info("Background refresh disabled")
		return
	}

	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(workers.NewRefreshWorker(
		c.Registry,
		c.Factory,
		c.Snapshots,
		workers.RefreshConfig{
			Enabled:  true,
			Interval: cfg.Refresh.Interval,
			Pacing:   cfg.Refresh.Pacing,
			Cooldown: cfg.Refresh.Cooldown,
		},
	))
	c.Scheduler = scheduler

	c.Log.Infow("✓ Workers initialized",
		"count", len(scheduler.Workers()),
		"refresh_interval", cfg.Refresh.Interval,
	)
}

// MustInitApplication initializes the Telegram bot, command routing,
// live session tracking and the HTTP server
func (c *Container) MustInitApplication() {
	cfg := c.Config

	bot, err := telegram.NewBot(telegram.Config{
		Token: cfg.Telegram.BotToken,
		Debug: cfg.Telegram.Debug,
	}, c.Log)
	if err != nil {
		c.Log.Fatalf("Failed to create Telegram bot: %v", err)
	}
	c.Bot = bot

	c.Sessions = live.NewManager()

	c.Handler = telegram.NewHandler(telegram.HandlerDeps{
		Bot:       c.Bot,
		Registry:  c.Registry,
		Snapshots: c.SnapshotSvc,
		Sessions:  c.Sessions,
		LiveCfg: live.Config{
			PollInterval:         cfg.Live.PollInterval,
			MaxConsecutiveErrors: cfg.Live.MaxConsecutive,
			IdleTimeout:          cfg.Live.IdleTimeout,
			PerPage:              cfg.Live.MatchupsPerPage,
		},
		Templates: templates.Get(),
		Log:       c.Log,
	})
	c.Handler.RegisterHandlers()

	c.HealthHandler = health.New(
		c.Log,
		c.Store,
		c.Scheduler,
		c.Bot,
		cfg.App.Name,
		cfg.App.Version,
	)

	c.HTTPServer = api.NewServer(api.ServerConfig{
		Port:        cfg.HTTP.Port,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	}, c.HealthHandler, c.Log)

	metrics.Init()

	c.Log.Infow("✓ Application initialized", "bot", c.Bot.Username())
}

// Start starts all background components
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	// Start background refresh
	if c.Scheduler != nil {
		if err := c.Scheduler.Start(c.Context); err != nil {
			return errors.Wrap(err, "failed to start workers")
		}
	}

	// Start Telegram update polling
	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Bot.Start(c.Context); err != nil {
			c.Log.Errorf("Telegram bot failed: %v", err)
			c.Cancel() // Trigger shutdown on fatal bot error
		}
	}()

	// Start HTTP server
	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel() // Trigger shutdown on fatal HTTP error
		}
	}()

	c.Log.Info("✓ All systems operational")
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")

	// Cancel application context to signal all components to stop
	c.Cancel()

	c.Lifecycle.Shutdown(
		c.WG,
		c.HTTPServer,
		c.Bot,
		c.Sessions,
		c.Scheduler,
		c.ErrorTracker,
		c.Log,
	)
}

// TemplateRegistry returns the global template registry
func (c *Container) TemplateRegistry() *templates.Registry {
	return templates.Get()
}
