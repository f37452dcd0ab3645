package container

import (
	"context"
	"fmt"
	"time"

	"taskquest/adapters/redisfeed"
	"taskquest/adapters/sqlstore"
	"taskquest/adapters/supabase"
	"taskquest/app"
	"taskquest/internal/analysis/insight"
	"taskquest/internal/api"
	"taskquest/internal/config"
	"taskquest/internal/errors"
	"taskquest/internal/fetch"
	"taskquest/internal/integrations/oauth"
	"taskquest/internal/integrations/syncmap"
	"taskquest/internal/migration"
	"taskquest/ports"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const defaultWindowDays = 7

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB      *sqlx.DB
	Store   *sqlstore.Store
	Backend ports.Backend
	Redis   *redis.Client

	// Analysis
	Rules   *config.RulesStore
	Engine  *insight.Engine
	Fetcher *fetch.Fetcher
	SSEHub  *api.SSEHub

	// Services
	Analytics     *app.AnalyticsService
	Suggestions   *app.SuggestionService
	Predictions   *app.PredictionService
	Notifications *app.NotificationService
	Integrations  *app.IntegrationService
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Container{Config: cfg}, nil
}

// Init connects the backend and builds every service
func (c *Container) Init(ctx context.Context) error {
	if err := c.initBackend(ctx); err != nil {
		return errors.Wrap(err, "failed to initialize backend")
	}
	if err := c.initRules(ctx); err != nil {
		return errors.Wrap(err, "failed to initialize rules")
	}
	c.initServices(ctx)

	log.WithField("backend", c.Config.Backend.Kind).Info("Container initialized")
	return nil
}

// InitWithDatabase wires a SQL backend over an already open connection
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	if err := c.useDatabase(ctx, db); err != nil {
		return err
	}
	if err := c.initRules(ctx); err != nil {
		return errors.Wrap(err, "failed to initialize rules")
	}
	c.initServices(ctx)
	return nil
}

func (c *Container) initBackend(ctx context.Context) error {
	switch c.Config.Backend.Kind {
	case config.BackendSupabase:
		c.Backend = supabase.NewClient(c.Config.Backend.SupabaseURL, c.Config.Backend.SupabaseKey, c.Config.Backend.Timeout)
		log.WithField("url", c.Config.Backend.SupabaseURL).Info("Using Supabase backend")
		return nil
	case config.BackendSQLite:
		db, err := sqlstore.OpenSQLite(ctx, c.Config.Database.SQLitePath)
		if err != nil {
			return err
		}
		return c.useDatabase(ctx, db)
	default:
		db, err := sqlstore.OpenPostgres(c.Config.Database)
		if err != nil {
			return err
		}
		return c.useDatabase(ctx, db)
	}
}

func (c *Container) useDatabase(ctx context.Context, db *sqlx.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		return errors.Wrap(err, "database migration failed")
	}
	c.DB = db
	c.Store = sqlstore.New(db)
	c.Backend = c.Store
	log.WithField("dialect", c.Store.Dialect()).Info("Using SQL backend")
	return nil
}

func (c *Container) initRules(ctx context.Context) error {
	store, err := config.NewRulesStore(c.Config.Rules.Path)
	if err != nil {
		return err
	}
	c.Rules = store
	if c.Config.Rules.Watch && c.Config.Rules.Path != "" {
		if err := store.Watch(ctx); err != nil {
			log.WithError(err).Warn("Rules hot reload disabled")
		}
	}
	return nil
}

func (c *Container) initServices(ctx context.Context) {
	windowDays := c.Config.Fetch.WindowDays
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}

	c.Engine = insight.NewEngine(c.Rules, time.UTC)
	c.Fetcher = fetch.New(c.Backend,
		fetch.WithConcurrency(c.Config.Fetch.Concurrency),
		fetch.WithTimeout(c.Config.Fetch.Timeout),
	)
	c.SSEHub = api.NewSSEHub()

	sinks := []ports.InsightSink{app.NewBackendInsightSink(c.Backend)}
	if c.Config.Redis.Enabled() {
		client, err := redisfeed.Connect(ctx, c.Config.Redis)
		if err != nil {
			log.WithError(err).Warn("Insight feed disabled")
		} else {
			c.Redis = client
			sinks = append(sinks, redisfeed.New(client, c.Config.Redis.FeedLength, c.Config.Redis.FeedTTL))
		}
	}
	sinks = append(sinks, c.SSEHub)

	c.Analytics = app.NewAnalyticsService(c.Fetcher, c.Engine, windowDays, sinks...)
	c.Suggestions = app.NewSuggestionService(c.Backend, c.Fetcher, c.Engine, windowDays)
	c.Predictions = app.NewPredictionService(c.Backend, c.Fetcher, c.Engine)
	c.Notifications = app.NewNotificationService(c.Backend, c.Analytics)
	c.Integrations = app.NewIntegrationService(
		oauth.NewRegistry(c.Config.OAuth),
		app.NewBackendTokenStore(c.Backend),
		syncmap.NewSyncer(c.Backend, c.Rules),
	)

	// SQLite has no stored procedures; serve the RPCs from the local heuristics
	if c.Store != nil && c.Store.Dialect() == sqlstore.DialectSQLite {
		for name, fn := range c.Predictions.LocalProcedures() {
			c.Store.RegisterProcedure(name, fn)
		}
	}
}

// APIServices returns the services the HTTP API serves
func (c *Container) APIServices() api.Services {
	return api.Services{
		Analytics:     c.Analytics,
		Suggestions:   c.Suggestions,
		Predictions:   c.Predictions,
		Notifications: c.Notifications,
		Integrations:  c.Integrations,
		Hub:           c.SSEHub,
		Health:        c.Health,
	}
}

// Health reports whether the backing stores answer
func (c *Container) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if c.DB != nil {
		if err := c.DB.PingContext(ctx); err != nil {
			return errors.DatabaseError("database unreachable", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			return errors.ExternalServiceError("redis", err)
		}
	}
	return nil
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Analytics != nil {
		done := make(chan struct{})
		go func() {
			c.Analytics.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			log.Warn("Shutdown deadline reached before pending insights were saved")
		}
	}
	if c.Rules != nil {
		c.Rules.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.WithError(err).Warn("Failed to close Redis client")
		}
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
