package commands

import (
	"context"
	"time"

	"github.com/wonny/macropulse/internal/catalog"
	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/internal/engine"
	"github.com/wonny/macropulse/internal/external/finra"
	"github.com/wonny/macropulse/internal/external/fred"
	"github.com/wonny/macropulse/internal/external/manual"
	"github.com/wonny/macropulse/internal/fetch"
	"github.com/wonny/macropulse/internal/modelconfig"
	"github.com/wonny/macropulse/internal/notify"
	"github.com/wonny/macropulse/internal/report"
	"github.com/wonny/macropulse/pkg/config"
	"github.com/wonny/macropulse/pkg/database"
	"github.com/wonny/macropulse/pkg/httputil"
	"github.com/wonny/macropulse/pkg/logger"
	"github.com/wonny/macropulse/pkg/metrics"
	"github.com/wonny/macropulse/pkg/redis"
)

// keyPrefix namespaces Redis keys
const keyPrefix = "macro"

// app holds the wired components of one CLI invocation
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	catalog *catalog.Catalog
	model   *modelconfig.Config
	engine  *engine.Engine
	metrics *metrics.Recorder
	db      *database.DB
	redis   *redis.Client
}

// appOptions selects the optional hand-over components
type appOptions struct {
	persist bool
	notify  bool
}

// loadConfig reads process configuration and applies global flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, &contracts.ConfigError{Source: "env", Err: err}
	}
	if catalogPath != "" {
		cfg.CatalogPath = catalogPath
	}
	if modelPath != "" {
		cfg.ModelPath = modelPath
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// loadModel loads the catalog and the model configuration
func loadModel(cfg *config.Config) (*catalog.Catalog, *modelconfig.Config, error) {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, nil, err
	}
	model, err := modelconfig.Load(cfg.ModelPath)
	if err != nil {
		return nil, nil, err
	}
	return cat, model, nil
}

// newApp wires providers, the fetch phase and the engine.
// Only configuration failures are returned; unavailable optional
// components (Redis, database, Telegram) are logged and skipped.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg)

	cat, model, err := loadModel(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, catalog: cat, model: model, redis: redis.Disabled()}

	// 1. Redis (선택: 캐시 + 공유 레이트 리밋)
	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, continuing without cache")
		} else {
			a.redis = rc
		}
	}
	cache := redis.NewCache(a.redis, keyPrefix)
	limiter := redis.NewRateLimiter(a.redis, keyPrefix)

	// 2. Providers
	fredHTTP := httputil.New(log, cfg.Fetch.Timeout)
	finraHTTP := httputil.New(log, cfg.Fetch.Timeout)
	if a.redis.Enabled() {
		fredHTTP.WithRateLimiter(limiter, redis.FREDRateLimit)
		finraHTTP.WithRateLimiter(limiter, redis.FINRARateLimit)
	}

	providers := []contracts.Provider{
		fetch.NewCachedProvider(fred.NewClient(fredHTTP, cfg.FRED.APIKey, cfg.FRED.BaseURL, log), cache, log),
		fetch.NewCachedProvider(finra.NewClient(finraHTTP, cfg.FINRA.MarginURL, log), cache, log),
		manual.NewProvider(cfg.Manual.Path, log),
	}
	if cfg.FRED.APIKey == "" {
		log.Warn("FRED_API_KEY not set, FRED indicators will be unavailable")
	}

	// 3. Fetch phase + engine
	gatherer := fetch.NewGatherer(fetch.NewBoundary(log, providers...), cfg.Fetch, log)
	eng, err := engine.New(cat, model, gatherer, log)
	if err != nil {
		return nil, err
	}
	a.engine = eng

	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
		gatherer.WithMetrics(a.metrics)
		eng.WithMetrics(a.metrics)
	}

	// 4. Hand-over (선택)
	if opts.persist {
		a.attachRepository(ctx)
	}
	if opts.notify {
		if err := a.attachNotifier(); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

func (a *app) attachRepository(ctx context.Context) {
	if !a.cfg.Database.Enabled() {
		a.log.Warn("DATABASE_URL not set, reports will not be persisted")
		return
	}
	db, err := database.New(ctx, a.cfg.Database)
	if err != nil {
		a.log.WithError(err).Error("Database unavailable, reports will not be persisted")
		return
	}
	a.db = db
	a.engine.WithRepository(report.NewRepository(db.Pool))
}

func (a *app) attachNotifier() error {
	if !a.cfg.Telegram.Enabled() {
		a.log.Warn("TELEGRAM_BOT_TOKEN/TELEGRAM_CHAT_ID not set, notifications disabled")
		return nil
	}
	client := httputil.New(a.log, 15*time.Second).DisableRetry()
	tg, err := notify.NewTelegram(a.cfg.Telegram, client, a.catalog, notify.Options{}, a.log)
	if contracts.IsConfigError(err) {
		return err
	}
	if err != nil {
		a.log.WithError(err).Error("Telegram unavailable, notifications disabled")
		return nil
	}
	a.engine.WithNotifier(tg)
	return nil
}

// pushMetrics pushes run metrics to the Pushgateway. Failures are logged.
func (a *app) pushMetrics(ctx context.Context, job string) {
	if a.metrics == nil {
		return
	}
	if err := a.metrics.Push(ctx, a.cfg.MetricsPushgateway, job); err != nil {
		a.log.WithError(err).Warn("Failed to push metrics")
	}
}

// Close releases connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Debug("Redis close failed")
	}
}
