package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"ofertas/internal/contribution/consensus"
	contributionhandler "ofertas/internal/contribution/handler"
	contributionmetrics "ofertas/internal/contribution/metrics"
	contributionmodels "ofertas/internal/contribution/models"
	"ofertas/internal/contribution/ports"
	"ofertas/internal/contribution/resolver"
	contributionservice "ofertas/internal/contribution/service"
	contributionstore "ofertas/internal/contribution/store"
	"ofertas/internal/contribution/validation"
	"ofertas/internal/jwttoken"
	"ofertas/internal/platform/config"
	platformmetrics "ofertas/internal/platform/metrics"
	platformredis "ofertas/internal/platform/redis"
	ratelimitmetrics "ofertas/internal/ratelimit/metrics"
	ratelimitmodels "ofertas/internal/ratelimit/models"
	ratelimitports "ofertas/internal/ratelimit/ports"
	ratelimitservice "ofertas/internal/ratelimit/service"
	"ofertas/internal/ratelimit/store/entry"
	"ofertas/internal/reaper"
	"ofertas/internal/status/events"
	statushandler "ofertas/internal/status/handler"
	statusmetrics "ofertas/internal/status/metrics"
	statusservice "ofertas/internal/status/service"
	statusstore "ofertas/internal/status/store"
	"ofertas/pkg/platform/httputil"
	"ofertas/pkg/platform/middleware/request"
	"ofertas/pkg/platform/middleware/requesttime"
)

// App is the fully wired process: router, reaper and the resources behind them.
type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *platformmetrics.Metrics
	JWT     *jwttoken.JWTService
	Router  http.Handler
	Reaper  *reaper.Reaper

	db      *sql.DB
	redis   *platformredis.Client
	closers []func(context.Context) error
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, c := range slices.Backward(a.closers) {
		if err := c(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Build wires every component from cfg. Empty DATABASE_URL and REDIS_URL fall
// back to in-memory stores.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *App, err error) {
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: platformmetrics.New(),
		JWT:     jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience),
	}
	defer func() {
		if err != nil {
			_ = app.Close(context.WithoutCancel(ctx))
		}
	}()
	reg := app.Metrics.Registry

	app.redis, err = platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if app.redis != nil {
		app.onClose(func(context.Context) error { return app.redis.Close() })
	}

	tables, err := app.buildTables(ctx)
	if err != nil {
		return nil, err
	}

	limiter, err := app.buildLimiter(reg)
	if err != nil {
		return nil, err
	}

	status, err := app.buildStatus(ctx, reg)
	if err != nil {
		return nil, err
	}

	locker, err := app.buildLocker()
	if err != nil {
		return nil, err
	}

	cm := contributionmetrics.New(reg)
	dailyEngine, err := consensus.New(contributionmodels.TableDailyOffers, tables.daily,
		consensus.WithScope(contributionmodels.ScopePerDay),
		consensus.WithLocker(locker),
		consensus.WithTransactor(tables.dailyTx),
		consensus.WithLocation(cfg.Consensus.Location),
		consensus.WithRetention(cfg.Consensus.Retention),
		consensus.WithLogger(logger),
		consensus.WithMetrics(cm),
	)
	if err != nil {
		return nil, err
	}
	cumulativeEngine, err := consensus.New(contributionmodels.TableContributions, tables.cumulative,
		consensus.WithScope(contributionmodels.ScopeAllTime),
		consensus.WithLocker(locker),
		consensus.WithTransactor(tables.cumulativeTx),
		consensus.WithLocation(cfg.Consensus.Location),
		consensus.WithRetention(cfg.Consensus.Retention),
		consensus.WithLogger(logger),
		consensus.WithMetrics(cm),
	)
	if err != nil {
		return nil, err
	}

	res, err := resolver.New(tables.entities, resolver.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	svc, err := contributionservice.New(validation.New(), limiter, res,
		contributionservice.Table{
			Name:   contributionmodels.TableDailyOffers,
			Engine: dailyEngine,
			Store:  tables.daily,
			Action: ratelimitmodels.ActionDailyOffer,
		},
		contributionservice.WithCumulativeTable(contributionservice.Table{
			Name:   contributionmodels.TableContributions,
			Engine: cumulativeEngine,
			Store:  tables.cumulative,
			Action: ratelimitmodels.ActionPriceContribution,
		}),
		contributionservice.WithStatusPublisher(status),
		contributionservice.WithLocation(cfg.Consensus.Location),
		contributionservice.WithLogger(logger),
		contributionservice.WithMetrics(cm),
	)
	if err != nil {
		return nil, err
	}

	app.Reaper, err = reaper.New([]reaper.Sweep{
		{Name: "status", Run: status.Cleanup},
		{Name: string(contributionmodels.TableDailyOffers), Run: func(ctx context.Context, now time.Time) (int, error) {
			return tables.daily.DeleteContributionsBefore(ctx, now.Add(-cfg.Consensus.Retention))
		}},
		{Name: "ratelimit", Run: limiter.Evict},
	},
		reaper.WithInterval(cfg.ReapInterval),
		reaper.WithLogger(logger),
		reaper.WithMetrics(reaper.NewMetrics(reg)),
	)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(logger))
	r.Use(request.Logger(logger))
	r.Use(requesttime.Middleware)
	r.Use(app.Metrics.LatencyMiddleware)
	r.Get("/health", app.handleHealth)
	r.Method(http.MethodGet, "/metrics", app.Metrics.Handler())
	contributionhandler.New(svc, logger, jwttoken.NewJWTServiceAdapter(app.JWT)).Register(r)
	statushandler.New(status, logger).Register(r)
	app.Router = r

	return app, nil
}

type tables struct {
	entities     ports.EntityStore
	daily        ports.ContributionStore
	cumulative   ports.ContributionStore
	dailyTx      ports.Transactor
	cumulativeTx ports.Transactor
}

func (a *App) buildTables(ctx context.Context) (*tables, error) {
	if a.Config.DatabaseURL == "" {
		a.Logger.InfoContext(ctx, "DATABASE_URL not set, using in-memory contribution store")
		entities := contributionstore.NewInMemoryEntities()
		return &tables{
			entities:   entities,
			daily:      contributionstore.NewInMemoryContributions(entities),
			cumulative: contributionstore.NewInMemoryContributions(entities),
		}, nil
	}

	db, err := sql.Open("postgres", a.Config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = db
	a.onClose(func(context.Context) error { return db.Close() })
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := contributionstore.Migrate(ctx, db); err != nil {
		return nil, err
	}

	daily, err := contributionstore.NewPostgresContributions(db, contributionmodels.TableDailyOffers)
	if err != nil {
		return nil, err
	}
	cumulative, err := contributionstore.NewPostgresContributions(db, contributionmodels.TableContributions)
	if err != nil {
		return nil, err
	}
	return &tables{
		entities:     contributionstore.NewPostgresEntities(db),
		daily:        daily,
		cumulative:   cumulative,
		dailyTx:      daily,
		cumulativeTx: cumulative,
	}, nil
}

func (a *App) buildLimiter(reg prometheus.Registerer) (*ratelimitservice.Service, error) {
	policies := ratelimitservice.DefaultPolicies()
	if a.Config.RateLimitFile != "" {
		overrides, err := ratelimitservice.LoadPolicyFile(a.Config.RateLimitFile)
		if err != nil {
			return nil, err
		}
		maps.Copy(policies, overrides)
	}

	var entries ratelimitports.EntryStore = entry.NewInMemoryStore()
	if a.redis != nil {
		ttl := max(entry.DefaultTTL, ratelimitservice.Retention(policies, ratelimitmodels.DefaultGuards()))
		entries = entry.NewRedisStore(a.redis.Client, entry.WithTTL(ttl))
	}

	return ratelimitservice.New(entries,
		ratelimitservice.WithPolicies(policies),
		ratelimitservice.WithLogger(a.Logger),
		ratelimitservice.WithMetrics(ratelimitmetrics.New(reg)),
	)
}

func (a *App) buildStatus(ctx context.Context, reg prometheus.Registerer) (*statusservice.Service, error) {
	m := statusmetrics.New(reg)

	var store statusservice.Store = statusstore.NewInMemoryStore()
	if a.redis != nil {
		store = statusstore.NewRedisStore(a.redis.Client)
	}

	broker := statusservice.NewBroker(
		statusservice.WithBrokerLogger(a.Logger),
		statusservice.WithBrokerMetrics(m),
	)
	if brokers := a.Config.Kafka.Brokers; len(brokers) > 0 {
		pub, err := events.NewKafkaPublisher(ctx, brokers,
			events.WithTopic(a.Config.Kafka.StatusTopic),
			events.WithLogger(a.Logger),
			events.WithMetrics(m),
		)
		if err != nil {
			broker.Close()
			return nil, err
		}
		a.onClose(pub.Close)
		broker.Subscribe(pub.Handle)
	}
	// Registered after the publisher so the broker drains before the producer flushes.
	a.onClose(func(context.Context) error {
		broker.Close()
		return nil
	})

	return statusservice.New(store,
		statusservice.WithPublisher(broker),
		statusservice.WithRetention(a.Config.Consensus.Retention),
		statusservice.WithLogger(a.Logger),
		statusservice.WithMetrics(m),
	)
}

func (a *App) buildLocker() (consensus.Locker, error) {
	switch a.Config.Consensus.Locking {
	case config.LockingLocal:
		return consensus.NewLocalLocker(), nil
	case config.LockingRedis:
		if a.redis == nil {
			return nil, errors.New("redis locking requires REDIS_URL")
		}
		return consensus.NewRedisLocker(a.redis.Client, a.Config.Consensus.LockTTL), nil
	default:
		return consensus.NoopLocker{}, nil
	}
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "database health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	if a.redis != nil {
		if err := a.redis.Health(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "redis health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
