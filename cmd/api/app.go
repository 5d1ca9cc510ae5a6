package main

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valyala/fasthttp"
	"go.uber.org/fx"

	"account-service/internal/cache"
	"account-service/internal/config"
	"account-service/internal/database"
	"account-service/internal/events"
	"account-service/internal/handlers"
	"account-service/internal/ledger"
	"account-service/internal/middleware"
	"account-service/internal/repository"
	"account-service/internal/repository/memory"
	"account-service/internal/services"
	"account-service/internal/utils"
	"account-service/internal/worker"
)

var appModule = fx.Options(
	fx.Provide(
		provideStores,
		provideCache,
		providePublisher,
		provideDispatcher,
		provideEngine,
		provideAuthService,
		services.NewAccountService,
		services.NewLedgerService,
		provideAuthMiddleware,
		handlers.NewAuthHandler,
		handlers.NewAccountHandler,
		handlers.NewLedgerHandler,
		provideHealthHandler,
		provideServer,
	),
	fx.Invoke(registerHTTPLifecycle),
)

type healthCheck struct {
	Name   string
	Pinger handlers.Pinger
}

type storeBundle struct {
	fx.Out

	Accounts services.AccountStore
	Sessions services.SessionStore
	Ledger   ledger.Store
	Check    healthCheck `group:"health"`
}

type poolPinger struct{ pool *pgxpool.Pool }

func (p poolPinger) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

type okPinger struct{}

func (okPinger) Ping(ctx context.Context) error { return nil }

func provideStores(lc fx.Lifecycle, cfg *config.Config, opts serveOptions) (storeBundle, error) {
	if opts.InMemory {
		store := memory.NewStore()
		return storeBundle{
			Accounts: store,
			Sessions: store,
			Ledger:   store,
			Check:    healthCheck{Name: "store", Pinger: okPinger{}},
		}, nil
	}

	if cfg.Database.MigrateOnStart {
		if err := database.MigrateUp(cfg.Database.URL); err != nil {
			return storeBundle{}, err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return storeBundle{}, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			pool.Close()
			utils.LogInfo("Database", "Pool closed")
			return nil
		},
	})

	accounts := repository.NewAccountRepository(pool)
	return storeBundle{
		Accounts: accounts,
		Sessions: repository.NewSessionRepository(pool),
		Ledger:   accounts,
		Check:    healthCheck{Name: "postgres", Pinger: poolPinger{pool: pool}},
	}, nil
}

type cacheResult struct {
	fx.Out

	Cache services.ProfileCache
	Check healthCheck `group:"health"`
}

func provideCache(lc fx.Lifecycle, cfg *config.Config) cacheResult {
	if cfg.Redis.Addr == "" {
		utils.LogInfo("Cache", "REDIS_ADDR not set, profile cache disabled")
		return cacheResult{Cache: cache.Nop{}, Check: healthCheck{Name: "cache", Pinger: okPinger{}}}
	}

	rc := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := rc.Ping(ctx); err != nil {
				utils.LogWarning("Cache", "Redis unreachable at %s: %v", cfg.Redis.Addr, err)
				return nil
			}
			utils.LogSuccess("Cache", "Connected to Redis at %s", cfg.Redis.Addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return rc.Close()
		},
	})
	return cacheResult{Cache: rc, Check: healthCheck{Name: "redis", Pinger: rc}}
}

func providePublisher(lc fx.Lifecycle, cfg *config.Config) events.Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		utils.LogInfo("Events", "KAFKA_BROKERS not set, events are dropped")
		return events.Nop{}
	}

	pub := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return pub.Close()
		},
	})
	utils.LogInfo("Events", "Publishing to topic %s", cfg.Kafka.Topic)
	return pub
}

// provideDispatcher owns the worker pool. Its stop hook runs before the
// publisher's, so queued events are flushed while the writer is still open.
func provideDispatcher(lc fx.Lifecycle, cfg *config.Config, pub events.Publisher) services.EventSink {
	pool := worker.NewWorkerPool(cfg.Worker.Count, cfg.Worker.QueueSize, cfg.Worker.MaxRetries)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			pool.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			timeout := 10 * time.Second
			if deadline, ok := ctx.Deadline(); ok {
				timeout = time.Until(deadline)
			}
			return pool.Shutdown(timeout)
		},
	})
	return events.NewDispatcher(pub, pool)
}

func provideEngine(cfg *config.Config, store ledger.Store) *ledger.Engine {
	var opts []ledger.Option
	if !cfg.Ledger.StrictWithdraw {
		utils.LogWarning("Ledger", "Strict withdraw disabled, withdrawals are not checked")
		opts = append(opts, ledger.WithUncheckedWithdraw())
	}
	return ledger.NewEngine(store, opts...)
}

func provideAuthService(cfg *config.Config, accounts services.AccountStore, sessions services.SessionStore, sink services.EventSink) *services.AuthService {
	return services.NewAuthService(accounts, sessions, sink, services.AuthConfig{
		Secret:        cfg.JWT.Secret,
		TokenTTL:      cfg.JWT.TTL,
		ResetTokenTTL: cfg.Auth.ResetTokenTTL,
	})
}

func provideAuthMiddleware(auth *services.AuthService) *middleware.AuthMiddleware {
	return middleware.NewAuthMiddleware(auth)
}

type healthParams struct {
	fx.In

	Checks []healthCheck `group:"health"`
}

func provideHealthHandler(p healthParams) *handlers.HealthHandler {
	checks := make(map[string]handlers.Pinger, len(p.Checks))
	for _, c := range p.Checks {
		checks[c.Name] = c.Pinger
	}
	return handlers.NewHealthHandler(checks)
}

func provideServer(
	auth *handlers.AuthHandler,
	account *handlers.AccountHandler,
	ledgerHandler *handlers.LedgerHandler,
	health *handlers.HealthHandler,
	mw *middleware.AuthMiddleware,
) *fasthttp.Server {
	r := handlers.NewRouter(handlers.Handlers{
		Auth:    auth,
		Account: account,
		Ledger:  ledgerHandler,
		Health:  health,
	}, mw)

	return &fasthttp.Server{
		Handler:      r.Handler,
		Name:         "account-service",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerHTTPLifecycle(lc fx.Lifecycle, srv *fasthttp.Server, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.HTTP.Addr)
			if err != nil {
				return err
			}
			go func() {
				utils.LogSuccess("Main", "Server listening on %s", cfg.HTTP.Addr)
				if err := srv.Serve(ln); err != nil && !errors.Is(err, net.ErrClosed) {
					utils.LogError("Main", "Server failed", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			utils.LogInfo("Main", "Shutting down server...")
			return srv.ShutdownWithContext(ctx)
		},
	})
}
