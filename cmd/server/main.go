package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	identityHandler "tapday/internal/identity/handler"
	identityMetrics "tapday/internal/identity/metrics"
	identityService "tapday/internal/identity/service"
	"tapday/internal/identitycache"
	"tapday/internal/invalidation"
	"tapday/internal/leaderboard"
	leaderboardHandler "tapday/internal/leaderboard/handler"
	"tapday/internal/platform/config"
	"tapday/internal/platform/httpserver"
	"tapday/internal/platform/logger"
	"tapday/internal/platform/metrics"
	"tapday/internal/platform/redis"
	"tapday/internal/proof"
	"tapday/internal/registrar"
	"tapday/internal/transfers"
	transfersHandler "tapday/internal/transfers/handler"
	httptransport "tapday/internal/transport/http"
	"tapday/pkg/platform/circuit"
)

const shutdownTimeout = 10 * time.Second

// registry is what both the claim workflow and the cache builder need from
// a registrar backend.
type registry interface {
	identityService.Registrar
	identitycache.Lister
}

// main wires dependencies and runs the server until SIGINT or SIGTERM.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	health := map[string]httptransport.HealthCheck{}
	var bus *invalidation.Bus

	reg := newRegistry(cfg.Registrar, log)
	cache := identitycache.New(reg, cfg.Registrar.ParentDomain,
		identitycache.WithLogger(log),
		identitycache.WithMetrics(identitycache.NewMetrics()),
		identitycache.WithPageSize(cfg.Registrar.ListPageSize),
		identitycache.WithRefreshInterval(cfg.Cache.RefreshInterval),
	)

	if redisClient != nil {
		defer redisClient.Close()
		health["redis"] = redisClient.Health
		bus = invalidation.New(redisClient.Client, cfg.Redis.Channel, cache, log)
		log.Info("cross-instance cache invalidation enabled", "redis", config.RedactURL(cfg.Redis.URL))
	} else {
		bus = invalidation.New(nil, cfg.Redis.Channel, cache, log)
		log.Info("redis not configured, cache invalidation is local only")
	}

	proofs := proof.New(cfg.Proof.HubURL, cfg.Proof.APIKey,
		proof.WithLogger(log),
		proof.WithTimeout(cfg.Proof.Timeout),
		proof.WithBreaker(circuit.New("proof-hub")),
	)

	claims := identityService.New(reg, proofs, cfg.Registrar.ParentDomain,
		identityService.WithLogger(log),
		identityService.WithMetrics(identityMetrics.New()),
		identityService.WithInvalidator(bus),
		identityService.WithOwnerSearchLimit(cfg.Registrar.OwnerSearchLimit),
		identityService.WithInvalidationTimeout(cfg.Cache.InvalidationTimeout),
	)

	ledger := transfers.NewLedgerClient(cfg.Ledger.APIURL, cfg.Ledger.APIKey, cfg.Ledger.TokenContract,
		transfers.WithChainID(int64(cfg.Ledger.ChainID)),
		transfers.WithTimeout(cfg.Ledger.Timeout),
	)
	tracer := transfers.NewResolver(ledger,
		transfers.WithLogger(log),
		transfers.WithMetrics(transfers.NewMetrics()),
		transfers.WithFanOut(cfg.Ledger.FanOut),
	)

	board := leaderboard.NewService(cache, tracer,
		leaderboard.WithLogger(log),
		leaderboard.WithCap(cfg.Leaderboard.Cap),
		leaderboard.WithMaxLimit(cfg.Leaderboard.MaxLimit),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Metrics:        metrics.New(),
		RequestTimeout: cfg.Server.RequestTimeout,
		Health:         health,
		Routes: []httptransport.Routes{
			identityHandler.New(claims, cache, log),
			transfersHandler.New(tracer, log),
			leaderboardHandler.New(board, log),
		},
	})

	go func() {
		if err := bus.Run(ctx, nil); err != nil {
			log.Error("invalidation listener stopped", "error", err)
		}
	}()
	go func() {
		if err := cache.Warm(ctx); err != nil {
			log.Warn("identity cache warm-up failed, will retry on first lookup", "error", err)
		}
	}()

	srv := httpserver.New(cfg.Server.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting tapday", "addr", cfg.Server.Addr, "parent_domain", cfg.Registrar.ParentDomain)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRegistry(cfg config.RegistrarConfig, log *slog.Logger) registry {
	if cfg.Mode == config.RegistrarModeMemory {
		log.Warn("using in-memory registrar, subnames will not survive a restart")
		return registrar.NewMemory()
	}
	return registrar.NewClient(cfg.BaseURL, cfg.APIKey, registrar.WithTimeout(cfg.Timeout))
}
