package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forgo/lootbound/api/internal/chain"
	"github.com/forgo/lootbound/api/internal/config"
	"github.com/forgo/lootbound/api/internal/database"
	"github.com/forgo/lootbound/api/internal/handler"
	"github.com/forgo/lootbound/api/internal/hub"
	"github.com/forgo/lootbound/api/internal/jobs"
	"github.com/forgo/lootbound/api/internal/middleware"
	"github.com/forgo/lootbound/api/internal/mq"
	"github.com/forgo/lootbound/api/internal/repository"
	"github.com/forgo/lootbound/api/internal/repository/memory"
	"github.com/forgo/lootbound/api/internal/service"
	"github.com/forgo/lootbound/api/internal/telemetry"
)

// stores groups the repositories the services run against
type stores struct {
	players   service.PlayerRepository
	parties   service.PartyRepository
	equipment service.EquipmentRepository
	lending   service.LendingRepository
	pinger    handler.Pinger
	close     func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.UsesMemoryStore() {
		m := memory.New()
		slog.Warn("using in-memory store; data is lost on restart")
		return &stores{
			players:   m.Players(),
			parties:   m.Parties(),
			equipment: m.Equipment(),
			lending:   m.Lending(),
			close:     func() {},
		}, nil
	}

	db := database.NewSurrealDB(database.Config{
		Host:      cfg.Database.Host,
		Port:      cfg.Database.Port,
		User:      cfg.Database.User,
		Password:  cfg.Database.Password,
		Namespace: cfg.Database.Namespace,
		Database:  cfg.Database.Database,
	})
	if err := db.Connect(ctx); err != nil {
		return nil, err
	}
	slog.Info("connected to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Database),
	)
	return &stores{
		players:   repository.NewPlayerRepository(db),
		parties:   repository.NewPartyRepository(db),
		equipment: repository.NewEquipmentRepository(db),
		lending:   repository.NewLendingRepository(db),
		pinger:    db,
		close:     func() { _ = db.Close() },
	}, nil
}

func newChainGateway(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.ChainGateway, func(), error) {
	if !cfg.Chain.IsConfigured() {
		slog.Warn("CHAIN_RPC_URL not set; chain operations will fail")
		return chain.Disabled{}, func() {}, nil
	}
	gw, err := chain.Dial(ctx, chain.Config{
		RPCURL:        cfg.Chain.RPCURL,
		PrivateKey:    cfg.Chain.PrivateKey,
		ChainID:       cfg.Chain.ChainID,
		PartyRegistry: cfg.Chain.PartyRegistry,
		LootManager:   cfg.Chain.LootManager,
		Timeout:       cfg.Chain.Timeout,
		Logger:        logger,
	})
	if err != nil {
		return nil, nil, err
	}
	slog.Info("chain gateway ready",
		slog.Int64("chain_id", cfg.Chain.ChainID),
		slog.String("from", gw.From().Hex()),
	)
	return gw, gw.Close, nil
}

func main() {
	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		slog.Error("failed to set up tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer st.close()

	sessions := hub.New(hub.Config{
		SendBuffer:     cfg.Hub.SendBuffer,
		PingPeriod:     cfg.Hub.PingPeriod,
		WriteWait:      cfg.Hub.WriteWait,
		MaxMessageSize: cfg.Hub.MaxMessageSize,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})

	// Domain events go straight to the hub unless a broker is configured, in
	// which case every instance's hub consumes them from its own queue.
	var publisher service.EventPublisher = sessions
	if cfg.MQ.URL != "" {
		pub, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
		if err != nil {
			slog.Error("failed to connect to broker", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() { _ = pub.Close() }()

		consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.MQ.Exchange, "", []string{"#"})
		if err != nil {
			slog.Error("failed to start event consumer", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() { _ = consumer.Close() }()

		deliveries, err := consumer.Deliveries(ctx)
		if err != nil {
			slog.Error("failed to consume events", slog.String("error", err.Error()))
			os.Exit(1)
		}
		go mq.NewRelay(sessions, logger).Run(ctx, deliveries)

		publisher = pub
		slog.Info("publishing domain events to broker", slog.String("exchange", cfg.MQ.Exchange))
	}

	gateway, closeGateway, err := newChainGateway(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to set up chain gateway", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeGateway()
	locks := service.NewKeyedMutex()

	playerService := service.NewPlayerService(service.PlayerServiceConfig{
		Repo:   st.players,
		Logger: logger,
	})
	partyService := service.NewPartyService(service.PartyServiceConfig{
		Repo:       st.parties,
		PlayerRepo: st.players,
		Chain:      gateway,
		Publisher:  publisher,
		Locks:      locks,
		Logger:     logger,
	})
	lendingService := service.NewLendingService(service.LendingServiceConfig{
		Repo:          st.lending,
		EquipmentRepo: st.equipment,
		Publisher:     publisher,
		Locks:         locks,
		Logger:        logger,
	})
	lootService := service.NewLootService(service.LootServiceConfig{
		Repo:        st.equipment,
		PlayerRepo:  st.players,
		LendingRepo: st.lending,
		Chain:       gateway,
		Publisher:   publisher,
		Locks:       locks,
		Logger:      logger,
	})

	if cfg.Lending.SweepInterval > 0 {
		sweeper := jobs.NewLendingSweeper(jobs.LendingSweeperConfig{
			Expirer:  lendingService,
			Interval: cfg.Lending.SweepInterval,
			Logger:   logger,
		})
		sweeper.Start()
		defer sweeper.Stop()
	}

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Rate:   cfg.RateLimit.Rate,
		Window: cfg.RateLimit.Window,
		Burst:  cfg.RateLimit.Burst,
	})
	defer rateLimiter.Stop()

	idempotencyStore := middleware.NewIdempotencyStore(middleware.IdempotencyConfig{
		TTL: 24 * time.Hour,
	})
	defer idempotencyStore.Stop()

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Handlers{
		Players:   handler.NewPlayerHandler(playerService),
		Parties:   handler.NewPartyHandler(partyService),
		Loot:      handler.NewLootHandler(lootService),
		Lending:   handler.NewLendingHandler(lendingService),
		Health:    handler.NewHealthHandler(st.pinger),
		WebSocket: sessions.ServeWS,
	})

	wrapped := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Logger,
		middleware.Recovery,
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.Identity,
		middleware.RateLimit(rateLimiter),
		middleware.Idempotency(idempotencyStore),
		middleware.Compress,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      wrapped,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}
	stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Error("failed to flush traces", slog.String("error", err.Error()))
	}

	slog.Info("server exited")
}
