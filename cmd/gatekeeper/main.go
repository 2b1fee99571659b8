package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"

	"github.com/platinummonkey/gatekeeper/pkg/api"
	"github.com/platinummonkey/gatekeeper/pkg/audit"
	"github.com/platinummonkey/gatekeeper/pkg/config"
	"github.com/platinummonkey/gatekeeper/pkg/directory"
	"github.com/platinummonkey/gatekeeper/pkg/httputil"
	"github.com/platinummonkey/gatekeeper/pkg/observability"
	"github.com/platinummonkey/gatekeeper/pkg/providers"
	"github.com/platinummonkey/gatekeeper/pkg/sso"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	metrics := observability.NewMetrics(nil)
	settings := cfg.Settings()

	// Exchange token store
	var store sso.ExchangeStore
	var redisStore *sso.RedisStore
	switch cfg.Store.Type {
	case "memory":
		memStore := sso.NewMemoryStore(cfg.Store.TTL)
		defer memStore.Close()
		store = memStore
	default:
		redisStore, err = sso.NewRedisStore(cfg.Store.RedisURL, cfg.Store.TTL)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to redis")
			os.Exit(1)
		}
		store = redisStore
	}
	store = sso.NewInstrumentedStore(store, metrics.StoreOperations)

	// User directory
	pg, err := directory.Open(cfg.Directory.PostgresURL)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to postgres")
		os.Exit(1)
	}
	dir := directory.NewCached(pg, cfg.Directory.OrgCacheSize, cfg.Directory.OrgCacheTTL)

	// Audit trail
	var auditLog audit.Logger = audit.NopLogger{}
	if cfg.Observability.AuditLog != "" {
		fileLog, err := audit.NewFileLogger(cfg.Observability.AuditLog)
		if err != nil {
			logger.WithError(err).Error("Failed to open audit log")
			os.Exit(1)
		}
		auditLog = fileLog
	}

	// Notifications ride the same redis used by the exchange store
	var notifier sso.Notifier = sso.NopNotifier{}
	if redisStore != nil {
		notifier = sso.NewRedisNotifier(redisStore.Client(), logger)
	}

	// Provider clients
	broker := providers.NewBrokerClient(cfg.Providers.BrokerURL, cfg.Providers.Timeout)
	duo := providers.NewDuoClient(cfg.Providers.DuoHost, cfg.Providers.DuoIntegrationKey,
		cfg.Providers.DuoSecretKey, cfg.Providers.Timeout)
	yubico, err := providers.NewYubicoClient(cfg.Providers.YubicoURL,
		cfg.Providers.YubicoClientID, cfg.Providers.YubicoAPIKey, cfg.Providers.Timeout)
	if err != nil {
		logger.WithError(err).Error("Invalid yubico configuration")
		os.Exit(1)
	}
	google := providers.NewGoogleVerifier(providers.GoogleVerifierConfig{
		Endpoint:     cfg.Providers.GoogleEndpoint,
		ClientID:     cfg.Providers.GoogleClientID,
		ClientSecret: cfg.Providers.GoogleClientSecret,
		TokenURL:     cfg.Providers.GoogleTokenURL,
		Timeout:      cfg.Providers.Timeout,
	})

	// Core flow
	plugin := sso.NopPlugin{}
	reconciler := sso.NewReconciler(dir, notifier, auditLog, logger)
	stepUp := sso.NewStepUp(settings, store, duo, yubico, plugin, reconciler, logger)
	resolvers := map[sso.Kind]sso.Resolver{
		sso.KindGoogle: sso.NewGoogleResolver(settings, google, plugin, dir, logger),
		sso.KindSAML:   sso.NewSAMLResolver(settings, plugin, dir, logger),
		sso.KindSlack:  sso.NewSlackResolver(settings, plugin, dir, logger),
	}
	verifier := sso.NewVerifier(settings, store, resolvers, stepUp, reconciler, logger)
	initiator := sso.NewInitiator(settings, store, broker, logger)

	// Main router
	router := mux.NewRouter()
	router.Use(httputil.RequestIDMiddleware(logger))
	router.Use(httputil.LoggingMiddleware(logger))
	router.Use(httputil.RecoveryMiddleware(logger))
	router.Use(metrics.Middleware)
	api.NewSSOHandlers(settings, initiator, verifier, stepUp, metrics, logger).
		RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Ops server for probes and metrics
	var redisClient *redis.Client
	if redisStore != nil {
		redisClient = redisStore.Client()
	}
	health := observability.NewHealthChecker(pg.DB(), redisClient)
	opsRouter := mux.NewRouter()
	opsRouter.HandleFunc("/health", health.Liveness).Methods("GET")
	opsRouter.HandleFunc("/ready", health.Readiness).Methods("GET")
	opsRouter.Handle("/metrics", metrics.Handler()).Methods("GET")
	opsServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.OpsPort,
		Handler: opsRouter,
	}

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	shutdown.Register(func(ctx context.Context) error {
		return opsServer.Shutdown(ctx)
	})
	shutdown.Register(func(context.Context) error {
		return pg.DB().Close()
	})
	shutdown.Register(func(context.Context) error {
		return auditLog.Close()
	})
	if redisStore != nil {
		shutdown.Register(func(context.Context) error {
			return redisStore.Client().Close()
		})
	}

	go func() {
		logger.WithField("addr", opsServer.Addr).Info("Ops server listening")
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Ops server failed")
		}
	}()

	go func() {
		logger.WithFields(map[string]interface{}{
			"addr": server.Addr,
			"mode": string(settings.Mode),
		}).Info("Gatekeeper listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server failed")
			os.Exit(1)
		}
	}()

	shutdown.Wait()
}
