package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"satsvault/internal/audit"
	"satsvault/internal/platform/config"
	"satsvault/internal/platform/database"
	"satsvault/internal/platform/health"
	"satsvault/internal/platform/httpserver"
	"satsvault/internal/platform/logger"
	"satsvault/internal/token"
	httptransport "satsvault/internal/transport/http"
	"satsvault/internal/vault/crypto"
	vaulthandler "satsvault/internal/vault/handler"
	"satsvault/internal/vault/metrics"
	"satsvault/internal/vault/service"
	"satsvault/internal/vault/store"
	"satsvault/migrations"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the vault service.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing satsvault",
		"addr", cfg.Addr,
		"metrics_addr", cfg.MetricsAddr,
		"environment", cfg.Environment,
	)

	masterKey, err := loadMasterKey(cfg, log)
	if err != nil {
		return err
	}
	envelope, err := crypto.NewEnvelope(masterKey)
	if err != nil {
		return fmt.Errorf("envelope: %w", err)
	}

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	var vaultStore service.Store
	if pool != nil {
		migrateCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		err := pool.Migrate(migrateCtx, migrations.FS)
		cancel()
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		vaultStore = store.NewPostgres(pool.DB())
		log.Info("using postgres vault store")
	} else {
		vaultStore = store.NewInMemory()
		log.Warn("DATABASE_URL not set, using in-memory vault store; records will not survive restarts")
	}

	m := metrics.New()
	svc := service.NewService(
		vaultStore,
		envelope,
		audit.NewPublisher(audit.NewSlogStore(log)),
		log,
		service.WithMetrics(m),
		service.WithListLimit(cfg.ListPageLimit),
	)

	healthHandler := health.New(cfg.Environment)
	if pool != nil {
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			return pool.Health(ctx)
		})
	}

	var validatorOpts []token.Option
	if cfg.JWTIssuer != "" {
		validatorOpts = append(validatorOpts, token.WithIssuer(cfg.JWTIssuer))
	}
	if cfg.JWTAudience != "" {
		validatorOpts = append(validatorOpts, token.WithAudience(cfg.JWTAudience))
	}

	router := httptransport.NewRouter(httptransport.Options{
		Vault:      vaulthandler.New(svc, log),
		Health:     healthHandler,
		Validator:  token.NewValidator(cfg.JWTSigningKey, validatorOpts...),
		Logger:     log,
		TrustProxy: cfg.TrustProxy,
	})

	apiServer := httpserver.New(cfg.Addr, router)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := httpserver.New(cfg.MetricsAddr, metricsMux)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		log.Info("starting metrics server", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		var shutdownErr error
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("api shutdown: %w", err))
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("metrics shutdown: %w", err))
		}
		return shutdownErr
	})

	if err := group.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

// loadMasterKey decodes the hex-encoded payload master key. A fixed
// development key is substituted when none is configured, so local runs work
// without secrets, with a loud warning.
func loadMasterKey(cfg config.Server, log *slog.Logger) ([]byte, error) {
	if cfg.VaultMasterKey == "" {
		if cfg.Environment == "production" {
			return nil, errors.New("VAULT_MASTER_KEY is required in production")
		}
		log.Warn("VAULT_MASTER_KEY not set, using development key; payloads are NOT protected")
		return []byte("satsvault-development-master-key"), nil
	}
	key, err := hex.DecodeString(cfg.VaultMasterKey)
	if err != nil {
		return nil, fmt.Errorf("VAULT_MASTER_KEY must be hex-encoded: %w", err)
	}
	return key, nil
}
