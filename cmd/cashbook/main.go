package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cashbook/internal/auth"
	"cashbook/internal/backend"
	"cashbook/internal/cache"
	"cashbook/internal/cli"
	apphttp "cashbook/internal/http"
	"cashbook/internal/ledger"
	"cashbook/internal/log"
	"cashbook/web"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	ctx := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).Create(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "data", backendCfg.Data)
		os.Exit(1)
	}

	sessions := cache.NewLRUCache[*ledger.Session](cfg.SessionCacheSize, cfg.SessionTTL)
	caches := cache.NewManager()
	caches.Register("sessions", sessions)
	caches.StartCleanup(time.Minute)
	manager := ledger.NewManager(res.Store, res.Publisher, sessions)

	verifier, err := auth.NewVerifier(cfg.AuthJWTSecret, cfg.AuthJWTIssuer)
	if err != nil {
		logger.Error("Failed to initialize identity verifier", log.FieldError, err)
		os.Exit(1)
	}

	gateways, generator, err := cli.NewReportServices(ctx, cfg, res.Credentials, res.Store, res.Store)
	if err != nil {
		logger.Error("Failed to initialize report services", log.FieldError, err)
		os.Exit(1)
	}
	deps := apphttp.Deps{
		Sessions:           manager,
		Credentials:        res.Credentials,
		Links:              res.Store,
		Gateways:           gateways,
		Verifier:           verifier,
		Store:              res.Store,
		TemplateID:         cfg.GoogleTemplateID,
		CORSOrigin:         cfg.CORSAllowedOrigin,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Dist:               web.Dist(),
	}
	if generator != nil && cfg.GoogleTemplateID != "" {
		deps.Reports = generator
	} else {
		logger.Info("Report export disabled - no GOOGLE_TEMPLATE_ID provided")
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, deps)
	if err != nil {
		logger.Error("Failed to create server", log.FieldError, err)
		os.Exit(1)
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting cashbook server",
		"port", cfg.Port,
		"data_backend", cfg.DataBackend,
		"credential_backend", cfg.CredentialBackend,
		"report_export", deps.Reports != nil,
		"google_proxy", gateways != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	slog.Info("Server stopped gracefully", "requests", srv.Metrics().TotalRequests)
}
