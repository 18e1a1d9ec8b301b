package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/safar/framely/internal/api"
	"github.com/safar/framely/internal/auth"
	"github.com/safar/framely/internal/blob"
	"github.com/safar/framely/internal/config"
	"github.com/safar/framely/internal/database"
	"github.com/safar/framely/internal/logging"
	"github.com/safar/framely/internal/service"
	"github.com/safar/framely/internal/store"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("connected to database")

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(cfg.Database.URL, database.MigrateUp); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	st := store.New(db)
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience, cfg.Auth.TokenTTL)
	accounts := service.NewAuthService(st, tokens)

	if cfg.Auth.AdminPassword != "" {
		created, err := accounts.EnsureAdmin(ctx, service.AdminSeed{
			Email:    cfg.Auth.AdminEmail,
			Password: cfg.Auth.AdminPassword,
			FullName: cfg.Auth.AdminName,
		})
		if err != nil {
			return err
		}
		if created {
			logger.Info("admin account created", zap.String("email", cfg.Auth.AdminEmail))
		}
	} else {
		logger.Warn("ADMIN_PASSWORD not set, skipping admin bootstrap")
	}

	deps := api.Deps{
		Logger:   logger,
		Verifier: tokens,
		Accounts: accounts,
		Catalog:  service.NewCatalogService(st),
		Orders:   service.NewOrderService(st),
		Health:   st,
	}
	if cfg.Storage.Bucket != "" {
		images, err := blob.NewClient(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer images.Close()
		deps.Images = images
	} else {
		logger.Warn("STORAGE_BUCKET not set, image endpoints disabled")
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
