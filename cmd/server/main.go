package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/Nizarll/darsi/internal/api"
	"github.com/Nizarll/darsi/internal/auth"
	"github.com/Nizarll/darsi/internal/config"
	"github.com/Nizarll/darsi/internal/logger"
	"github.com/Nizarll/darsi/internal/middleware"
	"github.com/Nizarll/darsi/internal/store/sqlstore"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "darsi: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	store, err := sqlstore.New(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()
	log.Info("database ready", "driver", cfg.DB.Driver)

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost, cfg.Auth.MaxConcurrentHashes)
	if err != nil {
		return err
	}
	creds, err := auth.NewCredentials(store, hasher)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handlers := api.NewHandlers(store, creds, tokens, log, api.Options{
		SecureCookies:     cfg.Production(),
		TeacherOnlyWrites: cfg.Auth.TeacherOnlyWrites,
		Gatherer:          reg,
		Metrics:           middleware.NewMetrics(reg),
	})

	// RequestID -> Recovery -> Logging -> CORS -> MaxBytes -> routes
	var handler http.Handler = handlers.Router()
	handler = middleware.MaxBytes(cfg.Server.MaxBodyBytes)(handler)
	handler = middleware.CORS(cfg.CORS.AllowedOrigins)(handler)
	handler = middleware.Logging(log)(handler)
	handler = middleware.Recovery(log)(handler)
	handler = middleware.RequestID(handler)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server started", "addr", cfg.Server.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
