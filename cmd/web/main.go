package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"finitefield.org/enquete-web/internal/config"
	"finitefield.org/enquete-web/internal/httpserver"
	"finitefield.org/enquete-web/internal/i18n"
	"finitefield.org/enquete-web/internal/login"
	"finitefield.org/enquete-web/internal/observability"
	"finitefield.org/enquete-web/internal/remoteauth"
	"finitefield.org/enquete-web/internal/session"
	"finitefield.org/enquete-web/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", verr.Fields())
		} else {
			fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		}
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("web")

	bundle, err := i18n.Embedded(cfg.Locale.Default)
	if err != nil {
		logger.Fatal("failed to load message catalogs", zap.Error(err), zap.String("locale", cfg.Locale.Default))
	}

	authentication, err := remoteauth.New(cfg.Auth.APIURL, &http.Client{Timeout: cfg.Auth.Timeout})
	if err != nil {
		logger.Fatal("failed to initialise authentication client", zap.Error(err))
	}

	sessions, err := session.NewManager(session.Config{
		CookieName:   cfg.Session.CookieName,
		HashKey:      cfg.Session.HashKey,
		BlockKey:     cfg.Session.BlockKey,
		CookieSecure: cfg.Session.CookieSecure,
		IdleTimeout:  cfg.Session.IdleTimeout,
		Lifetime:     cfg.Session.Lifetime,
	})
	if err != nil {
		logger.Fatal("failed to initialise session manager", zap.Error(err))
	}

	loginValidation := validation.LoginValidation()
	registry := login.NewRegistry(func() *login.Controller {
		return login.NewController(loginValidation, authentication)
	})

	srv := httpserver.New(httpserver.Config{
		Address:          cfg.Server.Address,
		Environment:      cfg.Server.Environment,
		Logger:           logger,
		Sessions:         sessions,
		Registry:         registry,
		Locales:          bundle,
		CSRFCookieName:   cfg.CSRF.CookieName,
		CSRFCookieSecure: cfg.Session.CookieSecure,
		CSRFHeaderName:   cfg.CSRF.HeaderName,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		IdleTimeout:      cfg.Server.IdleTimeout,
		HandlerTimeout:   cfg.Server.HandlerTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go registry.Run(ctx, cfg.Login.PruneInterval, cfg.Login.IdleTimeout)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	logger.Info("web server listening",
		zap.String("addr", cfg.Server.Address),
		zap.String("environment", cfg.Server.Environment),
		zap.String("auth_api", cfg.Auth.APIURL),
	)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		cancel()
		stop()
		_ = baseLogger.Sync()
		os.Exit(1)
	}
	logger.Info("web server stopped", zap.Int("mounted_forms", registry.Len()))
}
