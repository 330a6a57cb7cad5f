// tokend is the token service: it mints the short-lived session tokens
// that browser and CLI clients exchange for a live voice connection, so
// the long-lived signing and API keys never leave the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tmoody1973/mkedev-voice/internal/config"
	"github.com/tmoody1973/mkedev-voice/internal/httpapi"
	"github.com/tmoody1973/mkedev-voice/internal/observability"
	"github.com/tmoody1973/mkedev-voice/internal/tokens"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tokend:", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	flag.StringVar(&configPath, "config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.TokenSigningKey == "" {
		return errors.New("MKEVOICE_TOKEN_SIGNING_KEY is required")
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	minter, err := tokens.NewMinter([]byte(cfg.TokenSigningKey), cfg.TokenTTL)
	if err != nil {
		return err
	}
	metrics := observability.New(prometheus.DefaultRegisterer)
	api := httpapi.New(minter, cfg.Model, metrics, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("token service listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("model", cfg.Model),
			zap.Duration("token_ttl", cfg.TokenTTL))
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}
