package main

import (
	"context"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/seoplat/rankview/internal/awr"
	"github.com/seoplat/rankview/internal/config"
	"github.com/seoplat/rankview/internal/diag"
	"github.com/seoplat/rankview/internal/health"
	"github.com/seoplat/rankview/internal/metrics"
	"github.com/seoplat/rankview/internal/web"
)

func main() {
	// Structured logging first, so config errors are already structured.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Str("provider_url", cfg.APIURL).
		Bool("diag_protected", cfg.DiagProtected()).
		Msg("starting rankview")

	m := metrics.New()

	client := awr.NewClient(awr.Config{
		Token:   cfg.APIToken,
		BaseURL: cfg.APIURL,
		Limit:   cfg.APILimit,
		Timeout: cfg.ProviderTimeout,
	}, logger)
	client.SetMetrics(m)

	prober := diag.NewProber(cfg.APIToken, cfg.APIURL, cfg.ProviderTimeout, logger)

	checker := health.NewChecker(logger)
	if u, err := url.Parse(cfg.APIURL); err == nil && u.Hostname() != "" {
		port := u.Port()
		if port == "" {
			port = "443"
		}
		checker.Register("provider", health.TCPCheck(u.Hostname(), port))
	} else {
		logger.Warn().Str("url", cfg.APIURL).Msg("cannot derive provider host for health check")
	}

	server, err := web.NewServer(web.ServerConfig{
		ListenAddr:  cfg.ListenAddr,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit: web.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
		DiagAPIKey: cfg.DiagAPIKey,
	}, client, prober, checker, m, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build web server")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("web server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		if err := server.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("stopped cleanly")
	case <-shutdownCtx.Done():
		logger.Warn().Msg("shutdown timed out")
	}
}
