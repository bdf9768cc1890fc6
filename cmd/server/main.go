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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/vspace/internal/adapters/http"
	"github.com/dkeye/vspace/internal/adapters/rtc"
	sig "github.com/dkeye/vspace/internal/adapters/signal"
	"github.com/dkeye/vspace/internal/app"
	"github.com/dkeye/vspace/internal/app/orch"
	"github.com/dkeye/vspace/internal/auth"
	"github.com/dkeye/vspace/internal/config"
	"github.com/dkeye/vspace/internal/metrics"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.Server.Secret == "" {
		log.Fatal().Msg("server.secret is required")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := metrics.NewServer(reg)

	o := &orch.Orchestrator{
		Registry:    app.NewRegistry(),
		Conferences: app.NewConferenceManager(),
		Policy:      app.KickPolicy{},
	}
	ctrl := sig.NewSignalWSController(
		o,
		auth.NewJWTService(cfg.Server.Secret, cfg.Server.TokenTTL),
		serverMetrics,
		sig.NewCommandRateLimiter(cfg.Server.CommandLimit, cfg.Server.CommandWindow),
		sig.Options{
			ReadLimit:  cfg.Server.ReadLimit,
			PingPeriod: cfg.Server.PingPeriod,
			WebRTC:     rtc.WebRTCConfig(cfg.Server.ICEURLs),
		},
	)

	r := router.SetupRouter(ctx, &cfg.Server, ctrl, reg)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("vspace server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}
