package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/thejerf/suture/v4"

	"github.com/edgesentinel/edge-sentinel/internal/config"
	"github.com/edgesentinel/edge-sentinel/internal/gateway"
	"github.com/edgesentinel/edge-sentinel/internal/poller"
	"github.com/edgesentinel/edge-sentinel/internal/scoring"
	"github.com/edgesentinel/edge-sentinel/internal/server"
	"github.com/edgesentinel/edge-sentinel/internal/storage"
	"github.com/edgesentinel/edge-sentinel/internal/store"
	"github.com/edgesentinel/edge-sentinel/internal/ws"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	gin.SetMode(gin.ReleaseMode)

	log.Info().Msg("starting edge-sentinel monitoring backend")

	engine := scoring.NewEngine()
	alertStore := store.NewAlertStore()
	telemetry := store.NewTelemetryStore()
	alerts := ws.NewManager("alerts")
	network := ws.NewManager("network")

	// A configured but unreachable archive aborts startup; this is the
	// one fatal, non-recoverable path.
	var archive gateway.AlertArchiver
	if cfg.Redis.Addr != "" {
		a, err := storage.NewArchive(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to alert archive")
		}
		defer a.Close()
		archive = a
		log.Info().Str("addr", cfg.Redis.Addr).Msg("alert archive enabled")
	}

	gw := gateway.New(alertStore, telemetry, engine, alerts, network, archive)
	srv := server.New(gw, alertStore, telemetry, engine, alerts, network)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup := suture.New("edge-sentinel", suture.Spec{
		EventHook: func(event suture.Event) {
			log.Warn().Fields(event.Map()).Msg("supervisor event")
		},
	})
	sup.Add(gw)
	if cfg.Collector.URL != "" {
		sup.Add(poller.New(cfg.Collector.URL, cfg.Collector.Interval, gw.Samples()))
	}
	supErr := sup.ServeBackground(ctx)

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-supErr:
		log.Error().Err(err).Msg("supervisor stopped")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("could not gracefully shut down the server")
	}
	cancel()

	log.Info().Msg("server stopped")
}
