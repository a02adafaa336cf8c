package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"soratop/internal/config"
	"soratop/internal/engine"
	"soratop/internal/export"
	"soratop/internal/health"
	"soratop/internal/logger"
	"soratop/internal/source"
	"soratop/internal/stats"
	"soratop/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "soratop:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logCloser, err := logger.Init(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logCloser.Close()
	log.Info().Str("source", cfg.Source).Stringer("mode", cfg.Mode).Msg("starting soratop")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Source and recorder. Recording is inert when replaying.
	var src source.Source
	var rec *source.Recorder
	switch cfg.Mode {
	case config.ModeLive:
		fetcher := source.NewHTTPFetcher(cfg.Source, cfg.Global, cfg.PollingInterval)
		src = source.NewLive(fetcher, cfg.PollingInterval, nil)
		if cfg.RecordPath != "" {
			rec, err = source.NewRecorder(cfg.RecordPath)
			if err != nil {
				return err
			}
			defer rec.Close()
		}
	case config.ModeReplay:
		replay, err := source.NewReplay(cfg.Source, nil)
		if err != nil {
			return err
		}
		defer replay.Close()
		src = replay
	}

	registry := prometheus.NewRegistry()
	metrics := health.NewMetrics(registry)
	filters := stats.Filters{Connection: cfg.ConnectionFilter, Key: cfg.StatsKeyFilter}
	eng := engine.New(src, rec, filters, metrics)

	var healthSrv *health.Server
	if cfg.HealthAddr != "" {
		healthSrv = health.New(cfg.HealthAddr, registry)
		healthSrv.SetRunning(true)
		go func() {
			if err := healthSrv.Serve(); err != nil {
				log.Error().Err(err).Msg("health server stopped")
			}
		}()
	}

	var exporter *export.Exporter
	if len(cfg.Kafka.Brokers) > 0 {
		exporter, err = export.NewKafka(cfg.Kafka)
		if err != nil {
			return err
		}
		exporter.Start()
		// The exporter gets its own subscription so it never competes with
		// the UI for update notifications.
		sub := eng.Subscribe()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-sub:
					exporter.Publish(eng.Latest())
				}
			}
		}()
	}

	app := ui.New(eng, cfg)

	engErr := make(chan error, 1)
	go func() {
		err := eng.Run(ctx)
		engErr <- err
		// Replay exhaustion or a fatal error closes the viewer too.
		app.Stop()
	}()

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
		app.Stop()
	}()

	uiErr := app.Run(ctx)
	cancel()
	runErr := <-engErr

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if exporter != nil {
		exporter.Shutdown(shutdownCtx)
	}
	if healthSrv != nil {
		healthSrv.SetRunning(false)
		if err := healthSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("health server shutdown failed")
		}
	}

	if runErr != nil {
		return runErr
	}
	if uiErr != nil {
		return uiErr
	}
	log.Info().Msg("soratop stopped cleanly")
	return nil
}
