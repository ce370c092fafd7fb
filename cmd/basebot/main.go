// Package main implements the basebot runner. It resolves a set of bot
// definitions from flags or a manifest, assembles each bot's behavior on
// top of a room endpoint, and supervises the collection until every
// endpoint is gone or the process is told to stop.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/SarahisCode/basebot/bot"
	"github.com/SarahisCode/basebot/config"
	"github.com/SarahisCode/basebot/metric"
	"github.com/SarahisCode/basebot/pkg/worker"
	"github.com/SarahisCode/basebot/supervisor"
)

// Build identity reported by -version and stamped onto every log line.
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "basebot"
)

func main() {
	// Print a stack trace and exit nonzero on panic.
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting basebot", "version", Version, "build_time", BuildTime)

	manifest, err := loadBots(cliCfg)
	if err != nil {
		return err
	}

	registry := metric.NewMetricsRegistry()
	metrics := registry.CoreMetrics()

	if cliCfg.MetricsAddr != "" {
		msrv := metric.NewServer(cliCfg.MetricsAddr, "/metrics", registry)
		go func() {
			if err := msrv.Start(); err != nil {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
		defer func() { _ = msrv.Stop() }()
		slog.Info("Metrics server listening", "url", msrv.Address())
	}

	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	pool := newSharedWorkPool(registry)
	if err := pool.Start(signalCtx); err != nil {
		return fmt.Errorf("start work pool: %w", err)
	}
	defer func() { _ = pool.Stop(poolStopTimeout) }()

	sup, err := newSupervisor(logger, metrics, pool, manifest)
	if err != nil {
		return err
	}

	for _, bc := range manifest.Bots {
		if _, err := sup.Spawn(bc); err != nil {
			return fmt.Errorf("spawn bot for %s: %w", bc.Room, err)
		}
	}

	if err := sup.Start(signalCtx); err != nil {
		return fmt.Errorf("start endpoints: %w", err)
	}
	slog.Info("Endpoints started", "count", sup.Len())

	// Block until every endpoint is gone or a shutdown signal arrives.
	if err := sup.Join(signalCtx); err == nil {
		slog.Info("All endpoints finished")
		return nil
	}
	slog.Info("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cliCfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := sup.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error closing endpoints", "error", err)
	}
	if err := sup.Join(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("Shutdown complete")
	return nil
}

func newSupervisor(logger *slog.Logger, metrics *metric.Metrics, pool *worker.Pool[bot.Work], m *config.Manifest) (*supervisor.Supervisor, error) {
	opts := []supervisor.Option{
		supervisor.WithLogger(logger),
		supervisor.WithMetrics(metrics),
		supervisor.WithFactory(newEndpointFactory(logger, metrics, pool)),
	}
	if m.Respawn {
		opts = append(opts, supervisor.WithRespawn(m.RespawnDelay))
	}
	sup, err := supervisor.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("build supervisor: %w", err)
	}
	return sup, nil
}

// loadBots resolves the bot set: a manifest when one is named, otherwise a
// synthetic manifest built from the single-bot flags and the positional
// room[:passcode] arguments.
func loadBots(cfg *CLIConfig) (*config.Manifest, error) {
	if cfg.ManifestPath != "" {
		m, err := config.LoadManifest(cfg.ManifestPath)
		if err != nil {
			return nil, fmt.Errorf("load manifest: %w", err)
		}
		slog.Info("Manifest loaded", "path", cfg.ManifestPath, "bots", len(m.Bots), "respawn", m.Respawn)
		return m, nil
	}

	base := config.EndpointConfig{
		Nick:        cfg.Nick,
		Passcode:    cfg.Passcode,
		URLTemplate: cfg.URLTemplate,
		RetryCount:  cfg.RetryCount,
		RetryDelay:  cfg.RetryDelay,
	}

	rooms := cfg.Rooms
	if cfg.Room != "" {
		rooms = append([]string{cfg.Room}, rooms...)
	}

	m := &config.Manifest{
		Respawn:      cfg.Respawn,
		RespawnDelay: cfg.RespawnDelay,
		Defaults:     base,
	}
	if m.RespawnDelay == 0 {
		m.RespawnDelay = config.DefaultRespawnDelay
	}
	for _, arg := range rooms {
		ep := base
		room, passcode, found := strings.Cut(arg, ":")
		ep.Room = room
		if found {
			ep.Passcode = passcode
		}
		m.Bots = append(m.Bots, config.BotConfig{
			EndpointConfig: ep.Normalize(),
			Kind:           cfg.Kind,
		})
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bot flags: %w", err)
	}
	return m, nil
}
