package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration. Every flag falls back to a
// BASEBOT_* environment variable, looked up exactly once at parse time.
type CLIConfig struct {
	ManifestPath string
	Room         string
	Rooms        []string // positional room[:passcode] arguments
	Nick         string
	Passcode     string
	Kind         string
	URLTemplate  string
	RetryCount   int
	RetryDelay   time.Duration

	Respawn      bool
	RespawnDelay time.Duration

	LogLevel        string
	LogFormat       string
	MetricsAddr     string
	ShutdownTimeout time.Duration

	ShowVersion bool
	ShowHelp    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ManifestPath, "manifest",
		getEnv("BASEBOT_MANIFEST", ""),
		"Path to a bot manifest; overrides single-bot flags (env: BASEBOT_MANIFEST)")

	flag.StringVar(&cfg.Room, "room",
		getEnv("BASEBOT_ROOM", ""),
		"Room to join in single-bot mode (env: BASEBOT_ROOM)")

	flag.StringVar(&cfg.Nick, "nick",
		getEnv("BASEBOT_NICK", ""),
		"Nickname to claim after joining (env: BASEBOT_NICK)")

	flag.StringVar(&cfg.Passcode, "passcode",
		getEnv("BASEBOT_PASSCODE", ""),
		"Passcode for private rooms (env: BASEBOT_PASSCODE)")

	flag.StringVar(&cfg.Kind, "kind",
		getEnv("BASEBOT_KIND", kindStandard),
		"Bot kind in single-bot mode: standard, trigger, jumper (env: BASEBOT_KIND)")

	flag.StringVar(&cfg.URLTemplate, "url-template",
		getEnv("BASEBOT_URL_TEMPLATE", ""),
		"Address pattern with a {room} placeholder (env: BASEBOT_URL_TEMPLATE)")

	flag.IntVar(&cfg.RetryCount, "retry-count",
		getEnvInt("BASEBOT_RETRY_COUNT", 0),
		"Connection attempts per connect, 0 for the default (env: BASEBOT_RETRY_COUNT)")

	flag.DurationVar(&cfg.RetryDelay, "retry-delay",
		getEnvDuration("BASEBOT_RETRY_DELAY", 0),
		"Fixed delay between connection attempts, 0 for the default (env: BASEBOT_RETRY_DELAY)")

	flag.BoolVar(&cfg.Respawn, "respawn",
		getEnvBool("BASEBOT_RESPAWN", false),
		"Rebuild bots that close for good, single-bot mode only (env: BASEBOT_RESPAWN)")

	flag.DurationVar(&cfg.RespawnDelay, "respawn-delay",
		getEnvDuration("BASEBOT_RESPAWN_DELAY", 0),
		"Delay before a respawned bot reconnects, 0 for the default (env: BASEBOT_RESPAWN_DELAY)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("BASEBOT_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: BASEBOT_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("BASEBOT_LOG_FORMAT", "text"),
		"Log format: json, text (env: BASEBOT_LOG_FORMAT)")

	flag.StringVar(&cfg.MetricsAddr, "metrics-addr",
		getEnv("BASEBOT_METRICS_ADDR", ""),
		"Listen address for the metrics endpoint, empty to disable (env: BASEBOT_METRICS_ADDR)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("BASEBOT_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: BASEBOT_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Print version and exit")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Print usage and exit")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Print usage and exit")

	flag.Usage = printDetailedHelp

	flag.Parse()
	cfg.Rooms = flag.Args()

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.ManifestPath != "" {
		if cfg.Room != "" || len(cfg.Rooms) > 0 {
			return fmt.Errorf("-manifest and room arguments are mutually exclusive")
		}
		if _, err := os.Stat(cfg.ManifestPath); err != nil {
			return fmt.Errorf("manifest not found: %s", cfg.ManifestPath)
		}
		return nil
	}

	if cfg.Room == "" && len(cfg.Rooms) == 0 {
		return fmt.Errorf("no room given: use -room, positional room arguments, or -manifest")
	}
	if !knownKind(cfg.Kind) {
		return fmt.Errorf("unknown bot kind: %s", cfg.Kind)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - chat room bot runner

Usage: %s [options] [room[:passcode] ...]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run a standard bot in one room
  %s -room test -nick TestBot

  # Run one bot per room, the second room with a passcode
  %s -nick TestBot test top:secret

  # Run a room-hopping bot
  %s -kind jumper -nick JumperBot -room test

  # Run every bot a manifest declares
  %s -manifest bots.yaml -metrics-addr :9090

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment lookups behind the flag defaults. Unset or unparseable
// values yield the fallback; parsing the empty string always fails, so a
// missing variable needs no separate check.

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
