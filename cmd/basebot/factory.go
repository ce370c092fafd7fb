package main

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/SarahisCode/basebot/bot"
	"github.com/SarahisCode/basebot/client"
	"github.com/SarahisCode/basebot/config"
	"github.com/SarahisCode/basebot/metric"
	"github.com/SarahisCode/basebot/pkg/worker"
	"github.com/SarahisCode/basebot/supervisor"
)

// Bot kinds the factory can assemble. A manifest entry without a kind gets
// the standard set.
const (
	kindStandard = "standard"
	kindTrigger  = "trigger"
	kindJumper   = "jumper"
)

func knownKind(kind string) bool {
	switch kind {
	case "", kindStandard, kindTrigger, kindJumper:
		return true
	}
	return false
}

// Behavior schemas, one per kind. Violations surface at spawn time with the
// offending field named, so a typo in a manifest fails fast instead of
// configuring nothing.
var standardSchema = []byte(`{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"ping_text": {"type": "string"},
		"spec_ping_text": {"type": "string"},
		"short_help": {"type": "string"},
		"long_help": {"type": "string"},
		"uptime": {"type": "boolean"},
		"general_uptime": {"type": "boolean"},
		"aliases": {"type": "array", "items": {"type": "string"}}
	}
}`)

var triggerSchema = []byte(`{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"ping_text": {"type": "string"},
		"spec_ping_text": {"type": "string"},
		"short_help": {"type": "string"},
		"long_help": {"type": "string"},
		"uptime": {"type": "boolean"},
		"general_uptime": {"type": "boolean"},
		"aliases": {"type": "array", "items": {"type": "string"}},
		"match_self": {"type": "boolean"},
		"match_all": {"type": "boolean"},
		"triggers": {
			"type": "array",
			"items": {
				"type": "object",
				"additionalProperties": false,
				"required": ["pattern", "replies"],
				"properties": {
					"pattern": {"type": "string"},
					"replies": {"type": "array", "items": {"type": "string"}, "minItems": 1}
				}
			}
		}
	}
}`)

func schemaFor(kind string) []byte {
	switch kind {
	case kindTrigger:
		return triggerSchema
	default:
		return standardSchema
	}
}

// newEndpointFactory returns the factory the supervisor uses for Spawn and
// for respawns. All bots share the logger, the metrics sink and one command
// work pool.
func newEndpointFactory(logger *slog.Logger, metrics *metric.Metrics, pool *worker.Pool[bot.Work]) supervisor.Factory {
	return func(bc config.BotConfig) (supervisor.Endpoint, error) {
		return buildEndpoint(logger, metrics, pool, bc)
	}
}

func buildEndpoint(logger *slog.Logger, metrics *metric.Metrics, pool *worker.Pool[bot.Work], bc config.BotConfig) (supervisor.Endpoint, error) {
	kind := bc.Kind
	if kind == "" {
		kind = kindStandard
	}
	if !knownKind(kind) {
		return nil, fmt.Errorf("unknown bot kind: %s", kind)
	}

	violations, err := config.ValidateBehavior(schemaFor(kind), bc.Behavior)
	if err != nil {
		return nil, fmt.Errorf("validate behavior for %s: %w", bc.Room, err)
	}
	if len(violations) > 0 {
		msgs := make([]string, 0, len(violations))
		for _, v := range violations {
			msgs = append(msgs, v.Error())
		}
		return nil, fmt.Errorf("behavior for %s does not conform: %s", bc.Room, strings.Join(msgs, "; "))
	}

	c, err := client.New(bc.EndpointConfig,
		client.WithLogger(logger),
		client.WithMetrics(metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("build endpoint for %s: %w", bc.Room, err)
	}

	cmds := bot.NewCommands(
		bot.WithCommandLogger(logger),
		bot.WithWorkPool(pool),
	)
	std := bot.NewStandard(standardOptions(logger, kind, bc.Behavior)...)
	std.Register(cmds)
	cmds.Bind(c)

	if kind == kindTrigger || kind == kindJumper {
		ts, err := buildTriggers(logger, kind, bc)
		if err != nil {
			return nil, err
		}
		ts.Bind(c)
	}

	return c, nil
}

// standardOptions translates a behavior block into the standard command
// set's options. Keys left out keep the package defaults; a key set to the
// empty string silences the text it names.
func standardOptions(logger *slog.Logger, kind string, behavior map[string]any) []bot.StandardOption {
	shortHelp, longHelp := "", ""
	if kind == kindJumper {
		shortHelp = "I jump into others rooms if commanded to."
		longHelp = `"!jump &roomname" to make me jump there.`
	}

	opts := []bot.StandardOption{bot.WithStandardLogger(logger)}
	if config.HasKey(behavior, "ping_text") {
		opts = append(opts, bot.WithPingText(config.GetString(behavior, "ping_text", "")))
	}
	if config.HasKey(behavior, "spec_ping_text") {
		opts = append(opts, bot.WithSpecPingText(config.GetString(behavior, "spec_ping_text", "")))
	}
	shortHelp = config.GetString(behavior, "short_help", shortHelp)
	longHelp = config.GetString(behavior, "long_help", longHelp)
	if shortHelp != "" || longHelp != "" {
		opts = append(opts, bot.WithHelp(shortHelp, longHelp))
	}
	if config.HasKey(behavior, "uptime") || config.HasKey(behavior, "general_uptime") {
		opts = append(opts, bot.WithUptime(
			config.GetBool(behavior, "uptime", true),
			config.GetBool(behavior, "general_uptime", false),
		))
	}
	if aliases := config.GetStringSlice(behavior, "aliases", nil); len(aliases) > 0 {
		opts = append(opts, bot.WithAliases(aliases...))
	}
	return opts
}

// buildTriggers assembles the regex layer for trigger and jumper bots. The
// jumper kind gets the jump trigger first; behavior-declared patterns follow
// in manifest order.
func buildTriggers(logger *slog.Logger, kind string, bc config.BotConfig) (*bot.Triggers, error) {
	topts := []bot.TriggerOption{bot.WithTriggerLogger(logger)}
	if config.GetBool(bc.Behavior, "match_self", false) {
		topts = append(topts, bot.WithMatchSelf())
	}
	if config.GetBool(bc.Behavior, "match_all", false) {
		topts = append(topts, bot.WithMatchAll())
	}
	ts := bot.NewTriggers(topts...)

	if kind == kindJumper {
		bot.RegisterJump(ts)
	}

	raw, _ := bc.Behavior["triggers"].([]any)
	for i, item := range raw {
		block, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("trigger %d for %s: not a mapping", i, bc.Room)
		}
		pattern := config.GetString(block, "pattern", "")
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("trigger %d for %s: %w", i, bc.Room, err)
		}
		replies := config.GetStringSlice(block, "replies", nil)
		if len(replies) == 0 {
			return nil, fmt.Errorf("trigger %d for %s: no replies", i, bc.Room)
		}
		ts.Reply(re, replies...)
	}
	return ts, nil
}

// One process hosts every bot, so the command work bound is global rather
// than per-room.
const (
	poolWorkerCount = 4
	poolQueueSize   = 64

	// poolStopTimeout bounds the wait for in-flight command work on exit.
	poolStopTimeout = 5 * time.Second
)

func newSharedWorkPool(registry *metric.MetricsRegistry) *worker.Pool[bot.Work] {
	return bot.NewWorkPool(poolWorkerCount, poolQueueSize,
		worker.WithMetricsRegistry[bot.Work](registry, "command_work"))
}
