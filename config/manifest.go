package config

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest is the document the CLI feeds a supervisor: respawn policy plus
// one entry per bot. It is produced by ParseManifest with defaults already
// folded into every bot.
type Manifest struct {
	// Respawn controls whether the supervisor replaces endpoints that
	// close for good; RespawnDelay is how long it waits before launching
	// the replacement.
	Respawn      bool
	RespawnDelay time.Duration

	Defaults EndpointConfig
	Bots     []BotConfig
}

// BotConfig is one bot entry in a manifest: the endpoint settings, the
// behavior kind to instantiate, and a free-form block the behavior's factory
// validates against its own schema.
type BotConfig struct {
	EndpointConfig

	Kind     string
	Behavior map[string]any
}

// The YAML-facing document types keep durations as strings ("10s", "1m30s")
// so decoding stays strict; conversion to the typed config happens after.
type manifestDoc struct {
	Respawn      bool        `yaml:"respawn"`
	RespawnDelay string      `yaml:"respawn_delay"`
	Defaults     endpointDoc `yaml:"defaults"`
	Bots         []botDoc    `yaml:"bots"`
}

type endpointDoc struct {
	Room          string  `yaml:"room"`
	Nick          string  `yaml:"nick"`
	Passcode      string  `yaml:"passcode"`
	URLTemplate   string  `yaml:"url_template"`
	RetryCount    int     `yaml:"retry_count"`
	RetryDelay    string  `yaml:"retry_delay"`
	Timeout       string  `yaml:"timeout"`
	LogDepth      int     `yaml:"log_depth"`
	SendRate      float64 `yaml:"send_rate"`
	SendBurst     int     `yaml:"send_burst"`
	TrackUsers    bool    `yaml:"track_users"`
	TrackMessages bool    `yaml:"track_messages"`
}

type botDoc struct {
	endpointDoc `yaml:",inline"`

	Kind     string         `yaml:"kind"`
	Behavior map[string]any `yaml:"behavior"`
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses manifest YAML, folds the defaults block into every
// bot, and validates the result. Unknown fields are rejected so typos
// surface at load time instead of silently configuring nothing.
func ParseManifest(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc manifestDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	respawnDelay, err := parseDuration(doc.RespawnDelay)
	if err != nil {
		return nil, fmt.Errorf("respawn_delay: %w", err)
	}
	if respawnDelay == 0 {
		respawnDelay = DefaultRespawnDelay
	}

	defaults, err := doc.Defaults.toConfig()
	if err != nil {
		return nil, fmt.Errorf("defaults: %w", err)
	}

	m := &Manifest{
		Respawn:      doc.Respawn,
		RespawnDelay: respawnDelay,
		Defaults:     defaults,
		Bots:         make([]BotConfig, 0, len(doc.Bots)),
	}
	for i, b := range doc.Bots {
		ep, err := b.endpointDoc.toConfig()
		if err != nil {
			return nil, fmt.Errorf("bot %d: %w", i, err)
		}
		m.Bots = append(m.Bots, BotConfig{
			EndpointConfig: ep.WithDefaults(defaults).Normalize(),
			Kind:           b.Kind,
			Behavior:       b.Behavior,
		})
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (d endpointDoc) toConfig() (EndpointConfig, error) {
	retryDelay, err := parseDuration(d.RetryDelay)
	if err != nil {
		return EndpointConfig{}, fmt.Errorf("retry_delay: %w", err)
	}
	timeout, err := parseDuration(d.Timeout)
	if err != nil {
		return EndpointConfig{}, fmt.Errorf("timeout: %w", err)
	}
	return EndpointConfig{
		Room:          d.Room,
		Nick:          d.Nick,
		Passcode:      d.Passcode,
		URLTemplate:   d.URLTemplate,
		RetryCount:    d.RetryCount,
		RetryDelay:    retryDelay,
		Timeout:       timeout,
		LogDepth:      d.LogDepth,
		SendRate:      d.SendRate,
		SendBurst:     d.SendBurst,
		TrackUsers:    d.TrackUsers,
		TrackMessages: d.TrackMessages,
	}, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// Validate checks the manifest as a whole.
func (m *Manifest) Validate() error {
	if len(m.Bots) == 0 {
		return errors.New("manifest declares no bots")
	}
	if m.RespawnDelay < 0 {
		return fmt.Errorf("respawn_delay cannot be negative: %v", m.RespawnDelay)
	}
	for i, bot := range m.Bots {
		if bot.Room == "" {
			return fmt.Errorf("bot %d: room is required", i)
		}
		if err := bot.EndpointConfig.Validate(); err != nil {
			return fmt.Errorf("bot %d (%s): %w", i, bot.Room, err)
		}
	}
	return nil
}

// WithDefaults returns the config with every unset field taken from base.
// Values present on the receiver win.
func (c EndpointConfig) WithDefaults(base EndpointConfig) EndpointConfig {
	if c.Nick == "" {
		c.Nick = base.Nick
	}
	if c.Passcode == "" {
		c.Passcode = base.Passcode
	}
	if c.URLTemplate == "" {
		c.URLTemplate = base.URLTemplate
	}
	if c.RetryCount == 0 {
		c.RetryCount = base.RetryCount
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = base.RetryDelay
	}
	if c.Timeout == 0 {
		c.Timeout = base.Timeout
	}
	if c.LogDepth == 0 {
		c.LogDepth = base.LogDepth
	}
	if c.SendRate == 0 {
		c.SendRate = base.SendRate
	}
	if c.SendBurst == 0 {
		c.SendBurst = base.SendBurst
	}
	if !c.TrackUsers {
		c.TrackUsers = base.TrackUsers
	}
	if !c.TrackMessages {
		c.TrackMessages = base.TrackMessages
	}
	return c
}
