package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SarahisCode/basebot/config"
)

func testBot(room, kind string, behavior map[string]any) config.BotConfig {
	return config.BotConfig{
		EndpointConfig: config.EndpointConfig{Room: room},
		Kind:           kind,
		Behavior:       behavior,
	}
}

func TestBuildEndpoint_StandardDefaults(t *testing.T) {
	ep, err := buildEndpoint(slog.Default(), nil, nil, testBot("lobby", "", nil))
	require.NoError(t, err)
	require.NotNil(t, ep)
	assert.Equal(t, "lobby", ep.Config().Room)
}

func TestBuildEndpoint_RejectsUnknownKind(t *testing.T) {
	_, err := buildEndpoint(slog.Default(), nil, nil, testBot("lobby", "chauffeur", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown bot kind")
}

func TestBuildEndpoint_RejectsBadBehavior(t *testing.T) {
	_, err := buildEndpoint(slog.Default(), nil, nil, testBot("lobby", kindStandard, map[string]any{
		"ping_text": 5,
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not conform")

	_, err = buildEndpoint(slog.Default(), nil, nil, testBot("lobby", kindStandard, map[string]any{
		"tirggers": []any{},
	}))
	require.Error(t, err, "misspelled keys must not pass silently")
}

func TestBuildEndpoint_TriggerKind(t *testing.T) {
	ep, err := buildEndpoint(slog.Default(), nil, nil, testBot("lobby", kindTrigger, map[string]any{
		"match_all": true,
		"triggers": []any{
			map[string]any{
				"pattern": `hello (\w+)`,
				"replies": []any{"hi $1"},
			},
		},
	}))
	require.NoError(t, err)
	require.NotNil(t, ep)
}

func TestBuildEndpoint_TriggerKindBadPattern(t *testing.T) {
	_, err := buildEndpoint(slog.Default(), nil, nil, testBot("lobby", kindTrigger, map[string]any{
		"triggers": []any{
			map[string]any{
				"pattern": `broken(`,
				"replies": []any{"x"},
			},
		},
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trigger 0")
}

func TestBuildEndpoint_JumperKind(t *testing.T) {
	ep, err := buildEndpoint(slog.Default(), nil, nil, testBot("lobby", kindJumper, nil))
	require.NoError(t, err)
	require.NotNil(t, ep)
}

func TestLoadBots_FlagMode(t *testing.T) {
	m, err := loadBots(&CLIConfig{
		Room:     "alpha",
		Rooms:    []string{"beta:hunter2", "gamma"},
		Nick:     "TestBot",
		Passcode: "shared",
		Kind:     kindStandard,
	})
	require.NoError(t, err)
	require.Len(t, m.Bots, 3)

	assert.Equal(t, "alpha", m.Bots[0].Room)
	assert.Equal(t, "shared", m.Bots[0].Passcode)
	assert.Equal(t, "TestBot", m.Bots[0].Nick)
	assert.Equal(t, config.DefaultURLTemplate, m.Bots[0].URLTemplate)

	assert.Equal(t, "beta", m.Bots[1].Room)
	assert.Equal(t, "hunter2", m.Bots[1].Passcode, "room:passcode wins over -passcode")

	assert.Equal(t, "gamma", m.Bots[2].Room)
	assert.Equal(t, "shared", m.Bots[2].Passcode)

	assert.False(t, m.Respawn)
	assert.Equal(t, config.DefaultRespawnDelay, m.RespawnDelay)
}

func TestLoadBots_FlagModeBadTemplate(t *testing.T) {
	_, err := loadBots(&CLIConfig{
		Room:        "alpha",
		URLTemplate: "ws://no-placeholder/ws",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly once")
}

func TestValidateFlags(t *testing.T) {
	tests := []struct {
		name    string
		cfg     CLIConfig
		wantErr string
	}{
		{
			name: "room mode ok",
			cfg:  CLIConfig{Room: "x", Kind: kindStandard, LogLevel: "info", LogFormat: "text"},
		},
		{
			name:    "no room",
			cfg:     CLIConfig{Kind: kindStandard, LogLevel: "info", LogFormat: "text"},
			wantErr: "no room",
		},
		{
			name:    "manifest and room conflict",
			cfg:     CLIConfig{ManifestPath: "bots.yaml", Room: "x", LogLevel: "info", LogFormat: "text"},
			wantErr: "mutually exclusive",
		},
		{
			name:    "bad kind",
			cfg:     CLIConfig{Room: "x", Kind: "chauffeur", LogLevel: "info", LogFormat: "text"},
			wantErr: "unknown bot kind",
		},
		{
			name:    "bad level",
			cfg:     CLIConfig{Room: "x", Kind: kindStandard, LogLevel: "loud", LogFormat: "text"},
			wantErr: "invalid log level",
		},
		{
			name: "version skips validation",
			cfg:  CLIConfig{ShowVersion: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFlags(&tt.cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
