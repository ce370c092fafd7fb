package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `
respawn: true
respawn_delay: 30s
defaults:
  url_template: ws://localhost:8080/room/{room}/ws
  retry_count: 2
  retry_delay: 1s
  track_users: true
bots:
  - room: testing
    nick: examplebot
  - room: private
    nick: doorbot
    passcode: hunter2
    retry_count: 5
    kind: trigger
    behavior:
      greeting: "hello!"
      max_lines: 3
`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(sampleManifest))
	require.NoError(t, err)

	assert.True(t, m.Respawn)
	assert.Equal(t, 30*time.Second, m.RespawnDelay)
	require.Len(t, m.Bots, 2)

	first := m.Bots[0]
	assert.Equal(t, "testing", first.Room)
	assert.Equal(t, "examplebot", first.Nick)
	assert.Equal(t, "ws://localhost:8080/room/{room}/ws", first.URLTemplate)
	assert.Equal(t, 2, first.RetryCount)
	assert.Equal(t, time.Second, first.RetryDelay)
	assert.True(t, first.TrackUsers)
	// Fields absent from both the bot and the defaults fall back to the
	// package defaults.
	assert.Equal(t, DefaultTimeout, first.Timeout)
	assert.Equal(t, DefaultLogDepth, first.LogDepth)

	second := m.Bots[1]
	assert.Equal(t, "private", second.Room)
	assert.Equal(t, "hunter2", second.Passcode)
	assert.Equal(t, 5, second.RetryCount, "bot value wins over default")
	assert.Equal(t, "trigger", second.Kind)
	assert.Equal(t, "hello!", GetString(second.Behavior, "greeting", ""))
	assert.Equal(t, 3, GetInt(second.Behavior, "max_lines", 0))
}

func TestParseManifest_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "not yaml",
			yaml:    "{{{{",
			wantErr: "parse manifest",
		},
		{
			name:    "unknown field rejected",
			yaml:    "respwan: true\nbots:\n  - room: x\n",
			wantErr: "respwan",
		},
		{
			name:    "no bots",
			yaml:    "respawn: true\n",
			wantErr: "no bots",
		},
		{
			name:    "bot without room",
			yaml:    "bots:\n  - nick: roomless\n",
			wantErr: "room is required",
		},
		{
			name:    "bad duration",
			yaml:    "respawn_delay: soon\nbots:\n  - room: x\n",
			wantErr: "respawn_delay",
		},
		{
			name:    "bad bot duration",
			yaml:    "bots:\n  - room: x\n    timeout: never\n",
			wantErr: "timeout",
		},
		{
			name:    "broken default template",
			yaml:    "defaults:\n  url_template: ws://no-placeholder/ws\nbots:\n  - room: x\n",
			wantErr: "exactly once",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bots.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o600))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Len(t, m.Bots, 2)
}

func TestLoadManifest_RejectsBadPaths(t *testing.T) {
	_, err := LoadManifest("")
	assert.Error(t, err)

	_, err = LoadManifest("bots.toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YAML or JSON")
}

func TestValidateBehavior(t *testing.T) {
	schema := []byte(`{
		"type": "object",
		"properties": {
			"greeting": {"type": "string"},
			"max_lines": {"type": "integer", "minimum": 1}
		},
		"required": ["greeting"]
	}`)

	t.Run("conforming block", func(t *testing.T) {
		violations, err := ValidateBehavior(schema, map[string]any{
			"greeting":  "hi",
			"max_lines": 2,
		})
		require.NoError(t, err)
		assert.Empty(t, violations)
	})

	t.Run("missing required field", func(t *testing.T) {
		violations, err := ValidateBehavior(schema, map[string]any{
			"max_lines": 2,
		})
		require.NoError(t, err)
		require.Len(t, violations, 1)
		assert.Contains(t, violations[0].Message, "greeting")
	})

	t.Run("wrong type", func(t *testing.T) {
		violations, err := ValidateBehavior(schema, map[string]any{
			"greeting":  "hi",
			"max_lines": "three",
		})
		require.NoError(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, "max_lines", violations[0].Field)
	})

	t.Run("empty schema accepts anything", func(t *testing.T) {
		violations, err := ValidateBehavior(nil, map[string]any{"x": 1})
		require.NoError(t, err)
		assert.Empty(t, violations)
	})

	t.Run("nil block validates as empty object", func(t *testing.T) {
		violations, err := ValidateBehavior(schema, nil)
		require.NoError(t, err)
		require.NotEmpty(t, violations)
	})
}
