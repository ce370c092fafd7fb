package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointConfig_Normalize(t *testing.T) {
	cfg := EndpointConfig{Room: "testing"}.Normalize()

	assert.Equal(t, "testing", cfg.Room)
	assert.Equal(t, DefaultURLTemplate, cfg.URLTemplate)
	assert.Equal(t, DefaultRetryCount, cfg.RetryCount)
	assert.Equal(t, DefaultRetryDelay, cfg.RetryDelay)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultLogDepth, cfg.LogDepth)
	assert.Equal(t, DefaultSendRate, cfg.SendRate)
	assert.Equal(t, DefaultSendBurst, cfg.SendBurst)
}

func TestEndpointConfig_NormalizeKeepsExplicitValues(t *testing.T) {
	cfg := EndpointConfig{
		Room:        "testing",
		URLTemplate: "ws://localhost:8080/room/{room}/ws",
		RetryCount:  2,
		RetryDelay:  time.Second,
		Timeout:     5 * time.Second,
		LogDepth:    25,
	}.Normalize()

	assert.Equal(t, "ws://localhost:8080/room/{room}/ws", cfg.URLTemplate)
	assert.Equal(t, 2, cfg.RetryCount)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 25, cfg.LogDepth)
}

func TestEndpointConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*EndpointConfig)
		wantErr string
	}{
		{
			name:   "normalized config is valid",
			mutate: func(*EndpointConfig) {},
		},
		{
			name:    "missing url template",
			mutate:  func(c *EndpointConfig) { c.URLTemplate = "" },
			wantErr: "url_template is required",
		},
		{
			name:    "template without placeholder",
			mutate:  func(c *EndpointConfig) { c.URLTemplate = "wss://example.org/ws" },
			wantErr: "exactly once",
		},
		{
			name:    "template with two placeholders",
			mutate:  func(c *EndpointConfig) { c.URLTemplate = "wss://{room}/{room}/ws" },
			wantErr: "exactly once",
		},
		{
			name:    "negative retry count",
			mutate:  func(c *EndpointConfig) { c.RetryCount = -1 },
			wantErr: "retry_count",
		},
		{
			name:    "negative retry delay",
			mutate:  func(c *EndpointConfig) { c.RetryDelay = -time.Second },
			wantErr: "retry_delay",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *EndpointConfig) { c.Timeout = -time.Second },
			wantErr: "timeout",
		},
		{
			name:    "negative send rate",
			mutate:  func(c *EndpointConfig) { c.SendRate = -1 },
			wantErr: "send_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := EndpointConfig{Room: "testing"}.Normalize()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestEndpointConfig_ValidateAllowsRoomless(t *testing.T) {
	// A roomless endpoint is constructible; it fails at connect time, not
	// at validation time.
	cfg := EndpointConfig{}.Normalize()
	assert.NoError(t, cfg.Validate())
}

func TestEndpointConfig_RoomURL(t *testing.T) {
	cfg := EndpointConfig{Room: "space"}.Normalize()
	assert.Equal(t, "wss://euphoria.io/room/space/ws", cfg.RoomURL())

	cfg.URLTemplate = "ws://127.0.0.1:9999/room/{room}/ws"
	assert.Equal(t, "ws://127.0.0.1:9999/room/space/ws", cfg.RoomURL())
}

func TestEndpointConfig_WithDefaults(t *testing.T) {
	base := EndpointConfig{
		Nick:        "housebot",
		Passcode:    "hunter2",
		URLTemplate: "ws://base/{room}",
		RetryCount:  7,
		TrackUsers:  true,
	}

	t.Run("unset fields take base values", func(t *testing.T) {
		cfg := EndpointConfig{Room: "testing"}.WithDefaults(base)
		assert.Equal(t, "testing", cfg.Room)
		assert.Equal(t, "housebot", cfg.Nick)
		assert.Equal(t, "hunter2", cfg.Passcode)
		assert.Equal(t, "ws://base/{room}", cfg.URLTemplate)
		assert.Equal(t, 7, cfg.RetryCount)
		assert.True(t, cfg.TrackUsers)
	})

	t.Run("set fields win over base", func(t *testing.T) {
		cfg := EndpointConfig{
			Room:       "testing",
			Nick:       "specialbot",
			RetryCount: 1,
		}.WithDefaults(base)
		assert.Equal(t, "specialbot", cfg.Nick)
		assert.Equal(t, 1, cfg.RetryCount)
	})
}

func TestHelpers(t *testing.T) {
	block := map[string]any{
		"greeting": "hello",
		"count":    3,
		"ratio":    0.5,
		"enabled":  true,
		"rooms":    []any{"a", "b"},
		"mixed":    []any{"a", 1},
	}

	assert.Equal(t, "hello", GetString(block, "greeting", "x"))
	assert.Equal(t, "x", GetString(block, "count", "x"))
	assert.Equal(t, "x", GetString(block, "missing", "x"))

	assert.Equal(t, 3, GetInt(block, "count", 9))
	assert.Equal(t, 0, GetInt(block, "ratio", 9))
	assert.Equal(t, 9, GetInt(block, "missing", 9))

	assert.Equal(t, 0.5, GetFloat64(block, "ratio", 9))
	assert.Equal(t, 3.0, GetFloat64(block, "count", 9))

	assert.True(t, GetBool(block, "enabled", false))
	assert.False(t, GetBool(block, "greeting", false))

	assert.Equal(t, []string{"a", "b"}, GetStringSlice(block, "rooms", nil))
	assert.Nil(t, GetStringSlice(block, "mixed", nil))

	assert.True(t, HasKey(block, "greeting"))
	assert.False(t, HasKey(block, "missing"))
}
