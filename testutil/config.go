package testutil

import (
	"time"

	"github.com/SarahisCode/basebot/config"
)

// RoomConfig returns an endpoint configuration pointed at a test server,
// tuned for fast failures.
func RoomConfig(wsURL string) config.EndpointConfig {
	return config.EndpointConfig{
		Room:        "testroom",
		URLTemplate: wsURL + "/{room}",
		RetryCount:  2,
		RetryDelay:  10 * time.Millisecond,
		Timeout:     5 * time.Second,
		SendRate:    100,
		SendBurst:   100,
	}
}
