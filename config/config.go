package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// RoomPlaceholder is the token in a URL template that the room name is
// substituted for.
const RoomPlaceholder = "{room}"

// Defaults applied by EndpointConfig.Normalize. The retry profile is a fixed
// delay between attempts; the server tolerates reconnect storms, so a
// predictable count*delay bound beats backoff growth here.
const (
	DefaultURLTemplate  = "wss://euphoria.io/room/{room}/ws"
	DefaultRetryCount   = 4
	DefaultRetryDelay   = 10 * time.Second
	DefaultTimeout      = 60 * time.Second
	DefaultRespawnDelay = 60 * time.Second
	DefaultLogDepth     = 100

	// DefaultSendRate caps outbound commands per second; DefaultSendBurst
	// is the bucket size handed to the limiter.
	DefaultSendRate  = 10.0
	DefaultSendBurst = 20
)

// EndpointConfig carries everything one endpoint needs to join and stay in a
// room. The zero value is not usable directly; call Normalize to fill in
// defaults and Validate before handing it to a client.
type EndpointConfig struct {
	// Room is the name of the room to join. Required.
	Room string `json:"room"`

	// Nick is the nickname to claim after joining. Empty means the
	// endpoint stays nickless (it can still read and reply to pings).
	Nick string `json:"nick,omitempty"`

	// Passcode authenticates against private rooms when the server asks.
	Passcode string `json:"passcode,omitempty"`

	// URLTemplate is the address pattern the room name is substituted
	// into. It must contain RoomPlaceholder exactly once.
	URLTemplate string `json:"url_template,omitempty"`

	// RetryCount is the number of additional attempts after a failed
	// connect, send, or receive. RetryDelay is the fixed pause before
	// each retry.
	RetryCount int           `json:"retry_count,omitempty"`
	RetryDelay time.Duration `json:"retry_delay,omitempty"`

	// Timeout bounds the dial handshake and every single read or write
	// on the transport.
	Timeout time.Duration `json:"timeout,omitempty"`

	// LogDepth is how many past messages a log refresh asks for.
	LogDepth int `json:"log_depth,omitempty"`

	// SendRate and SendBurst parameterize the outbound rate limiter.
	SendRate  float64 `json:"send_rate,omitempty"`
	SendBurst int     `json:"send_burst,omitempty"`

	// TrackUsers and TrackMessages enable roster and chat log
	// maintenance on the endpoint.
	TrackUsers    bool `json:"track_users,omitempty"`
	TrackMessages bool `json:"track_messages,omitempty"`
}

// Normalize fills unset fields with defaults and returns the result. The
// receiver is not modified.
func (c EndpointConfig) Normalize() EndpointConfig {
	if c.URLTemplate == "" {
		c.URLTemplate = DefaultURLTemplate
	}
	if c.RetryCount == 0 {
		c.RetryCount = DefaultRetryCount
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.LogDepth == 0 {
		c.LogDepth = DefaultLogDepth
	}
	if c.SendRate == 0 {
		c.SendRate = DefaultSendRate
	}
	if c.SendBurst == 0 {
		c.SendBurst = DefaultSendBurst
	}
	return c
}

// Validate checks the config for internal consistency. It does not require a
// room: an endpoint may be constructed roomless and fail only when asked to
// connect.
func (c EndpointConfig) Validate() error {
	if c.URLTemplate == "" {
		return errors.New("url_template is required")
	}
	if strings.Count(c.URLTemplate, RoomPlaceholder) != 1 {
		return fmt.Errorf("url_template must contain %s exactly once: %q",
			RoomPlaceholder, c.URLTemplate)
	}
	if c.RetryCount < 0 {
		return fmt.Errorf("retry_count cannot be negative: %d", c.RetryCount)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay cannot be negative: %v", c.RetryDelay)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative: %v", c.Timeout)
	}
	if c.LogDepth < 0 {
		return fmt.Errorf("log_depth cannot be negative: %d", c.LogDepth)
	}
	if c.SendRate < 0 {
		return fmt.Errorf("send_rate cannot be negative: %v", c.SendRate)
	}
	if c.SendBurst < 0 {
		return fmt.Errorf("send_burst cannot be negative: %d", c.SendBurst)
	}
	return nil
}

// RoomURL substitutes the room name into the URL template.
func (c EndpointConfig) RoomURL() string {
	return strings.Replace(c.URLTemplate, RoomPlaceholder, c.Room, 1)
}
