package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SarahisCode/basebot/client"
	"github.com/SarahisCode/basebot/pkg/timefmt"
)

// Standard implements the botrulez command set
// (github.com/jedevc/botrulez):
//
//	!ping[ @nick]  -> "Pong!"
//	!help[ @nick]  -> a short or long help message
//	!uptime @nick  -> "/me is up since <datetime> (<delta>)"
//
// The bare forms answer everyone in the room; the targeted forms answer
// only when the mention matches this client's nick or an alias. Bare
// !uptime is off unless enabled, as the botrulez discourage it.
type Standard struct {
	logger    *slog.Logger
	pingText  string
	specPing  string
	shortHelp string
	longHelp  string
	uptime    bool
	genUptime bool
	aliases   []string
	started   time.Time
}

// StandardOption configures the standard command set.
type StandardOption func(*Standard)

// WithStandardLogger sets the logger used for failed replies. A nil
// logger keeps the default.
func WithStandardLogger(logger *slog.Logger) StandardOption {
	return func(s *Standard) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPingText sets the reply to a bare !ping. Empty text silences the
// command.
func WithPingText(text string) StandardOption {
	return func(s *Standard) {
		s.pingText = text
	}
}

// WithSpecPingText sets the reply to a targeted !ping. Empty text falls
// back to the bare reply.
func WithSpecPingText(text string) StandardOption {
	return func(s *Standard) {
		s.specPing = text
	}
}

// WithHelp sets the replies to !help: short answers the bare form, long
// the targeted one. An empty short text silences bare !help; an empty
// long text falls back to short.
func WithHelp(short, long string) StandardOption {
	return func(s *Standard) {
		s.shortHelp = short
		s.longHelp = long
	}
}

// WithUptime selects which !uptime forms are answered.
func WithUptime(targeted, general bool) StandardOption {
	return func(s *Standard) {
		s.uptime = targeted
		s.genUptime = general
	}
}

// WithAliases adds alternate nicks accepted in targeted commands, for
// bots that carry information in their displayed name.
func WithAliases(aliases ...string) StandardOption {
	return func(s *Standard) {
		s.aliases = append(s.aliases, aliases...)
	}
}

// WithStarted overrides the start time reported by !uptime.
func WithStarted(t time.Time) StandardOption {
	return func(s *Standard) {
		s.started = t
	}
}

// NewStandard builds the standard command set. Defaults: ping answers
// "Pong!", help is silent until configured, targeted uptime is on.
func NewStandard(opts ...StandardOption) *Standard {
	s := &Standard{
		logger:   slog.Default(),
		pingText: "Pong!",
		uptime:   true,
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register binds the standard commands onto d and returns a remover for
// all of them.
func (s *Standard) Register(d *Commands) func() {
	removers := []func(){
		d.Handle("ping", s.handlePing),
		d.Handle("help", s.handleHelp),
		d.Handle("uptime", s.handleUptime),
	}
	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

func (s *Standard) handlePing(ctx context.Context, c *client.Client, cmd *Command) {
	switch {
	case len(cmd.Tokens) == 1:
		s.reply(ctx, c, cmd, s.pingText)
	case Addressed(c, cmd, s.aliases...):
		s.reply(ctx, c, cmd, fallback(s.specPing, s.pingText))
	}
}

func (s *Standard) handleHelp(ctx context.Context, c *client.Client, cmd *Command) {
	switch {
	case len(cmd.Tokens) == 1:
		s.reply(ctx, c, cmd, s.shortHelp)
	case Addressed(c, cmd, s.aliases...):
		s.reply(ctx, c, cmd, fallback(s.longHelp, s.shortHelp))
	}
}

func (s *Standard) handleUptime(ctx context.Context, c *client.Client, cmd *Command) {
	bare := len(cmd.Tokens) == 1
	if !(s.genUptime && bare || s.uptime && Addressed(c, cmd, s.aliases...)) {
		return
	}
	if s.started.IsZero() {
		s.reply(ctx, c, cmd, "/me Uptime information is N/A")
		return
	}
	s.reply(ctx, c, cmd, fmt.Sprintf("/me is up since %s (%s)",
		timefmt.FormatDatetime(s.started, false),
		timefmt.FormatDelta(time.Since(s.started), false)))
}

func (s *Standard) reply(ctx context.Context, c *client.Client, cmd *Command, text string) {
	if text == "" {
		return
	}
	if _, err := c.SendChat(ctx, text, cmd.Msg.ID, nil); err != nil {
		s.logger.Warn("Command reply failed", "command", cmd.Name, "error", err)
	}
}

func fallback(text, alt string) string {
	if text == "" {
		return alt
	}
	return text
}
