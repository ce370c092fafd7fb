package bot

import (
	"context"
	"log/slog"
	"regexp"
	"sync"

	"github.com/SarahisCode/basebot/client"
	"github.com/SarahisCode/basebot/proto"
)

// TriggerMatch carries one regex hit on a chat message into its action.
type TriggerMatch struct {
	// Msg is the message that matched.
	Msg *proto.Message
	// Meta describes the message's origin.
	Meta client.ChatMeta
	// Pattern is the regex that fired.
	Pattern *regexp.Regexp
	// Groups holds the submatch texts; Groups[0] is the whole match and
	// unmatched groups are empty.
	Groups []string

	text   string
	idx    []int
	client *client.Client
}

// Expand substitutes the match's groups into template using the regexp
// package's $1/${name} syntax.
func (m *TriggerMatch) Expand(template string) string {
	return string(m.Pattern.ExpandString(nil, template, m.text, m.idx))
}

// Reply sends text as a child of the matched message and returns the
// command id.
func (m *TriggerMatch) Reply(ctx context.Context, text string) (string, error) {
	return m.client.SendChat(ctx, text, m.Msg.ID, nil)
}

// TriggerFunc acts on one regex hit.
type TriggerFunc func(ctx context.Context, c *client.Client, m *TriggerMatch)

type trigger struct {
	id      uint64
	pattern *regexp.Regexp
	action  TriggerFunc
}

// Triggers evaluates an ordered list of regexes against every chat
// message. Patterns are matched anchored at the start of the content;
// by default a message from the client itself is skipped and evaluation
// stops at the first pattern that fires.
type Triggers struct {
	logger    *slog.Logger
	matchSelf bool
	matchAll  bool

	mu       sync.Mutex
	seq      uint64
	triggers []trigger
}

// TriggerOption configures a trigger set.
type TriggerOption func(*Triggers)

// WithTriggerLogger sets the trigger set's logger. A nil logger keeps
// the default.
func WithTriggerLogger(logger *slog.Logger) TriggerOption {
	return func(t *Triggers) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMatchSelf evaluates the client's own messages too.
func WithMatchSelf() TriggerOption {
	return func(t *Triggers) {
		t.matchSelf = true
	}
}

// WithMatchAll keeps evaluating after the first pattern fires.
func WithMatchAll() TriggerOption {
	return func(t *Triggers) {
		t.matchAll = true
	}
}

// NewTriggers builds an empty trigger set.
func NewTriggers(opts ...TriggerOption) *Triggers {
	t := &Triggers{logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "triggers")
	return t
}

// Add appends a pattern and its action to the evaluation order and
// returns a remover.
func (ts *Triggers) Add(pattern *regexp.Regexp, action TriggerFunc) func() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.seq++
	id := ts.seq
	ts.triggers = append(ts.triggers, trigger{id: id, pattern: pattern, action: action})
	return func() {
		ts.mu.Lock()
		defer ts.mu.Unlock()
		for i, t := range ts.triggers {
			if t.id == id {
				ts.triggers = append(ts.triggers[:i:i], ts.triggers[i+1:]...)
				return
			}
		}
	}
}

// Reply appends a pattern whose action answers the matched message with
// each template in order, expanded against the match.
func (ts *Triggers) Reply(pattern *regexp.Regexp, templates ...string) func() {
	return ts.Add(pattern, func(ctx context.Context, c *client.Client, m *TriggerMatch) {
		for _, tpl := range templates {
			if _, err := m.Reply(ctx, m.Expand(tpl)); err != nil {
				ts.logger.Warn("Trigger reply failed", "error", err)
				return
			}
		}
	})
}

// Bind installs the trigger set on the client's chat stream and returns
// a remover.
func (ts *Triggers) Bind(c *client.Client) func() {
	return c.HandleChat(ts.dispatch)
}

func (ts *Triggers) dispatch(ctx context.Context, c *client.Client, msg *proto.Message, meta client.ChatMeta) {
	if meta.Own && !ts.matchSelf {
		return
	}
	text := msg.Content
	logged := false
	for _, t := range ts.snapshot() {
		idx := t.pattern.FindStringSubmatchIndex(text)
		if idx == nil || idx[0] != 0 {
			continue
		}
		if !logged {
			ts.logger.Info("Trigger message", "content", text)
			logged = true
		}
		t.action(ctx, c, &TriggerMatch{
			Msg:     msg,
			Meta:    meta,
			Pattern: t.pattern,
			Groups:  submatches(text, idx),
			text:    text,
			idx:     idx,
			client:  c,
		})
		if !ts.matchAll {
			return
		}
	}
}

func (ts *Triggers) snapshot() []trigger {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]trigger(nil), ts.triggers...)
}

func submatches(text string, idx []int) []string {
	groups := make([]string, 0, len(idx)/2)
	for i := 0; i < len(idx); i += 2 {
		if idx[i] < 0 {
			groups = append(groups, "")
			continue
		}
		groups = append(groups, text[idx[i]:idx[i+1]])
	}
	return groups
}
