package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/SarahisCode/basebot/client"
	"github.com/SarahisCode/basebot/pkg/worker"
	"github.com/SarahisCode/basebot/proto"
)

// Command is one parsed chat command on its way through the dispatcher.
type Command struct {
	// Name is the invoked command without the leading exclamation mark,
	// "" for a bare "!".
	Name string
	// Line is the complete content of the message the command came in.
	Line string
	// Tokens is the parsed command line; Tokens[0] keeps the mark.
	Tokens []Token
	// Msg is the message carrying the command.
	Msg *proto.Message
	// Meta describes the message's origin, as handed to chat handlers.
	Meta client.ChatMeta
}

// CommandFunc handles one command. Replies go to the command message:
// c.SendChat(ctx, text, cmd.Msg.ID, nil).
type CommandFunc func(ctx context.Context, c *client.Client, cmd *Command)

// Work is one unit of deferred command work.
type Work func(context.Context) error

// NewWorkPool builds a worker pool sized for slow command handlers.
// Callers start and stop it around the endpoint's lifetime.
func NewWorkPool(workers, queueSize int, opts ...worker.Option[Work]) *worker.Pool[Work] {
	return worker.NewPool(workers, queueSize, func(ctx context.Context, w Work) error {
		return w(ctx)
	}, opts...)
}

type commandRegistration struct {
	id uint64
	fn CommandFunc
}

// Commands dispatches chat messages that start with "!" to registered
// handlers. General handlers see every command; named handlers only the
// command they were registered for. Handlers run on the dispatch
// goroutine in registration order; slow work belongs on the work pool.
type Commands struct {
	logger *slog.Logger
	pool   *worker.Pool[Work]

	mu      sync.Mutex
	seq     uint64
	general []commandRegistration
	named   map[string][]commandRegistration
}

// CommandOption configures a Commands dispatcher.
type CommandOption func(*Commands)

// WithCommandLogger sets the dispatcher's logger. A nil logger keeps the
// default.
func WithCommandLogger(logger *slog.Logger) CommandOption {
	return func(d *Commands) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithWorkPool attaches a pool for handlers registered via HandleAsync.
func WithWorkPool(pool *worker.Pool[Work]) CommandOption {
	return func(d *Commands) {
		d.pool = pool
	}
}

// NewCommands builds an empty command dispatcher.
func NewCommands(opts ...CommandOption) *Commands {
	d := &Commands{
		logger: slog.Default(),
		named:  make(map[string][]commandRegistration),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "commands")
	return d
}

// HandleGeneral registers a handler invoked for every command. It
// returns a remover.
func (d *Commands) HandleGeneral(fn CommandFunc) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	id := d.seq
	d.general = append(d.general, commandRegistration{id: id, fn: fn})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.general = removeRegistration(d.general, id)
	}
}

// Handle registers a handler for one command, named without the leading
// exclamation mark. It returns a remover.
func (d *Commands) Handle(name string, fn CommandFunc) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	id := d.seq
	d.named[name] = append(d.named[name], commandRegistration{id: id, fn: fn})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.named[name] = removeRegistration(d.named[name], id)
	}
}

// HandleAsync registers a handler whose work is submitted to the work
// pool instead of running on the dispatch goroutine. Without a pool the
// handler runs inline; when the pool's queue is full the command is
// dropped with a warning.
func (d *Commands) HandleAsync(name string, fn CommandFunc) func() {
	return d.Handle(name, func(ctx context.Context, c *client.Client, cmd *Command) {
		if d.pool == nil {
			fn(ctx, c, cmd)
			return
		}
		err := d.pool.Submit(func(ctx context.Context) error {
			fn(ctx, c, cmd)
			return nil
		})
		if err != nil {
			d.logger.Warn("Dropping command work", "command", cmd.Name, "error", err)
		}
	})
}

func removeRegistration(regs []commandRegistration, id uint64) []commandRegistration {
	for i, reg := range regs {
		if reg.id == id {
			return append(regs[:i:i], regs[i+1:]...)
		}
	}
	return regs
}

// Bind installs the dispatcher on the client's chat stream and returns a
// remover.
func (d *Commands) Bind(c *client.Client) func() {
	return c.HandleChat(d.dispatch)
}

// dispatch is the chat handler feeding the registries. Commands are
// recognized in every chat message, own messages and replayed history
// included, the way the protocol's bots have always behaved.
func (d *Commands) dispatch(ctx context.Context, c *client.Client, msg *proto.Message, meta client.ChatMeta) {
	if !strings.HasPrefix(msg.Content, "!") {
		return
	}
	tokens := ParseCommand(msg.Content)
	name, ok := CommandName(tokens)
	if !ok {
		return
	}
	d.logger.Info("Got command", "line", msg.Content)

	cmd := &Command{
		Name:   name,
		Line:   msg.Content,
		Tokens: tokens,
		Msg:    msg,
		Meta:   meta,
	}
	for _, reg := range d.snapshotGeneral() {
		reg.fn(ctx, c, cmd)
	}
	if name == "" {
		return
	}
	for _, reg := range d.snapshotNamed(name) {
		reg.fn(ctx, c, cmd)
	}
}

func (d *Commands) snapshotGeneral() []commandRegistration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]commandRegistration(nil), d.general...)
}

func (d *Commands) snapshotNamed(name string) []commandRegistration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]commandRegistration(nil), d.named[name]...)
}

// Addressed reports whether cmd targets this client: exactly two tokens,
// the second an @-mention whose normalized form matches the client's
// current nick or one of the aliases.
func Addressed(c *client.Client, cmd *Command, aliases ...string) bool {
	if len(cmd.Tokens) != 2 {
		return false
	}
	mention := cmd.Tokens[1].Text
	if !strings.HasPrefix(mention, "@") {
		return false
	}
	name := proto.NormalizeNick(strings.TrimPrefix(mention, "@"))
	own := c.EffectiveNick()
	if own == "" {
		own = c.Nick()
	}
	if name == proto.NormalizeNick(own) {
		return true
	}
	for _, alias := range aliases {
		if name == proto.NormalizeNick(alias) {
			return true
		}
	}
	return false
}
