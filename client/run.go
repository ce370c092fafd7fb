package client

import (
	"context"
	stderrors "errors"

	"github.com/SarahisCode/basebot/errors"
)

// Run connects to the room and then receives and dispatches packets until
// the endpoint is closed, the context is cancelled, or the stream fails
// beyond the configured retry budget. It owns the endpoint lifecycle: on
// return the final close notification has fired, so a supervisor watching
// the endpoint can decide whether to respawn it.
//
// A receive blocked on a quiet socket does not observe ctx directly; Run
// arranges for Close to be called on cancellation, which unblocks it.
func (c *Client) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	if err := c.Connect(ctx); err != nil {
		c.disconnect(false, true)
		return err
	}

	err := c.loop(ctx)
	clean := err == nil
	if !clean {
		c.logger.Error("Crashed", "error", err)
	}
	if !c.closed.Load() {
		c.disconnect(clean, true)
	}
	return err
}

func (c *Client) loop(ctx context.Context) error {
	for {
		p, err := c.Receive(ctx)
		switch {
		case err == nil:
		case p != nil && stderrors.Is(err, errors.ErrMalformedFrame):
			c.logger.Warn("Dispatching malformed frame as untyped", "error", err)
		case c.closed.Load() || stderrors.Is(err, errors.ErrShuttingDown):
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			return err
		}
		c.HandlePacket(ctx, p)
	}
}
