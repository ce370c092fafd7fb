package bot

import (
	"context"
	"regexp"

	"github.com/SarahisCode/basebot/client"
)

// JumpPattern recognizes "!jump &room" messages naming the room to move
// to. The ampersand is optional and the room name follows the service's
// lowercase alphanumeric form.
var JumpPattern = regexp.MustCompile(`^!jump\s+&?([a-z][a-z0-9]+)\s*$`)

// RegisterJump adds the room-hopping trigger: a matching message gets a
// parting reply and the endpoint moves to the named room. It returns a
// remover.
func RegisterJump(ts *Triggers) func() {
	return ts.Add(JumpPattern, func(ctx context.Context, c *client.Client, m *TriggerMatch) {
		if _, err := m.Reply(ctx, "/me jumps away..."); err != nil {
			return
		}
		if err := c.SetRoom(ctx, m.Groups[1]); err != nil {
			ts.logger.Warn("Jump failed", "room", m.Groups[1], "error", err)
		}
	})
}
