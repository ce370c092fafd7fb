package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand_Offsets(t *testing.T) {
	tokens := ParseCommand("!cmd  foo   bar")
	assert.Equal(t, []Token{
		{Text: "!cmd", Offset: 0},
		{Text: "foo", Offset: 6},
		{Text: "bar", Offset: 12},
	}, tokens)
}

func TestParseCommand_ByteOffsets(t *testing.T) {
	tokens := ParseCommand("!café →x")
	assert.Equal(t, []Token{
		{Text: "!café", Offset: 0},
		{Text: "→x", Offset: 7},
	}, tokens)
}

func TestParseCommand_Whitespace(t *testing.T) {
	assert.Empty(t, ParseCommand(""))
	assert.Empty(t, ParseCommand("  \t\n "))
	assert.Equal(t, []Token{{Text: "lone", Offset: 2}}, ParseCommand("  lone  "))
}

func TestCommandName(t *testing.T) {
	name, ok := CommandName(ParseCommand("!ping @bot"))
	assert.True(t, ok)
	assert.Equal(t, "ping", name)

	_, ok = CommandName(ParseCommand("hello there"))
	assert.False(t, ok)

	name, ok = CommandName(ParseCommand("! with args"))
	assert.True(t, ok)
	assert.Equal(t, "", name)

	// A command mark has to open the line.
	_, ok = CommandName(ParseCommand(" !ping"))
	assert.False(t, ok)

	_, ok = CommandName(nil)
	assert.False(t, ok)
}

func TestIsCommand(t *testing.T) {
	tokens := ParseCommand("!jump &room")
	assert.True(t, IsCommand(tokens, "jump"))
	assert.False(t, IsCommand(tokens, "ping"))
	assert.False(t, IsCommand(nil, "jump"))
}
