package proto

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanMentions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Mention
	}{
		{
			name:    "two mentions with punctuation",
			content: "hi @Bob, @Alice!",
			want: []Mention{
				{Offset: 3, Token: "@Bob"},
				{Offset: 9, Token: "@Alice"},
			},
		},
		{
			name:    "mention at start",
			content: "@Bob hello",
			want:    []Mention{{Offset: 0, Token: "@Bob"}},
		},
		{
			name:    "mention at end",
			content: "ping @Bob",
			want:    []Mention{{Offset: 5, Token: "@Bob"}},
		},
		{
			name:    "no mentions",
			content: "plain text without any at signs",
			want:    nil,
		},
		{
			name:    "at sign inside a word is not a mention",
			content: "mail me at user@example.com",
			want:    nil,
		},
		{
			name:    "bare at sign",
			content: "look @ this",
			want:    nil,
		},
		{
			name:    "empty content",
			content: "",
			want:    nil,
		},
		{
			name:    "mention after quote delimiter",
			content: `"@Bob" said so`,
			want:    []Mention{{Offset: 1, Token: "@Bob"}},
		},
		{
			name:    "delimiters terminate the name",
			content: "@Bob.Smith no",
			want:    []Mention{{Offset: 0, Token: "@Bob"}},
		},
		{
			name:    "adjacent mentions without separator merge",
			content: "@a@b",
			want:    []Mention{{Offset: 0, Token: "@a@b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScanMentions(tt.content))
		})
	}
}

func TestMessage_MentionSet(t *testing.T) {
	msg := &Message{Content: "hi @Bob, @Alice!"}

	set := msg.MentionSet()
	require.Len(t, set, 2)
	assert.Contains(t, set, "bob")
	assert.Contains(t, set, "alice")

	assert.True(t, msg.Mentioned("Bob"))
	assert.True(t, msg.Mentioned("aLiCe"))
	assert.False(t, msg.Mentioned("Carol"))
}

func TestMessage_MentionCacheInvalidation(t *testing.T) {
	msg := &Message{Content: "hello @Bob"}

	first := msg.Mentions()
	require.Len(t, first, 1)
	assert.Equal(t, "@Bob", first[0].Token)

	msg.SetContent("now for @Carol instead")

	second := msg.Mentions()
	require.Len(t, second, 1)
	assert.Equal(t, "@Carol", second[0].Token)
	assert.Contains(t, msg.MentionSet(), "carol")
	assert.NotContains(t, msg.MentionSet(), "bob")
}

func TestMessage_MentionsEmptyWithoutAtSign(t *testing.T) {
	msg := &Message{Content: "no names here"}
	assert.Empty(t, msg.Mentions())
	assert.Empty(t, msg.MentionSet())
}

func TestMessage_ConcurrentMentionAccess(t *testing.T) {
	msg := &Message{Content: "hi @Bob"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				msg.Mentions()
				msg.MentionSet()
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if (n+j)%2 == 0 {
					msg.SetContent("hi @Bob")
				} else {
					msg.SetContent("hi @Alice")
				}
			}
		}(i)
	}
	wg.Wait()

	// Whatever the final content, the cache must agree with it.
	set := msg.MentionSet()
	require.Len(t, set, 1)
	if _, ok := set["bob"]; !ok {
		assert.Contains(t, set, "alice")
	}
}

func TestMention_Name(t *testing.T) {
	m := Mention{Offset: 3, Token: "@Bob"}
	assert.Equal(t, "Bob", m.Name())
}
