package proto

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Message is a node in a room's log. It corresponds to a chat message, or
// a post, or any broadcasted event in a room that should appear in the log.
//
// Ids are unique within a room and totally ordered, so they double as the
// log's sort key. An edit arrives as a new record with the same ID; a
// deletion only sets the Deleted timestamp. Truncated marks a record whose
// full content was not delivered.
type Message struct {
	ID              string       `json:"id"`
	Parent          string       `json:"parent"`
	PreviousEditID  string       `json:"previous_edit_id,omitempty"`
	UnixTime        Time         `json:"time"`
	Sender          *SessionView `json:"sender"`
	Content         string       `json:"content"`
	EncryptionKeyID string       `json:"encryption_key_id,omitempty"`
	Edited          Time         `json:"edited,omitempty"`
	Deleted         Time         `json:"deleted,omitempty"`
	Truncated       bool         `json:"truncated,omitempty"`

	mu       sync.Mutex
	mentions *mentionCache
}

// mentionCache holds the scan result together with the content it was
// computed from. Keying the cache on the content makes invalidation
// automatic: any write to Content, however it happens, misses the cache.
type mentionCache struct {
	content string
	list    []Mention
	names   map[string]struct{}
}

// SetContent replaces the message content and drops the cached mention
// scan in the same critical section, so a concurrent reader never pairs
// the new content with mentions computed from the old one.
func (m *Message) SetContent(content string) {
	m.mu.Lock()
	m.Content = content
	m.mentions = nil
	m.mu.Unlock()
}

// Mentions returns every @-mention in the content, in content order. The
// scan runs lazily on first access and is cached until the content
// changes.
func (m *Message) Mentions() []Mention {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.scanLocked()
	out := make([]Mention, len(c.list))
	copy(out, c.list)
	return out
}

// MentionSet returns the set of mentioned names, normalized the same way
// NormalizeNick normalizes nicknames.
func (m *Message) MentionSet() map[string]struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.scanLocked()
	out := make(map[string]struct{}, len(c.names))
	for name := range c.names {
		out[name] = struct{}{}
	}
	return out
}

// Mentioned reports whether the content @-mentions the given name. The
// name is normalized before the lookup, so it can be passed as displayed.
func (m *Message) Mentioned(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.scanLocked().names[NormalizeNick(name)]
	return ok
}

func (m *Message) scanLocked() *mentionCache {
	if m.mentions == nil || m.mentions.content != m.Content {
		list := ScanMentions(m.Content)
		names := make(map[string]struct{}, len(list))
		for _, mn := range list {
			names[NormalizeNick(mn.Name())] = struct{}{}
		}
		m.mentions = &mentionCache{content: m.Content, list: list, names: names}
	}
	return m.mentions
}

// Mention is one @-mention found in message content.
type Mention struct {
	// Offset is the byte offset of the '@' within the content.
	Offset int
	// Token is the matched text including the leading '@'.
	Token string
}

// Name returns the mentioned name without the leading '@'. It is not
// normalized; pass it through NormalizeNick to compare against nicknames.
func (m Mention) Name() string { return strings.TrimPrefix(m.Token, "@") }

// mentionDelims are the characters that terminate an @-mention and that
// may precede the '@' of one. Taken from the web client's tokenizer so
// highlighting and bot behavior agree.
const mentionDelims = `,.!?;&<'"`

func isMentionBoundary(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(mentionDelims, r)
}

// ScanMentions finds every @-mention in the content, scanning left to
// right without overlap. A mention is the longest run of non-boundary
// characters following an '@' that sits at the start of the content or
// right after a boundary character.
func ScanMentions(content string) []Mention {
	var out []Mention
	for i := 0; i < len(content); {
		if content[i] != '@' {
			_, w := utf8.DecodeRuneInString(content[i:])
			i += w
			continue
		}
		if i > 0 {
			prev, _ := utf8.DecodeLastRuneInString(content[:i])
			if !isMentionBoundary(prev) {
				i++
				continue
			}
		}
		end := i + 1
		for end < len(content) {
			r, w := utf8.DecodeRuneInString(content[end:])
			if isMentionBoundary(r) {
				break
			}
			end += w
		}
		if end == i+1 {
			// Bare '@' with no name after it.
			i++
			continue
		}
		out = append(out, Mention{Offset: i, Token: content[i:end]})
		i = end
	}
	return out
}
