// Package chatlog maintains a threaded view of a room's message log.
//
// The server never forgets: deletion only flags a message, and an edit is
// delivered as a fresh record under the original id. The Tree therefore
// keeps exactly one record per id, the latest seen, and indexes ids by
// parent to expose the thread structure.
package chatlog

import (
	"sort"
	"sync"

	"github.com/SarahisCode/basebot/proto"
)

// Tree is a concurrency-safe threaded chat log holding the latest known
// version of every message, keyed by id. Construct with New.
type Tree struct {
	mu       sync.RWMutex
	messages map[string]*proto.Message
	children map[string][]string
	earliest *proto.Message
	latest   *proto.Message
}

// New returns an empty Tree.
func New() *Tree {
	return &Tree{
		messages: make(map[string]*proto.Message),
		children: make(map[string][]string),
	}
}

// Add incorporates the given messages. A message whose id is already known
// replaces the stored record in place without disturbing the thread
// structure; that is how edits arrive. After the batch every per-parent
// child list is sorted ascending by id and free of duplicates, regardless
// of insertion order.
func (t *Tree) Add(msgs ...*proto.Message) {
	if len(msgs) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	dirty := make(map[string]bool)
	for _, msg := range msgs {
		if msg == nil || msg.ID == "" {
			continue
		}
		_, known := t.messages[msg.ID]
		t.messages[msg.ID] = msg
		if !known {
			t.children[msg.Parent] = append(t.children[msg.Parent], msg.ID)
			dirty[msg.Parent] = true
		}
		if t.earliest == nil || t.earliest.ID > msg.ID {
			t.earliest = msg
		}
		if t.latest == nil || t.latest.ID <= msg.ID {
			// Ties go to the most recently inserted record.
			t.latest = msg
		}
	}
	for parent := range dirty {
		sort.Strings(t.children[parent])
	}
}

// Clear removes every message.
func (t *Tree) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = make(map[string]*proto.Message)
	t.children = make(map[string][]string)
	t.earliest = nil
	t.latest = nil
}

// Earliest returns the message with the smallest id seen, or nil if the
// tree is empty.
func (t *Tree) Earliest() *proto.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.earliest
}

// Latest returns the message with the largest id seen, or nil if the tree
// is empty.
func (t *Tree) Latest() *proto.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest
}

// Get returns the latest record stored under the given id.
func (t *Tree) Get(id string) (*proto.Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	msg, ok := t.messages[id]
	return msg, ok
}

// Children returns the messages threaded under the given parent id, in
// ascending id order. The empty string selects top-level messages.
func (t *Tree) Children(parent string) []*proto.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := t.children[parent]
	out := make([]*proto.Message, 0, len(ids))
	for _, id := range ids {
		if msg, ok := t.messages[id]; ok {
			out = append(out, msg)
		}
	}
	return out
}

// All returns every message in ascending id order.
func (t *Tree) All() []*proto.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*proto.Message, 0, len(t.messages))
	for _, msg := range t.messages {
		out = append(out, msg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of distinct message ids stored.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
