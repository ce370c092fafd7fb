// Package roster tracks the sessions currently present in a room.
//
// A UserList holds SessionView records under three indexes: the globally
// unique session id, the (agent/account/bot) user id, and the display name.
// The session id is authoritative: adding a view whose session id is
// already present atomically replaces the old entry in every index, so no
// index ever holds two entries for one session or a dangling entry for a
// departed one.
package roster

import (
	"sync"

	"github.com/SarahisCode/basebot/proto"
)

// UserList is a concurrency-safe index of the sessions in a room.
// The zero value is not usable; construct with New.
type UserList struct {
	mu          sync.RWMutex
	list        []*proto.SessionView
	bySessionID map[string]*proto.SessionView
	byUserID    map[proto.UserID][]*proto.SessionView
	byName      map[string][]*proto.SessionView
}

// New returns an empty UserList.
func New() *UserList {
	return &UserList{
		bySessionID: make(map[string]*proto.SessionView),
		byUserID:    make(map[proto.UserID][]*proto.SessionView),
		byName:      make(map[string][]*proto.SessionView),
	}
}

// Add inserts the given views. A view whose session id is already present
// replaces the existing entry; the replacement is atomic across all three
// indexes.
func (ul *UserList) Add(views ...*proto.SessionView) {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	for _, v := range views {
		if v == nil {
			continue
		}
		if old, ok := ul.bySessionID[v.SessionID]; ok {
			ul.dropLocked(old)
		}
		ul.list = append(ul.list, v)
		ul.bySessionID[v.SessionID] = v
		ul.byUserID[v.ID] = append(ul.byUserID[v.ID], v)
		ul.byName[v.Name] = append(ul.byName[v.Name], v)
	}
}

// Remove deletes the entries with the given views' session ids. Views not
// present are ignored.
func (ul *UserList) Remove(views ...*proto.SessionView) {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	for _, v := range views {
		if v == nil {
			continue
		}
		ul.removeSessionLocked(v.SessionID)
	}
}

// RemoveSession deletes the entry with the given session id and reports
// whether one was present.
func (ul *UserList) RemoveSession(sessionID string) bool {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return ul.removeSessionLocked(sessionID)
}

func (ul *UserList) removeSessionLocked(sessionID string) bool {
	old, ok := ul.bySessionID[sessionID]
	if !ok {
		return false
	}
	ul.dropLocked(old)
	return true
}

// dropLocked removes the exact entry from every index.
func (ul *UserList) dropLocked(v *proto.SessionView) {
	delete(ul.bySessionID, v.SessionID)
	ul.list = spliceOut(ul.list, v)
	if bucket := spliceOut(ul.byUserID[v.ID], v); len(bucket) > 0 {
		ul.byUserID[v.ID] = bucket
	} else {
		delete(ul.byUserID, v.ID)
	}
	if bucket := spliceOut(ul.byName[v.Name], v); len(bucket) > 0 {
		ul.byName[v.Name] = bucket
	} else {
		delete(ul.byName, v.Name)
	}
}

// Pattern selects roster entries by exact field match. Nil fields are
// ignored; a pattern with no fields set selects every entry.
type Pattern struct {
	ID        *proto.UserID
	Name      *string
	ServerID  *string
	ServerEra *string
	SessionID *string
	IsStaff   *bool
	IsManager *bool
}

// Empty reports whether no field of the pattern is set.
func (p Pattern) Empty() bool {
	return p.ID == nil && p.Name == nil && p.ServerID == nil &&
		p.ServerEra == nil && p.SessionID == nil && p.IsStaff == nil &&
		p.IsManager == nil
}

// Matches reports whether every set field equals the view's.
func (p Pattern) Matches(v *proto.SessionView) bool {
	if p.ID != nil && *p.ID != v.ID {
		return false
	}
	if p.Name != nil && *p.Name != v.Name {
		return false
	}
	if p.ServerID != nil && *p.ServerID != v.ServerID {
		return false
	}
	if p.ServerEra != nil && *p.ServerEra != v.ServerEra {
		return false
	}
	if p.SessionID != nil && *p.SessionID != v.SessionID {
		return false
	}
	if p.IsStaff != nil && *p.IsStaff != v.IsStaff {
		return false
	}
	if p.IsManager != nil && *p.IsManager != v.IsManager {
		return false
	}
	return true
}

// RemoveMatching deletes every entry the pattern matches and returns how
// many were removed. An empty pattern clears the roster; the partition
// handling of network events relies on this to drop entire server shards.
func (ul *UserList) RemoveMatching(p Pattern) int {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	if p.Empty() {
		n := len(ul.list)
		ul.clearLocked()
		return n
	}

	var doomed []*proto.SessionView
	for _, v := range ul.list {
		if p.Matches(v) {
			doomed = append(doomed, v)
		}
	}
	for _, v := range doomed {
		ul.dropLocked(v)
	}
	return len(doomed)
}

// Partition removes every session hosted by the given server/era pair and
// returns how many were removed. A network partition invalidates all of
// them at once.
func (ul *UserList) Partition(serverID, serverEra string) int {
	return ul.RemoveMatching(Pattern{ServerID: &serverID, ServerEra: &serverEra})
}

// Rename updates the name of the session's entry and re-indexes it under
// the new name. Because views are shared by reference, the stored entry is
// replaced with a copy carrying the new name rather than mutated; the copy
// keeps its position in the insertion order. The new view is returned, or
// nil if the session is unknown.
func (ul *UserList) Rename(sessionID, name string) *proto.SessionView {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	old, ok := ul.bySessionID[sessionID]
	if !ok {
		return nil
	}
	renamed := *old
	renamed.Name = name

	replaceInPlace(ul.list, old, &renamed)
	replaceInPlace(ul.byUserID[old.ID], old, &renamed)
	ul.bySessionID[sessionID] = &renamed

	if bucket := spliceOut(ul.byName[old.Name], old); len(bucket) > 0 {
		ul.byName[old.Name] = bucket
	} else {
		delete(ul.byName, old.Name)
	}
	ul.byName[name] = append(ul.byName[name], &renamed)

	return &renamed
}

// Clear removes every entry.
func (ul *UserList) Clear() {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	ul.clearLocked()
}

func (ul *UserList) clearLocked() {
	ul.list = nil
	ul.bySessionID = make(map[string]*proto.SessionView)
	ul.byUserID = make(map[proto.UserID][]*proto.SessionView)
	ul.byName = make(map[string][]*proto.SessionView)
}

// List returns every entry in insertion order.
func (ul *UserList) List() []*proto.SessionView {
	ul.mu.RLock()
	defer ul.mu.RUnlock()
	out := make([]*proto.SessionView, len(ul.list))
	copy(out, ul.list)
	return out
}

// Len returns the number of entries.
func (ul *UserList) Len() int {
	ul.mu.RLock()
	defer ul.mu.RUnlock()
	return len(ul.list)
}

// ForSession returns the entry with the given session id.
func (ul *UserList) ForSession(sessionID string) (*proto.SessionView, bool) {
	ul.mu.RLock()
	defer ul.mu.RUnlock()
	v, ok := ul.bySessionID[sessionID]
	return v, ok
}

// ForUser returns every session of the given agent, account, or bot id,
// in insertion order.
func (ul *UserList) ForUser(id proto.UserID) []*proto.SessionView {
	ul.mu.RLock()
	defer ul.mu.RUnlock()
	bucket := ul.byUserID[id]
	out := make([]*proto.SessionView, len(bucket))
	copy(out, bucket)
	return out
}

// ForName returns every session using the given name exactly as displayed,
// in insertion order.
func (ul *UserList) ForName(name string) []*proto.SessionView {
	ul.mu.RLock()
	defer ul.mu.RUnlock()
	bucket := ul.byName[name]
	out := make([]*proto.SessionView, len(bucket))
	copy(out, bucket)
	return out
}

// ForNormName returns every session whose normalized name equals the
// normalized form of name. Mention matching uses this, so "Space Cadet"
// finds the session a "@SpaceCadet" mention refers to.
func (ul *UserList) ForNormName(name string) []*proto.SessionView {
	want := proto.NormalizeNick(name)
	ul.mu.RLock()
	defer ul.mu.RUnlock()
	var out []*proto.SessionView
	for _, v := range ul.list {
		if v.NormName() == want {
			out = append(out, v)
		}
	}
	return out
}

func spliceOut(bucket []*proto.SessionView, v *proto.SessionView) []*proto.SessionView {
	for i, entry := range bucket {
		if entry == v {
			return append(bucket[:i], bucket[i+1:]...)
		}
	}
	return bucket
}

func replaceInPlace(bucket []*proto.SessionView, old, now *proto.SessionView) {
	for i, entry := range bucket {
		if entry == old {
			bucket[i] = now
			return
		}
	}
}
