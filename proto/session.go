package proto

import (
	"strings"
	"unicode"
)

// UserID identifies an agent, account, or bot. The kind is encoded as a
// fixed prefix on the id itself, so the three checks below are mutually
// exclusive.
type UserID string

// IsAccount reports whether the id belongs to a logged-in account.
func (id UserID) IsAccount() bool { return strings.HasPrefix(string(id), "account:") }

// IsAgent reports whether the id belongs to an anonymous browser session.
func (id UserID) IsAgent() bool { return strings.HasPrefix(string(id), "agent:") }

// IsBot reports whether the id belongs to a bot.
func (id UserID) IsBot() bool { return strings.HasPrefix(string(id), "bot:") }

// String returns the raw id including its kind prefix.
func (id UserID) String() string { return string(id) }

// SessionView describes a session and its identity as captured by one
// server at one point in time. Views are treated as immutable values and
// shared by reference between the roster and any Message whose sender
// matches.
type SessionView struct {
	ID        UserID `json:"id"`
	Name      string `json:"name"`
	ServerID  string `json:"server_id"`
	ServerEra string `json:"server_era"`
	SessionID string `json:"session_id"`
	IsStaff   bool   `json:"is_staff,omitempty"`
	IsManager bool   `json:"is_manager,omitempty"`
}

// NormName returns the session's name in the canonical form used for name
// lookups and mention matching.
func (v *SessionView) NormName() string { return NormalizeNick(v.Name) }

// AccountView describes an account and the name its holder goes by.
type AccountView struct {
	ID   UserID `json:"id"`
	Name string `json:"name"`
}

// PersonalAccountView is the account's own view of itself; unlike the
// views of others it includes the account email.
type PersonalAccountView struct {
	AccountView
	Email string `json:"email"`
}

// NormalizeNick strips all whitespace from a name and folds its case.
// Mention matching and roster name lookups both go through this, so a
// nickname always matches the mention that names it.
func NormalizeNick(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
