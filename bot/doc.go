// Package bot layers chat-facing behavior over a client endpoint:
// command parsing and dispatch, the standard botrulez command set, and
// ordered regex triggers. Each piece binds onto a client's chat stream
// independently, so an endpoint mixes exactly the behaviors its
// manifest asks for.
package bot
