// Package testutil provides in-process test doubles for the chat
// protocol: a WebSocket server speaking one JSON document per frame,
// frame capture with wait/expect helpers, and endpoint configurations
// tuned for fast test runs. Nothing here talks to a real service.
package testutil
