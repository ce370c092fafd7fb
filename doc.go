// Package basebot provides a client engine for a persistent, message-oriented
// chat protocol carried over WebSocket, one JSON document per frame, plus the
// layers a long-lived chat bot needs on top of it.
//
// # Philosophy: Engine and Behaviors
//
// basebot separates the protocol engine from bot behavior:
//
// Engine (protocol and lifecycle):
//   - Wire model: packets, commands, events, replies (proto)
//   - Transport: one WebSocket session, serialized writes (transport)
//   - Endpoint: connect/retry/reconnect, dispatch, send correlation (client)
//   - Room state: presence roster and threaded message log (roster, chatlog)
//   - Operations: supervision, metrics, structured errors, config
//
// Behaviors (what a particular bot does):
//   - Command parsing and dispatch (!commands)
//   - The conventional command set: !ping, !help, !uptime
//   - Regex triggers with template replies
//
// The engine never interprets message content; behaviors never touch the
// socket. Everything a behavior does goes through the client's API, so any
// number of behaviors can share one endpoint.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│          Supervisor                 │  spawn, respawn,
//	│   (start, shutdown, join)           │  atomic swap
//	└─────────────────────────────────────┘
//	           ↓ runs
//	┌─────────────────────────────────────┐
//	│         Client endpoints            │  connect/retry loop,
//	│  (one room each, run-loop per bot)  │  dispatch chain
//	└─────────────────────────────────────┘
//	           ↓ frame I/O via
//	┌─────────────────────────────────────┐
//	│         Transport                   │  gorilla/websocket,
//	│   (one session, JSON per frame)     │  serialized writes
//	└─────────────────────────────────────┘
//
// Inbound packets flow through a fixed dispatch chain: module early passes,
// the built-in lifecycle handler for the packet type, wildcard handlers,
// type handlers, the pending one-shot reply callback, module final passes.
// Handlers for one packet never interleave with handlers for another, so
// behaviors observe the room in server order.
//
// # Packages
//
// Engine:
//   - proto: wire types, packet envelope, nick normalization, mentions
//   - transport: WebSocket session with send serialization
//   - client: connection manager, dispatcher, chat/send/nick operations
//   - roster: session presence keyed by session id
//   - chatlog: threaded message log, latest record per id
//
// Operations:
//   - supervisor: endpoint collection with respawn policy
//   - config: endpoint settings, YAML manifests, behavior schemas
//   - metric: Prometheus collectors and the metrics listener
//   - errors: structured classification (transient, fatal, invalid)
//
// Behaviors:
//   - bot: command parsing/dispatch, standard commands, regex triggers
//
// Utilities:
//   - pkg/retry: retry with fixed or exponential backoff
//   - pkg/worker: generic bounded worker pool
//   - pkg/timefmt: human-readable durations and timestamps
//   - testutil: in-process WebSocket chat server for tests
//
// # Usage
//
// Assemble a bot by binding behaviors to an endpoint and running it:
//
//	cfg := config.EndpointConfig{Room: "test", Nick: "TestBot"}
//	c, err := client.New(cfg, client.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//
//	cmds := bot.NewCommands()
//	bot.NewStandard(bot.WithHelp("I demonstrate the engine.", "")).Register(cmds)
//	cmds.Bind(c)
//
//	return c.Run(ctx) // connect, dispatch until the final close
//
// Several bots under one supervisor, rebuilt automatically when they die:
//
//	sup, _ := supervisor.New(
//		supervisor.WithFactory(factory),
//		supervisor.WithRespawn(time.Minute),
//	)
//	for _, bc := range manifest.Bots {
//		sup.Spawn(bc)
//	}
//	sup.Start(ctx)
//	sup.Join(ctx)
//
// # Design Principles
//
// Explicit dependencies:
//   - No package-level state; loggers, metrics and configs are injected
//   - Environment lookups happen once, in the binary's flag layer
//
// Ordering before throughput:
//   - One dispatch chain per endpoint, packets handled in arrival order
//   - Slow command work is handed to a bounded pool instead of new threads
//
// Failure is routine:
//   - Connects retry on a fixed schedule; reconnects replay the join flow
//   - Errors carry a transient/fatal/invalid class so run-loops can decide
//   - The supervisor treats any final close as a respawn candidate
//
// # Binary
//
// cmd/basebot runs bots from flags or a manifest:
//
//	# one standard bot
//	basebot -room test -nick TestBot
//
//	# a room-hopping bot
//	basebot -kind jumper -nick JumperBot -room test
//
//	# every bot a manifest declares, with metrics
//	basebot -manifest bots.yaml -metrics-addr :9090
package basebot
