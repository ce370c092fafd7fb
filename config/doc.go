// Package config defines the explicit configuration surface of the engine.
//
// Nothing in the core reads the environment or the filesystem on its own:
// an EndpointConfig is handed to a client at construction, and the CLI is
// the only caller of LoadManifest. That keeps every knob visible at the
// construction site instead of hidden in process-wide state.
//
// # EndpointConfig
//
// EndpointConfig carries everything one endpoint needs to join a room:
//
//	cfg := config.EndpointConfig{
//		Room: "testing",
//		Nick: "examplebot",
//	}.Normalize()
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
// Normalize fills unset fields with the package defaults (URL template,
// retry profile, timeout, log depth, send rate). The retry profile is a
// fixed delay between attempts, no jitter.
//
// # Manifests
//
// A manifest is a YAML document describing a supervisor and its bots:
//
//	respawn: true
//	respawn_delay: 60s
//	defaults:
//	  url_template: wss://euphoria.io/room/{room}/ws
//	  retry_delay: 10s
//	bots:
//	  - room: testing
//	    nick: examplebot
//	    kind: standard
//	  - room: private-room
//	    nick: doorbot
//	    passcode: hunter2
//	    behavior:
//	      greeting: "hello!"
//
// Durations are Go duration strings. Unknown fields are rejected at parse
// time. The defaults block is folded into every bot entry before
// validation, so each BotConfig comes out ready to use.
//
// # Behavior blocks
//
// The per-bot behavior block is free-form YAML. A behavior kind publishes a
// JSON schema for its block; ValidateBehavior checks the block against it
// before the bot is instantiated, and the typed Get* helpers read fields
// out of the block without panicking on shape mismatches.
package config
