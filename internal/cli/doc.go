// Package cli implements the sedm command-line interface.
//
// Each Cobra command parses flags and delegates to a small function that
// takes its dependencies (store, collector, writer) explicitly, so the
// work can be tested without a real terminal or SSH server.
//
// # Command Structure
//
//	sedm serve                 - Run the HTTP API and terminal websocket
//	sedm metrics [device]      - One-shot telemetry snapshot
//	sedm logs [device]         - Recent log lines
//	sedm exec [device] -- cmd  - Run one command
//	sedm watch                 - Live dashboard over every device
//	sedm device add|list|rm    - Manage the device registry
//	sedm config init|show      - Write or print the configuration
//	sedm doctor                - Diagnose config, registry and connectivity
//	sedm version               - Print version information
//
// # Choosing a Device
//
// Commands that talk to one device take either a registry reference (ID
// or name) as their argument, or --host for an ad-hoc target. --host
// accepts user@host:port and ~/.ssh/config aliases. The password comes
// from --password, then SEDM_PASSWORD, then an interactive prompt when
// stdin is a terminal.
//
// # Flag Handling
//
// Global flags (--config, --log-level, --no-color, --output) are defined
// on the root command. The loaded configuration is available to every
// subcommand through loadedConfig().
package cli
