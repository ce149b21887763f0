// Package cmd implements the command-line interface for mahakaal.
//
// This package provides the following commands:
//   - serve: Start the HTTP backend (chat stream, OAuth, sessions, probes)
//   - chat: Talk to the assistant in the terminal
//   - login: Connect Google Calendar without the web frontend
//   - mcp: Serve the calendar tools to MCP clients over stdio
//   - tools: Print the tool catalog as markdown
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
// Configuration is layered: defaults, mahakaal.toml, .env, environment
// variables, then command flags.
package cmd
