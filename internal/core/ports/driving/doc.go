// Package driving defines the operations the CLI and the MCP server call:
// search, ask, compare, relate, route, source management and settings.
//
// Implementations live in internal/core/services.
package driving
