// Package mcp provides an MCP (Model Context Protocol) server adapter for sercha-synth.
// It lets AI assistants search, ask, compare, relate and route over a user's sources.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// errNotAvailable is returned when a handler runs without its service.
var errNotAvailable = errors.New("mcp: tool not available in this server")
