package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-synth/internal/adapters/driving/mcp"
	"github.com/custodia-labs/sercha-synth/internal/logger"
	"github.com/custodia-labs/sercha-synth/internal/metrics"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes the search, ask, compare, relate and route tools and a
sources resource. By default it communicates over stdio using JSON-RPC.

Use --port to start an HTTP server instead, and --metrics-addr to expose
Prometheus metrics. Edits to config.toml and the prompt files are picked up
while the server runs.

Examples:
  # Stdio mode (default)
  sercha-synth mcp serve

  # HTTP mode with metrics
  sercha-synth mcp serve --port 8080 --metrics-addr :9090

Client configuration:
  {
    "mcpServers": {
      "sercha-synth": {
        "command": "/path/to/sercha-synth",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (empty = disabled)")
	mcpServeCmd.Flags().Bool("watch", true, "reload config.toml and prompts when they change")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	metricsAddr, err := cmd.Flags().GetString("metrics-addr")
	if err != nil {
		return fmt.Errorf("getting metrics-addr flag: %w", err)
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("getting watch flag: %w", err)
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Search:            a.Search,
		Synthesis:         a.Synthesis,
		SynthesisDefaults: a.SynthesisDefaults,
		Comparison:        a.Comparison,
		Relationships:     a.Relationships,
		Router:            a.Router,
		QueryRouter:       a.QueryRouter,
		Sources:           a.Sources,
	}, ownerID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if metricsAddr != "" {
		g.Go(func() error {
			logger.Info("metrics listening on %s", metricsAddr)
			return metrics.Serve(ctx, metricsAddr)
		})
	}
	if watch && a.Config != nil {
		g.Go(func() error {
			return a.Config.Watch(ctx, 0, a.Reload)
		})
	}

	g.Go(func() error {
		// The server returning ends the watchers too.
		defer cancel()
		if port > 0 {
			addr := fmt.Sprintf(":%d", port)
			fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
			return server.RunHTTP(ctx, addr)
		}
		return server.Run(ctx)
	})

	return g.Wait()
}
