package main

import (
	"github.com/felixgeelhaar/mcp-go"
	"github.com/spf13/cobra"

	mcptools "github.com/felixgeelhaar/pluginkit/internal/mcp"
	"github.com/felixgeelhaar/pluginkit/internal/ports"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI agent integration",
	Long: `Start a Model Context Protocol (MCP) server exposing the plugin tooling.

Plugins are addressed by directory name under the plugins root. Archives
are always built from a staged copy.

Available tools:
  - pluginkit_validate  Validate a plugin's manifests and extension points
  - pluginkit_list      List plugins under the plugins root
  - pluginkit_package   Package a plugin (dev or prod)
  - pluginkit_scaffold  Create a new plugin skeleton
  - pluginkit_verify    Verify an archive signature against trusted keys
  - pluginkit_status    Show server version and configuration

Examples:
  pluginkit mcp                     # Start stdio MCP server
  pluginkit mcp --http :8080        # Start HTTP MCP server
  pluginkit mcp --config path.yaml  # Use specific config file`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

var mcpHTTP string

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().StringVar(&mcpHTTP, "http", "", "Start HTTP server on address (e.g., :8080)")
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)
	svc := newServices(cfg, logger, "")

	srv := mcp.NewServer(mcp.ServerInfo{
		Name:    "pluginkit",
		Version: version,
	})

	mcptools.RegisterAll(srv, &mcptools.Toolkit{
		PluginsRoot: cfg.PluginsRoot,
		OutputDir:   cfg.OutputDir,
		Pipeline:    svc.pipeline,
		Generator:   svc.generator(),
		TrustedKeys: cfg.Signing.TrustedKeys,
		Version: mcptools.VersionInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		},
	})

	logger.Info(ctx, "starting MCP server", ports.F("plugins_root", cfg.PluginsRoot))
	if mcpHTTP != "" {
		return mcp.ServeHTTP(ctx, srv, mcpHTTP)
	}
	return mcp.ServeStdio(ctx, srv)
}
