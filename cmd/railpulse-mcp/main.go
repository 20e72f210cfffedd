// Command railpulse-mcp serves the RailPulse MCP tools without the portal,
// over stdio for desktop assistants or over streamable HTTP.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/railpulse-portal/internal/app"
	"github.com/bobmcallan/railpulse-portal/internal/common"
	"github.com/bobmcallan/railpulse-portal/internal/config"
	"github.com/bobmcallan/railpulse-portal/internal/mcp"
)

type configPaths []string

func (c *configPaths) String() string { return fmt.Sprintf("%v", *c) }

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

func main() {
	var configFiles configPaths
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times)")
	stdio := flag.Bool("stdio", false, "Use stdio transport (for desktop assistants)")
	port := flag.Int("port", 4243, "Port for the streamable HTTP transport")
	flag.Parse()

	cfg, err := config.LoadFromFiles(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if issues := cfg.Validate(); len(issues) > 0 {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n  - %s\n", strings.Join(issues, "\n  - "))
		os.Exit(1)
	}

	// stdout belongs to the protocol in stdio mode; the console writer uses stderr.
	logger := common.NewLoggerFromConfig(cfg.Logging)

	core, err := app.NewCore(cfg, logger)
	if err != nil {
		logger.Error().Str("error", err.Error()).Msg("failed to initialize")
		os.Exit(1)
	}
	defer core.Close()

	mcpServer, tools := mcp.NewServer(core.Client, core.Calendar, core.Catalog, logger)
	logger.Info().Str("tools", strings.Join(tools, ",")).Str("api_url", cfg.API.URL).Msg("railpulse-mcp ready")

	if *stdio {
		if err := server.ServeStdio(mcpServer); err != nil {
			fmt.Fprintf(os.Stderr, "stdio server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	httpServer := server.NewStreamableHTTPServer(mcpServer, server.WithStateLess(true))
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, *port)
	logger.Info().Str("address", addr).Msg("starting MCP streamable HTTP")
	if err := httpServer.Start(addr); err != nil {
		fmt.Fprintf(os.Stderr, "http server error: %v\n", err)
		os.Exit(1)
	}
}
