// Package mcp exposes extraction over the Model Context Protocol on stdio.
package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/desiderantes/stew/config"
	"github.com/desiderantes/stew/internal/port"
)

const serverName = "stew-mcp"

// Server serves the stew tools for one project root.
type Server struct {
	mcp    *server.MCPServer
	logger zerolog.Logger
}

// NewServer registers the tools. st may be nil, in which case every
// request scans from scratch.
func NewServer(root string, cfg *config.Config, st port.ResultStore, version string, logger zerolog.Logger) (*Server, error) {
	tools, err := newToolSet(root, cfg, st, logger)
	if err != nil {
		return nil, err
	}

	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
	)
	addExtractTool(s, tools)
	addKeywordsTool(s, tools)

	return &Server{mcp: s, logger: logger}, nil
}

// Serve blocks on stdio until the client disconnects or ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Msg("Starting MCP server on stdio")
		errCh <- server.ServeStdio(s.mcp)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		return nil
	}
}
