package cli

import (
	"github.com/spf13/cobra"

	"github.com/desiderantes/stew/internal/mcp"
	"github.com/desiderantes/stew/internal/port"
)

var mcpNoCache bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve extraction tools over MCP on stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout for the project
root. Tools:

  stew_extract   scan a path of the project, or inline source
  stew_keywords  list the recognized keywords

Logs go to stderr; stdout carries protocol messages only.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVar(&mcpNoCache, "no-cache", false, "do not read or write the extraction cache")
}

func runMCP(cmd *cobra.Command, args []string) error {
	c := GetConfig()

	var st port.ResultStore
	if c.Cache.Enabled && !mcpNoCache {
		if bolt, err := openCache(c); err != nil {
			logger.Warn().Err(err).Msg("Continuing without cache")
		} else {
			defer bolt.Close()
			st = bolt
		}
	}

	srv, err := mcp.NewServer(GetRootDir(), c, st, version(), logger)
	if err != nil {
		return err
	}
	return srv.Serve(cmd.Context())
}
