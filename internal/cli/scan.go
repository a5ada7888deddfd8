package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/desiderantes/stew/internal/adapter/cache"
	"github.com/desiderantes/stew/internal/adapter/fs"
	"github.com/desiderantes/stew/internal/usecase"
)

var scanCmd = &cobra.Command{
	Use:   "scan FILE...",
	Short: "Scan the given files without walking or caching",
	Long: `Scan exactly the named files. Include and exclude patterns do not apply
and the cache is neither read nor written.

Examples:
  stew scan main.c
  stew scan src/ui.cpp src/ui.h --format text`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	addExtractionFlags(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	c := effectiveConfig(GetConfig())
	if err := c.Validate(); err != nil {
		return err
	}

	ex, err := newExtractor(c)
	if err != nil {
		return err
	}

	walker := fs.NewWalker(nil, nil)
	scanUC := usecase.NewExtractUseCase(walker, walker, cache.NewCachedExtractor(ex, cache.NewContentCache(contentCacheSize)), nil, c.Extract.Workers, logger)

	result, runErr := scanUC.ExtractFiles(cmd.Context(), args, nil)
	if err := writeResults(c.Output, result); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("scan interrupted: %w", runErr)
	}
	return checkStrict(result)
}
