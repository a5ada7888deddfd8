package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/desiderantes/stew/internal/adapter/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or reset the extraction cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache contents",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached results",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// openExistingCache opens the cache without creating it.
func openExistingCache() (*store.BoltStore, string, error) {
	dbPath := GetConfig().CacheDBPath(GetRootDir())
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, dbPath, nil
	}
	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return nil, dbPath, fmt.Errorf("failed to open cache: %w", err)
	}
	return st, dbPath, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	st, dbPath, err := openExistingCache()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if st == nil {
		fmt.Fprintf(out, "No cache at %s\n", dbPath)
		return nil
	}
	defer st.Close()

	stats, err := st.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}
	docs, err := st.ListDocs()
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	info, err := st.GetSchemaInfo()
	if err != nil {
		return fmt.Errorf("failed to read schema info: %w", err)
	}

	langs := make(map[string]int)
	for _, doc := range docs {
		langs[doc.Lang]++
	}
	names := make([]string, 0, len(langs))
	for lang := range langs {
		names = append(names, lang)
	}
	sort.Strings(names)

	fmt.Fprintf(out, "Cache: %s\n", dbPath)
	fmt.Fprintf(out, "  Schema:        v%d (config %s)\n", info.Version, info.ConfigHash)
	fmt.Fprintf(out, "  Files cached:  %d\n", len(docs))
	for _, lang := range names {
		fmt.Fprintf(out, "    %-12s %d\n", lang, langs[lang])
	}
	if !stats.UpdatedAt.IsZero() {
		fmt.Fprintf(out, "  Last run:      %d files, %d records at %s\n",
			stats.TotalDocs, stats.TotalRecords, stats.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	st, dbPath, err := openExistingCache()
	if err != nil {
		return err
	}
	if st == nil {
		logger.Info().Str("path", dbPath).Msg("No cache to clear")
		return nil
	}
	defer st.Close()

	if err := st.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	logger.Info().Str("path", dbPath).Msg("Cache cleared")
	return nil
}
