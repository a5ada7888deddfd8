package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/desiderantes/stew/config"
	"github.com/desiderantes/stew/internal/adapter/cache"
	"github.com/desiderantes/stew/internal/adapter/extractor"
	"github.com/desiderantes/stew/internal/adapter/fs"
	"github.com/desiderantes/stew/internal/adapter/output"
	"github.com/desiderantes/stew/internal/adapter/store"
	"github.com/desiderantes/stew/internal/adapter/watcher"
	"github.com/desiderantes/stew/internal/port"
	"github.com/desiderantes/stew/internal/usecase"
)

// contentCacheSize bounds the in-run cache of identical file contents.
const contentCacheSize = 512

var (
	extractFormat   string
	extractOutput   string
	extractProgress bool
	extractKeywords []string
	extractDomains  []string
	extractNoCache  bool
	extractWorkers  int
	extractStrict   bool
	extractWatch    bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [path]",
	Short: "Extract translatable strings from a source tree",
	Long: `Walk a directory (or take a single file), scan every matching C/C++
source in parallel and print the messages found.

Results are cached in .stew/cache.db keyed by file content; unchanged files
are not rescanned. Changing keywords or domains invalidates the cache.

Examples:
  stew extract .                         # Scan current directory
  stew extract src --format text         # One line per message
  stew extract . -k tr -k trn=ngettext   # Extra keywords
  stew extract . --domain app -o app.json
  stew extract src --watch -o po/app.json # Re-extract on every change`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	addExtractionFlags(extractCmd)
	extractCmd.Flags().BoolVar(&extractProgress, "progress", false, "show a progress bar on stderr")
	extractCmd.Flags().BoolVar(&extractNoCache, "no-cache", false, "do not read or write the extraction cache")
	extractCmd.Flags().IntVar(&extractWorkers, "workers", 0, "parallel workers (default from config, 0 = CPUs)")
	extractCmd.Flags().BoolVar(&extractWatch, "watch", false, "keep running and re-extract when sources change")
}

// addExtractionFlags registers the flags shared by extract and scan.
func addExtractionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&extractFormat, "format", "", "output format: json, yaml, text (default from config)")
	cmd.Flags().StringVarP(&extractOutput, "output", "o", "", "write output to file instead of stdout")
	cmd.Flags().StringArrayVarP(&extractKeywords, "keyword", "k", nil, "extra keyword, name or name=shape (repeatable)")
	cmd.Flags().StringArrayVar(&extractDomains, "domain", nil, "only emit messages of this domain (repeatable)")
	cmd.Flags().BoolVar(&extractStrict, "strict", false, "fail when any file has a diagnostic or read error")
}

// effectiveConfig merges command-line extraction flags into a copy of the
// loaded configuration.
func effectiveConfig(base *config.Config) *config.Config {
	eff := *base
	eff.Extract.Keywords = append(append([]string(nil), base.Extract.Keywords...), extractKeywords...)
	eff.Extract.Domains = append(append([]string(nil), base.Extract.Domains...), extractDomains...)
	if extractFormat != "" {
		eff.Output.Format = extractFormat
	}
	if extractOutput != "" {
		eff.Output.Path = extractOutput
	}
	if extractWorkers > 0 {
		eff.Extract.Workers = extractWorkers
	}
	return &eff
}

func newExtractor(c *config.Config) (*extractor.Extractor, error) {
	keywords, err := extractor.ParseKeywords(c.Extract.Keywords)
	if err != nil {
		return nil, fmt.Errorf("invalid keyword: %w", err)
	}
	return extractor.New(extractor.Options{
		Keywords:      keywords,
		Domains:       c.Extract.Domains,
		DefaultDomain: c.Extract.DefaultDomain,
		Logger:        GetLogger(),
	}), nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	c := effectiveConfig(GetConfig())
	if err := c.Validate(); err != nil {
		return err
	}

	ex, err := newExtractor(c)
	if err != nil {
		return err
	}

	var st port.ResultStore
	if c.Cache.Enabled && !extractNoCache {
		if bolt, err := openCache(c); err != nil {
			logger.Warn().Err(err).Msg("Continuing without cache")
		} else {
			defer bolt.Close()
			st = bolt
		}
	}

	contents := cache.NewContentCache(contentCacheSize)
	walker := fs.NewWalker(c.Extract.Includes, c.Extract.Excludes)
	extractUC := usecase.NewExtractUseCase(walker, walker, cache.NewCachedExtractor(ex, contents), st, c.Extract.Workers, logger)

	logger.Debug().Str("path", path).Int("keywords", len(ex.Keywords())).Msg("Scanning")

	var progress usecase.ProgressFunc
	if extractProgress {
		progress = newProgressBar("Extracting")
	}

	run := func(ctx context.Context, progress usecase.ProgressFunc) (*usecase.ExtractResult, error) {
		result, runErr := extractUC.Extract(ctx, path, progress)
		if result == nil {
			return nil, fmt.Errorf("extraction failed: %w", runErr)
		}

		if err := writeResults(c.Output, result); err != nil {
			return nil, err
		}

		hits, _ := contents.Stats()
		logger.Info().
			Int("files", len(result.Files)).
			Int("cached", result.FilesCached).
			Int("records", result.Records).
			Int("diagnostics", result.Diagnostics).
			Int("failed", result.FilesFailed).
			Int("pruned", result.CachePruned).
			Uint64("duplicates", hits).
			Msg("Extraction complete")

		if runErr != nil {
			return result, fmt.Errorf("extraction interrupted after %d of %d files: %w", len(result.Files), result.FilesTotal, runErr)
		}
		return result, nil
	}

	result, err := run(cmd.Context(), progress)
	if err != nil {
		return err
	}
	if !extractWatch {
		return checkStrict(result)
	}
	return watchAndExtract(cmd.Context(), path, walker, func(ctx context.Context) error {
		_, err := run(ctx, nil)
		return err
	})
}

// watchAndExtract re-runs the extraction whenever a matching file under
// path changes, until ctx is cancelled.
func watchAndExtract(ctx context.Context, path string, walker *fs.Walker, rerun func(context.Context) error) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	root, match := path, walker.Match
	if !info.IsDir() {
		root = filepath.Dir(path)
		match = func(rel string) bool { return rel == filepath.Base(path) }
	}

	w, err := watcher.New(root, watcher.Options{Match: match, SkipDir: walker.SkipDir}, logger)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()

	logger.Info().Str("path", root).Msg("Watching for changes")
	return w.Run(ctx, func(files []string) {
		logger.Info().Strs("files", files).Msg("Sources changed")
		if err := rerun(ctx); err != nil {
			logger.Error().Err(err).Msg("Extraction failed")
		}
	})
}

// openCache opens the extraction cache and clears it when the schema or
// the extraction configuration changed since it was written.
func openCache(c *config.Config) (*store.BoltStore, error) {
	dbPath := c.CacheDBPath(GetRootDir())
	if err := config.EnsureStewDir(dbPath); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	migration, err := st.Prepare(c)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to prepare cache: %w", err)
	}
	switch {
	case migration.NeedsRebuild:
		logger.Info().Str("reason", migration.Reason).Msg("Cache cleared")
	case migration.NeedsMigration:
		logger.Debug().Str("reason", migration.Reason).Msg("Cache migrated")
	}
	return st, nil
}

// writeResults renders the listing to stdout or to the configured file.
func writeResults(oc config.OutputConfig, result *usecase.ExtractResult) error {
	if oc.Path == "" {
		return output.Write(os.Stdout, oc.Format, result.Files)
	}

	var buf bytes.Buffer
	if err := output.Write(&buf, oc.Format, result.Files); err != nil {
		return err
	}
	if err := os.WriteFile(oc.Path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	logger.Info().Str("path", oc.Path).Msg("Records written")
	return nil
}

var errStrict = errors.New("strict mode")

func checkStrict(result *usecase.ExtractResult) error {
	if !extractStrict {
		return nil
	}
	if n := result.Diagnostics + result.FilesFailed; n > 0 {
		return fmt.Errorf("%w: %d file(s) with diagnostics or read errors", errStrict, n)
	}
	return nil
}

// newProgressBar returns a progress callback drawing on stderr. The bar is
// created on the first call, once the total is known.
func newProgressBar(label string) usecase.ProgressFunc {
	var (
		bar       *progressbar.ProgressBar
		barMu     sync.Mutex
		startTime time.Time
	)

	return func(processed, total int, currentFile string) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+label+"[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}

		_ = bar.Set(processed)

		if processed > 0 {
			elapsed := time.Since(startTime)
			rate := float64(processed) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-processed)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]%s[reset] ETA: %s", label, formatDuration(eta)))
			}
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
