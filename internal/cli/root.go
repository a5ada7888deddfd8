package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/desiderantes/stew/config"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	logger   = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "stew",
	Short: "Extract translatable strings from C and C++ sources",
	Long: `stew scans C and C++ source files for calls to the gettext family
(gettext, dgettext, dcgettext, ngettext, dngettext, dcngettext and the _ / N_
shorthands) and lists every translatable message with its position.

No preprocessing is done: macros are not expanded and #if branches are all
scanned.

Example usage:
  stew extract .                   # Scan the current directory
  stew extract src -k tr=ngettext  # Add a custom plural keyword
  stew scan main.c --format text   # Scan single files, no cache`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}
		if rootDir, err = filepath.Abs(rootDir); err != nil {
			return fmt.Errorf("failed to resolve root directory: %w", err)
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if err := cfg.ApplyEnv(rootDir); err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger, err = newLogger(cfg.Logging, os.Stderr)
		return err
	},
}

// Execute runs the root command until it finishes or the process receives
// an interrupt.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./stew.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "project root directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
}

func newLogger(lc config.LoggingConfig, out *os.File) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", lc.Level, err)
	}

	var w io.Writer = out
	if lc.Console {
		w = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    !isatty.IsTerminal(out.Fd()),
			TimeFormat: time.TimeOnly,
		}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

func GetLogger() *zerolog.Logger {
	return &logger
}
