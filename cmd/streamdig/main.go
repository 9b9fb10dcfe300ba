package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/justchokingaround/streamdig/internal/config"
	"github.com/justchokingaround/streamdig/internal/orchestrator"
	"github.com/justchokingaround/streamdig/pkg/stream"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	debugMode bool
	referer   string
	timeout   time.Duration

	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "streamdig",
	Short: "Resolve video embed URLs into directly playable stream URLs",
	Long: `streamdig reverse-engineers the obfuscation schemes of video hosting
sites and resolves their embed pages into directly playable stream URLs,
complete with the headers and subtitle tracks a player needs.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.InitializeDirs(); err != nil {
			return fmt.Errorf("failed to initialize directories: %w", err)
		}

		loaded, vp, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded

		if debugMode {
			cfg.HTTP.Debug = true
			if logLevel == "" {
				cfg.Logging.Level = "debug"
			}
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger, err = config.InitLogger(&cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		// Pick up log-level changes without a restart.
		vp.OnConfigChange(func(e fsnotify.Event) {
			reloaded, _, err := config.Load(cfgFile)
			if err != nil {
				logger.Warn("config reload failed", "file", e.Name, "error", err)
				return
			}
			cfg.Logging.Level = reloaded.Logging.Level
			if _, err := config.InitLogger(&cfg.Logging); err != nil {
				logger.Warn("logger reinit failed", "error", err)
			}
		})
		vp.WatchConfig()

		return nil
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <url>",
	Short: "Resolve an embed URL into playable streams, printed as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		o := newOrchestrator()
		streams := o.Resolve(ctx, stream.Request{URL: args[0], Referer: referer})
		if len(streams) == 0 {
			return fmt.Errorf("no playable source found for %s", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(streams)
	},
}

var extractorsCmd = &cobra.Command{
	Use:   "extractors",
	Short: "List registered extractors and the URL patterns they match",
	RunE: func(cmd *cobra.Command, args []string) error {
		o := newOrchestrator()
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(o.Extractors())
	},
}

func newOrchestrator() *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Config{
		HTTP:      cfg.FetchConfig(),
		Retry:     cfg.RetryOptions(),
		RateLimit: cfg.RateLimitWindow(),
		Logger:    logger,
	})
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/streamdig/streamdig.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug mode")

	resolveCmd.Flags().StringVar(&referer, "referer", "", "referer to send with the initial page fetch")
	resolveCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall extraction timeout")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(extractorsCmd)
}
