// Package main is the CLI entry point for webmon.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/eliteGoblin/focusd/web_mon/internal/config"
	"github.com/eliteGoblin/focusd/web_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
	"github.com/eliteGoblin/focusd/web_mon/internal/infra"
	"github.com/eliteGoblin/focusd/web_mon/internal/policy"
	"github.com/eliteGoblin/focusd/web_mon/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "webmon",
	Short: "Web viewer monitor - closes distracting pages",
	Long: `webmon watches the address bar of every Web Viewer panel in the host
application and closes the panel when the address contains a blocked keyword.

Nuclear Mode makes the blocklist append-only and blocking mandatory during a
daily time window.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitor in the foreground",
	Long: `Connects to the host application and polls Web Viewer address fields
until interrupted. Edits to the blocklist file are picked up while running.`,
	RunE: runDaemon,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath string
	jsonOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: per execution mode)")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := createLogger(cfg)
	defer func() { _ = logger.Sync() }()

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			logger.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	store, err := infra.OpenSettingsStore(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	host := infra.NewCDPHost(infra.CDPHostConfig{
		Resolve:       hostResolver(cfg),
		FieldSelector: cfg.Host.FieldSelector,
	}, logger)
	defer host.Close()

	state, err := usecase.Init(ctx, usecase.Deps{
		Store:     store,
		Blocklist: infra.NewFileBlocklist(cfg.BlocklistFile),
		Notifier:  infra.MultiNotifier{host, infra.NewLogNotifier(logger)},
		Clock:     domain.SystemClock{},
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	policies := policy.NewRegistry(host, cfg.Host.ViewType, logger)
	enforcer := usecase.NewEnforcer(state, policies, domain.SystemClock{}, logger)
	observer := daemon.NewObserver(host, enforcer, logger)

	blocklistWatcher, err := infra.NewBlocklistWatcher(cfg.BlocklistFile, logger)
	if err != nil {
		return err
	}

	watcher := daemon.NewWatcher(
		daemon.WatcherConfig{
			ScanInterval:    cfg.ScanInterval,
			NuclearInterval: cfg.NuclearInterval,
		},
		state,
		observer,
		blocklistWatcher.Changes(),
		logger,
	)

	logger.Info("webmon starting",
		zap.String("version", Version),
		zap.String("data_dir", cfg.DataDir),
		zap.String("blocklist", cfg.BlocklistFile),
		zap.Int("keywords", state.Keywords().Len()),
		zap.String("action", string(state.Action())))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return blocklistWatcher.Run(gctx) })
	g.Go(func() error { return watcher.Run(gctx) })

	runErr := g.Wait()
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	// The watcher goroutine has exited; State is ours again.
	if err := state.Teardown(context.Background()); err != nil {
		logger.Warn("failed to persist settings on shutdown", zap.Error(err))
	}
	logger.Info("webmon stopped")
	return runErr
}

// hostResolver picks the configured control URL or discovers the host process.
func hostResolver(cfg *config.Config) func(ctx context.Context) (string, error) {
	if cfg.Host.ControlURL != "" {
		return infra.StaticResolver(cfg.Host.ControlURL)
	}
	return infra.NewHostLocator(cfg.Host.ProcessName).Resolve
}

func createLogger(cfg *config.Config) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel())
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0700); err == nil {
			zcfg.OutputPaths = []string{cfg.Log.File, "stdout"}
			zcfg.ErrorOutputPaths = []string{cfg.Log.File, "stderr"}
		}
	}

	logger, err := zcfg.Build()
	if err != nil {
		// Fallback to stdout if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("webmon %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
