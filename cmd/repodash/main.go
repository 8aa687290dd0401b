package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonmartinstorm/repodash/internal/analytics"
	"github.com/jonmartinstorm/repodash/internal/cache"
	"github.com/jonmartinstorm/repodash/internal/config"
	"github.com/jonmartinstorm/repodash/internal/export"
	"github.com/jonmartinstorm/repodash/internal/fetcher"
	"github.com/jonmartinstorm/repodash/internal/logger"
	"github.com/jonmartinstorm/repodash/internal/runner"
	"github.com/jonmartinstorm/repodash/internal/server"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

var (
	rootCmd = &cobra.Command{
		Use:           "repodash",
		Short:         "GitHub dashboard data for the authenticated user",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API server",
		RunE:  runServe,
	}
	snapshotCmd = &cobra.Command{
		Use:   "snapshot",
		Short: "Compose analytics once and write them to a JSON file",
		RunE:  runSnapshot,
	}
	rateLimitCmd = &cobra.Command{
		Use:   "ratelimit",
		Short: "Print the remaining GitHub API quota",
		RunE:  runRateLimit,
	}

	// Flags
	configFile string
	addr       string
	dir        string
	share      bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file. Falls back to CONFIG_FILE")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging. Same as REPODASH_DEBUG=true")
	serveCmd.Flags().StringVar(&addr, "addr", "", "Address to listen on (host:port). If empty, uses HOST and PORT")
	snapshotCmd.Flags().StringVar(&dir, "dir", "", "Output directory. Falls back to SNAPSHOT_DIR")
	snapshotCmd.Flags().BoolVar(&share, "share", false, "Also print the share text")
	rootCmd.AddCommand(serveCmd, snapshotCmd, rateLimitCmd)
}

// setup loads configuration and installs logging and tracing. The returned
// func flushes telemetry.
func setup(ctx context.Context) (config.Config, func(), error) {
	logger.SetupLogger()

	file := configFile
	if file == "" {
		file = os.Getenv("CONFIG_FILE")
	}
	loader, err := config.NewLoader(file)
	if err != nil {
		return config.Config{}, nil, err
	}
	if err := loader.BindDebugFlag(rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := loader.Load()
	if err != nil {
		return config.Config{}, nil, err
	}

	loader.OnLogLevelChange(logger.SetLevel)

	shutdown, err := config.SetupTelemetry(ctx, cfg)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("Failed to flush telemetry", "error", err)
		}
	}, nil
}

func clientOptions(cfg config.Config) []fetcher.ClientOption {
	opts := []fetcher.ClientOption{
		fetcher.WithBatchSize(cfg.LanguageBatchSize),
		fetcher.WithRequestTimeout(cfg.RequestTimeout),
	}
	if cfg.GitHubAPIURL != "" {
		opts = append(opts, fetcher.WithBaseURL(cfg.GitHubAPIURL))
	}
	return opts
}

func newService(cfg config.Config) (*analytics.Service, error) {
	if err := config.ValidateToken(cfg); err != nil {
		return nil, err
	}
	opts := clientOptions(cfg)
	if cfg.RequestsPerHour > 0 {
		opts = append(opts, fetcher.WithLimiter(fetcher.NewGitHubLimiter(cfg.RequestsPerHour, cfg.Burst)))
	}
	client, err := fetcher.NewClient(cfg.Token, opts...)
	if err != nil {
		return nil, err
	}
	return analytics.NewService(client, analytics.WithTimeout(cfg.AnalyticsTimeout)), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, flush, err := setup(ctx)
	if err != nil {
		return err
	}
	defer flush()

	backends := server.NewGitHubBackendFactory(
		server.Pacing{RequestsPerHour: cfg.RequestsPerHour, Burst: cfg.Burst},
		clientOptions(cfg),
		analytics.WithTimeout(cfg.AnalyticsTimeout),
	)
	srv := server.New(backends,
		server.WithCache(cache.New[[]byte](cache.WithTTL[[]byte](cfg.CacheTTL))),
		server.WithTimeout(cfg.AnalyticsTimeout+30*time.Second),
	)

	listen := addr
	if listen == "" {
		listen = cfg.Addr()
	}
	return srv.ListenAndServe(ctx, listen)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, flush, err := setup(ctx)
	if err != nil {
		return err
	}
	defer flush()

	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	outDir := dir
	if outDir == "" {
		outDir = cfg.SnapshotDir
	}
	result, location, err := runner.RunAppSafe(ctx, runner.NewApp(svc, export.JSONFileWriter{Dir: outDir}))
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), location)
	if share {
		fmt.Fprintln(cmd.OutOrStdout(), export.ShareText(result, time.Now().Year()))
	}
	return nil
}

func runRateLimit(cmd *cobra.Command, args []string) error {
	cfg, flush, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer flush()

	svc, err := newService(cfg)
	if err != nil {
		return err
	}
	limit, err := svc.GetRateLimit(cmd.Context())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(limit)
}
