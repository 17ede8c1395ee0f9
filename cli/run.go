// Package cli implements the mathbot subcommands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	otelapi "go.opentelemetry.io/otel"

	"github.com/kaustavray/mathbot/bot"
	"github.com/kaustavray/mathbot/config"
	mathotel "github.com/kaustavray/mathbot/otel"
	"github.com/kaustavray/mathbot/store"
	"github.com/kaustavray/mathbot/telegram"
)

// Exit codes returned through ExitError.
const (
	exitSuccess = 0
	exitInvalid = 1
	exitRuntime = 2
	exitConfig  = 3
)

// tokenEnvVar is consulted when neither the config file nor --token
// provides a bot token.
const tokenEnvVar = "MATHBOT_TOKEN"

// NewRunCmd creates the "run" subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the bot and poll for messages",
		Args:  cobra.NoArgs,
		RunE:  runRun,
	}

	cmd.Flags().String("config", "", "Path to mathbot.yaml (default: ./mathbot.yaml, then ~/.mathbot/config.yaml)")
	cmd.Flags().String("token", "", "Telegram bot token (overrides config)")
	cmd.Flags().String("base-url", "", "Telegram Bot API base URL (overrides config)")
	cmd.Flags().String("sqlite-path", "", "Path to SQLite database (overrides config; empty keeps state in memory)")
	cmd.Flags().String("otlp-endpoint", "", "OTLP/HTTP collector endpoint for traces (overrides config)")
	cmd.Flags().Duration("poll-interval", 0, "Pause between getUpdates calls (overrides config)")
	cmd.Flags().Duration("poll-timeout", 0, "Long-poll hold time (overrides config)")

	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Telegram.Token == "" {
		return exitError(exitConfig, "no bot token: set telegram.token in the config, --token, or %s", tokenEnvVar)
	}

	logger := newLogger(cmd)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := mathotel.SetupTracing(ctx, mathotel.TracingConfig{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return exitError(exitRuntime, "initializing tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	metrics, err := mathotel.NewMetrics(otelapi.GetMeterProvider().Meter("mathbot"))
	if err != nil {
		return exitError(exitRuntime, "initializing metrics: %v", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return exitError(exitRuntime, "opening store: %v", err)
	}
	defer func() {
		_ = st.Close()
	}()

	pruner, err := store.NewPruneScheduler(store.PruneSchedulerConfig{
		Store:    st,
		Schedule: cfg.Store.PruneSchedule,
		Logger:   logger,
	})
	if err != nil {
		return exitError(exitConfig, "prune schedule: %v", err)
	}
	if err := pruner.Start(ctx); err != nil {
		return exitError(exitRuntime, "starting prune scheduler: %v", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = pruner.Stop(stopCtx)
	}()

	client, err := telegram.NewClient(telegram.Config{
		Token:   cfg.Telegram.Token,
		BaseURL: cfg.Telegram.BaseURL,
	})
	if err != nil {
		return exitError(exitConfig, "telegram client: %v", err)
	}

	maxInputLen := 0
	if cfg.Limits.MaxInputLen != nil {
		maxInputLen = *cfg.Limits.MaxInputLen
	}
	dispatcher := bot.NewDispatcher(bot.DispatcherConfig{
		MaxInputLen: maxInputLen,
		Logger:      logger,
	})

	dropPending := true
	if cfg.Telegram.DropPending != nil {
		dropPending = *cfg.Telegram.DropPending
	}
	poller, err := bot.NewPoller(bot.PollerConfig{
		Client:         client,
		Dispatcher:     dispatcher,
		Store:          st,
		Logger:         logger,
		Tracer:         otelapi.GetTracerProvider().Tracer("mathbot"),
		Observer:       metrics,
		PollInterval:   cfg.Telegram.PollInterval.Std(),
		PollTimeout:    cfg.Telegram.PollTimeout.Std(),
		DropPending:    dropPending,
		SendInterval:   cfg.Telegram.SendInterval.Std(),
		AllowedChatIDs: cfg.Telegram.AllowedChatIDs,
	})
	if err != nil {
		return exitError(exitRuntime, "building poller: %v", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "mathbot polling for messages (Ctrl-C to stop)")
	if err := poller.Run(ctx); err != nil {
		return exitError(exitRuntime, "poll loop: %v", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Shutting down...")
	return nil
}

// loadConfig resolves the config file, then layers flag and environment
// overrides on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	explicitPath, _ := cmd.Flags().GetString("config")

	path, found, err := config.DiscoverPath(explicitPath)
	if err != nil {
		return config.Config{}, exitError(exitConfig, "%v", err)
	}

	cfg := config.Default()
	if found {
		cfg, err = config.Load(path)
		if err != nil {
			return config.Config{}, exitError(exitConfig, "%v", err)
		}
	}

	if v, _ := cmd.Flags().GetString("token"); v != "" {
		cfg.Telegram.Token = v
	}
	if cfg.Telegram.Token == "" {
		cfg.Telegram.Token = strings.TrimSpace(os.Getenv(tokenEnvVar))
	}
	if v, _ := cmd.Flags().GetString("base-url"); v != "" {
		cfg.Telegram.BaseURL = v
	}
	if v, _ := cmd.Flags().GetString("sqlite-path"); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v, _ := cmd.Flags().GetString("otlp-endpoint"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
	if v, _ := cmd.Flags().GetDuration("poll-interval"); v > 0 {
		cfg.Telegram.PollInterval = config.Duration(v)
	}
	if v, _ := cmd.Flags().GetDuration("poll-timeout"); v > 0 {
		cfg.Telegram.PollTimeout = config.Duration(v)
	}
	return cfg, nil
}

// openStore picks SQLite when a path is configured, in-memory otherwise.
func openStore(cfg config.Config) (store.Store, error) {
	if cfg.Store.SQLitePath == "" {
		return store.NewMemStore(store.MemStoreConfig{
			RetentionAge:   cfg.Store.RetentionAge.Std(),
			RetentionCount: cfg.Store.RetentionCount,
		}), nil
	}
	return store.NewSQLiteStore(store.SQLiteStoreConfig{
		DSN:            cfg.Store.SQLitePath,
		RetentionAge:   cfg.Store.RetentionAge.Std(),
		RetentionCount: cfg.Store.RetentionCount,
	})
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
