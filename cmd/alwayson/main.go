package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/carlosfalai/claude-always-on/assistant"
	"github.com/carlosfalai/claude-always-on/checkin"
	"github.com/carlosfalai/claude-always-on/config"
	"github.com/carlosfalai/claude-always-on/dashboard"
	"github.com/carlosfalai/claude-always-on/llm"
	"github.com/carlosfalai/claude-always-on/llm/anthropic"
	"github.com/carlosfalai/claude-always-on/llm/openai"
	aologger "github.com/carlosfalai/claude-always-on/logger"
	"github.com/carlosfalai/claude-always-on/migrations"
	"github.com/carlosfalai/claude-always-on/monitor"
	"github.com/carlosfalai/claude-always-on/runtime"
	"github.com/carlosfalai/claude-always-on/store"
	"github.com/carlosfalai/claude-always-on/telegram"
	"github.com/carlosfalai/claude-always-on/voice"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var (
		logFile = flag.String("logfile", "", "Path to log file. If not set, logs to stdout/stderr")
		pretty  = flag.Bool("pretty", false, "Use pretty console output (only valid when logfile is not set)")
		dbPath  = flag.String("db", "alwayson.db", "Path to SQLite database file")
	)
	flag.Parse()

	if *logFile != "" && *pretty {
		return fmt.Errorf("--logfile and --pretty are mutually exclusive")
	}

	logger, err := aologger.InitWithOptions(*logFile, *pretty)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info().Str("db", *dbPath).Msg("alwayson starting")

	configPath := config.GetConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info().Str("path", configPath).Msg("Loaded configuration")

	// ---------------------------
	// 1. Open SQLite + Store
	// ---------------------------

	db, err := sql.Open("sqlite3", *dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck // No remedy for db close errors

	if err := migrations.RunMigrations(db, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	st := store.NewStore(db, logger)

	// ---------------------------
	// 2. LLM Clients
	// ---------------------------

	registry := llm.NewProviderRegistry(&llm.ProviderConfig{
		AnthropicAPIKey: cfg.Anthropic.APIKey,
		AnthropicModel:  cfg.Anthropic.Model,
		OpenAIAPIKey:    cfg.OpenAI.APIKey,
		OpenAIBaseURL:   cfg.OpenAI.BaseURL,
		OpenAIModel:     cfg.OpenAI.Model,
	}, cfg.LLMProviders)

	key, err := registry.Resolve()
	if err != nil {
		return fmt.Errorf("failed to resolve LLM provider: %w", err)
	}

	baseClient, err := newClient(key, logger)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	logger.Info().Str("provider", key.Provider).Str("model", key.Model).Msg("LLM provider selected")

	// Chat logs usage and retries transient failures; the decision engine
	// gets the bare client because a check-in cycle makes exactly one attempt.
	chatClient := llm.WithRetry(
		llm.WrapWithMiddleware(baseClient, llm.NewLoggingMiddleware(logger)),
		0, logger)

	// ---------------------------
	// 3. Chat Assistant + Telegram
	// ---------------------------

	asst := assistant.NewAssistant(st, chatClient, key.Model, cfg.Telegram.UserID, logger)

	chatTimeout := time.Duration(cfg.ChatTimeout) * time.Second
	bot, err := telegram.NewBot(cfg.Telegram.BotToken, cfg.Telegram.UserID, asst, st, chatTimeout, logger)
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}
	logger.Info().Str("username", bot.Username()).Msg("Telegram bot authenticated")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---------------------------
	// 4. Check-in Pipeline
	// ---------------------------

	var system *checkin.System
	if !cfg.CheckIn.Disabled {
		monitors := buildMonitors(ctx, cfg, logger)

		var caller checkin.Caller
		if c, err := voice.NewCaller(cfg.Voice, logger); err == nil {
			caller = c
			logger.Info().Msg("Voice calling enabled")
		} else {
			logger.Info().Msg("Voice calling not configured, CALL decisions fall back to text")
		}

		monitorTimeout, _ := time.ParseDuration(cfg.CheckIn.MonitorTimeout)
		minInterval, err := time.ParseDuration(cfg.CheckIn.MinInterval)
		if err != nil {
			return fmt.Errorf("invalid check_in.min_interval %q: %w", cfg.CheckIn.MinInterval, err)
		}

		agg := checkin.NewAggregator(st, cfg.Telegram.UserID, monitors, monitorTimeout, logger)
		engine := checkin.NewEngine(baseClient, key.Model, cfg.CheckIn.MaxTokens, logger)
		exec := checkin.NewExecutor(st, cfg.Telegram.UserID, bot, caller, logger)
		system = checkin.NewSystem(st, cfg.Telegram.UserID, agg, engine, exec, minInterval, logger)
		bot.AttachCheckIn(system)

		scheduler, err := runtime.NewScheduler(system, cfg.CheckIn.Schedule, logger)
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		go scheduler.Start(ctx)
		logger.Info().Str("schedule", cfg.CheckIn.Schedule).Msg("Check-in scheduler started")
	} else {
		logger.Info().Msg("Check-ins disabled")
	}

	// ---------------------------
	// 5. Dashboard
	// ---------------------------

	if !cfg.Dashboard.Disabled {
		dash := dashboard.NewServer(st, cfg.Telegram.UserID, cfg.Dashboard.Addr, logger)
		go func() {
			if err := dash.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("Dashboard failed")
			}
		}()
	}

	// ---------------------------
	// 6. Run Until Signalled
	// ---------------------------

	go bot.Run(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	cancel()
	logger.Info().Msg("alwayson shutdown complete")
	return nil
}

// newClient constructs the provider client for a resolved key.
func newClient(key *llm.ClientKey, logger zerolog.Logger) (llm.Client, error) {
	switch key.Provider {
	case llm.ProviderAnthropic:
		return anthropic.NewClient(key.APIKey, logger)
	case llm.ProviderOpenAI:
		return openai.NewClient(key.APIKey, key.BaseURL, logger)
	default:
		return nil, fmt.Errorf("unknown provider: %q", key.Provider)
	}
}

// buildMonitors constructs every configured monitor. A monitor that fails to
// initialize is skipped with a warning; the loop runs with whatever context
// sources are available.
func buildMonitors(ctx context.Context, cfg *config.Config, logger zerolog.Logger) []monitor.Monitor {
	var monitors []monitor.Monitor

	if g := cfg.Monitors.Gmail; g != nil {
		m, err := monitor.NewGmailMonitor(ctx, g.CredentialsFile, g.TokenFile, g.UrgentKeywords, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Gmail monitor unavailable")
		} else {
			monitors = append(monitors, m)
		}
	}
	if c := cfg.Monitors.Calendar; c != nil {
		m, err := monitor.NewCalendarMonitor(ctx, c.CredentialsFile, c.TokenFile, c.CalendarID, c.LookAheadHours, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Calendar monitor unavailable")
		} else {
			monitors = append(monitors, m)
		}
	}
	if n := cfg.Monitors.Notion; n != nil && n.Token != "" && n.DatabaseID != "" {
		monitors = append(monitors, monitor.NewNotionMonitor(n.Token, n.DatabaseID, logger))
	}

	logger.Info().Int("count", len(monitors)).Msg("Monitors configured")
	return monitors
}
