package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/redeem-code-bot/bot"
	"github.com/aluiziolira/redeem-code-bot/config"
	"github.com/aluiziolira/redeem-code-bot/memo"
	"github.com/aluiziolira/redeem-code-bot/notify"
	"github.com/aluiziolira/redeem-code-bot/scraper"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Local .env files carry the token/channel in development, same as
	// the deployed systemd unit's EnvironmentFile.
	_ = godotenv.Load()

	defaultCfg := config.DefaultConfig()

	wikiURLDefault := defaultCfg.WikiURL
	if value, ok := config.EnvString("WIKI_URL"); ok {
		wikiURLDefault = value
	}
	tokenDefault, _ := config.EnvString("DISCORD_TOKEN")
	channelDefault, _ := config.EnvString("DISCORD_CHANNEL")
	scheduleDefault := defaultCfg.ScheduleMode
	if value, ok := config.EnvString("SCHEDULE"); ok {
		scheduleDefault = value
	}
	intervalDefault := defaultCfg.Interval
	if value, ok, err := config.EnvDuration("INTERVAL"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid INTERVAL: %v\n", err)
		os.Exit(1)
	} else if ok {
		intervalDefault = value
	}
	dailyAtDefault := defaultCfg.DailyAt.String()
	if value, ok := config.EnvString("DAILY_AT"); ok {
		dailyAtDefault = value
	}
	memoDefault := defaultCfg.MemoFile
	if value, ok := config.EnvString("MEMO_FILE"); ok {
		memoDefault = value
	}
	retriesDefault := defaultCfg.MaxRetries
	if value, ok, err := config.EnvInt("MAX_RETRIES"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid MAX_RETRIES: %v\n", err)
		os.Exit(1)
	} else if ok {
		retriesDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("METRICS_ADDR"); ok {
		metricsDefault = value
	}

	wikiURL := flag.String("wiki-url", wikiURLDefault, "URL of the wiki page listing redeem codes")
	discordToken := flag.String("discord-token", tokenDefault, "Token for the Discord bot")
	discordChannel := flag.String("discord-channel", channelDefault, "Unique ID of the Discord channel to announce in")
	schedule := flag.String("schedule", scheduleDefault, "Scheduling mode: interval or daily")
	interval := flag.Duration("every", intervalDefault, "Scrape interval (interval mode)")
	dailyAt := flag.String("daily-at", dailyAtDefault, "Daily scrape time as HH:MM:SS (daily mode)")
	memoFile := flag.String("memo-file", memoDefault, "Path of the memo file holding announced codes")
	maxRetries := flag.Int("max-retries", retriesDefault, "Maximum fetch retry attempts")
	timeout := flag.Duration("timeout", defaultCfg.Timeout, "HTTP request timeout")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090), empty to disable")
	pageCache := flag.Int("page-cache", defaultCfg.PageCacheSize, "Recently seen page hashes to keep (0 disables the unchanged-page skip)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg, err := buildConfigFromFlags(defaultCfg, *wikiURL, *discordToken, *discordChannel, *schedule, *interval, *dailyAt, *memoFile, *maxRetries, *timeout, *metricsAddr, *pageCache, *verbose)
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	store, err := memo.Load(cfg.MemoFile)
	if err != nil {
		slog.Error("loading memo", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("starting redeem-code bot",
		slog.String("wiki_url", cfg.WikiURL),
		slog.String("schedule", describeSchedule(cfg)),
		slog.String("memo", strings.Join(store.Codes(), ", ")),
	)

	metrics := scraper.NewMetrics()
	fetcher, err := scraper.NewFetcher(cfg, metrics)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		os.Exit(1)
	}
	notifier := notify.NewDiscord(cfg.DiscordAPIBase, cfg.DiscordToken, cfg.DiscordChannel, cfg.Timeout)

	runner, err := bot.NewRunner(cfg, fetcher, store, notifier, metrics)
	if err != nil {
		slog.Error("initialising runner", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	if err := bot.NewScheduler(cfg, runner).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("scheduler stopped", slog.Any("error", err))
	}
	slog.Info("shutdown signal received, exiting")

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}
}

func buildConfigFromFlags(cfg *config.Config, wikiURL, token, channel, schedule string, interval time.Duration, dailyAt, memoFile string, maxRetries int, timeout time.Duration, metricsAddr string, pageCache int, verbose bool) (*config.Config, error) {
	cfg.WikiURL = wikiURL
	cfg.DiscordToken = token
	cfg.DiscordChannel = channel
	cfg.ScheduleMode = strings.ToLower(schedule)
	cfg.Interval = interval
	cfg.MemoFile = memoFile
	cfg.MaxRetries = maxRetries
	cfg.Timeout = timeout
	cfg.MetricsAddr = metricsAddr
	cfg.PageCacheSize = pageCache
	cfg.Verbose = verbose

	parsed, err := config.ParseTimeOfDay(dailyAt)
	if err != nil {
		return nil, err
	}
	cfg.DailyAt = parsed
	return cfg, nil
}

func describeSchedule(cfg *config.Config) string {
	if cfg.ScheduleMode == config.ScheduleDaily {
		return "daily at " + cfg.DailyAt.String()
	}
	return "every " + cfg.Interval.String()
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(levelFromEnv())
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func levelFromEnv() slog.Level {
	raw, ok := config.EnvString("LOG_LEVEL")
	if !ok {
		return slog.LevelInfo
	}
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
