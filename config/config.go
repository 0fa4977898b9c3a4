package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Schedule modes supported by the bot.
const (
	ScheduleInterval = "interval"
	ScheduleDaily    = "daily"
)

// Config holds bot configuration.
type Config struct {
	WikiURL        string
	TableClass     string
	DiscordToken   string
	DiscordChannel string
	DiscordAPIBase string

	ScheduleMode string // interval or daily
	Interval     time.Duration
	DailyAt      TimeOfDay

	MemoFile string

	Timeout         time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	UserAgent       string

	MetricsAddr   string
	PageCacheSize int
	Verbose       bool
}

// DefaultConfig returns the defaults matching the wiki target.
func DefaultConfig() *Config {
	return &Config{
		WikiURL:         "https://lovenikki.fandom.com/wiki/Category:Redeem_Code",
		TableClass:      "redeemcode",
		DiscordAPIBase:  "https://discord.com/api/v10",
		ScheduleMode:    ScheduleInterval,
		Interval:        240 * time.Minute,
		DailyAt:         TimeOfDay{Hour: 12, Minute: 30},
		MemoFile:        "redeem-codes.txt",
		Timeout:         10 * time.Second,
		MaxRetries:      5,
		RetryBackoff:    300 * time.Millisecond,
		RetryBackoffMax: 5 * time.Second,
		UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		PageCacheSize:   4,
	}
}

// Validate ensures all configuration values are coherent. A missing token
// or channel is fatal here so the process never starts half-configured.
func (c *Config) Validate() error {
	if c.WikiURL == "" {
		return fmt.Errorf("wiki URL cannot be empty")
	}
	parsedURL, err := url.Parse(c.WikiURL)
	if err != nil {
		return fmt.Errorf("invalid wiki URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("wiki URL must include a host")
	}

	if c.TableClass == "" {
		return fmt.Errorf("table class cannot be empty")
	}
	if c.DiscordToken == "" {
		return fmt.Errorf("discord token is required")
	}
	if c.DiscordChannel == "" {
		return fmt.Errorf("discord channel is required")
	}
	if c.DiscordAPIBase == "" {
		return fmt.Errorf("discord API base cannot be empty")
	}

	switch c.ScheduleMode {
	case ScheduleInterval:
		if c.Interval <= 0 {
			return fmt.Errorf("interval must be positive")
		}
	case ScheduleDaily:
	default:
		return fmt.Errorf("schedule mode must be %s or %s", ScheduleInterval, ScheduleDaily)
	}

	if c.MemoFile == "" {
		return fmt.Errorf("memo file cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.PageCacheSize < 0 {
		return fmt.Errorf("page cache size cannot be negative")
	}

	return nil
}

// TimeOfDay is a wall-clock time without a date, used for daily scheduling.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay parses an HH:MM:SS string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Next returns the first occurrence of t strictly after now, in now's location.
func (t TimeOfDay) Next(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, t.Second, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// EnvString reads a non-empty environment variable.
func EnvString(key string) (string, bool) {
	value := os.Getenv(key)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt reads an integer environment variable.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration reads a duration environment variable in time.ParseDuration syntax.
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}
