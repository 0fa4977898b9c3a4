package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.DiscordToken = "token"
	cfg.DiscordChannel = "123456"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty wiki url",
			mutate: func(cfg *Config) {
				cfg.WikiURL = ""
			},
			wantErr: "wiki URL",
		},
		{
			name: "url without host",
			mutate: func(cfg *Config) {
				cfg.WikiURL = "http://"
			},
			wantErr: "wiki URL",
		},
		{
			name: "missing token",
			mutate: func(cfg *Config) {
				cfg.DiscordToken = ""
			},
			wantErr: "discord token",
		},
		{
			name: "missing channel",
			mutate: func(cfg *Config) {
				cfg.DiscordChannel = ""
			},
			wantErr: "discord channel",
		},
		{
			name: "unknown schedule mode",
			mutate: func(cfg *Config) {
				cfg.ScheduleMode = "hourly"
			},
			wantErr: "schedule mode",
		},
		{
			name: "zero interval",
			mutate: func(cfg *Config) {
				cfg.Interval = 0
			},
			wantErr: "interval",
		},
		{
			name: "empty memo file",
			mutate: func(cfg *Config) {
				cfg.MemoFile = ""
			},
			wantErr: "memo file",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "backoff exceeds max",
			mutate: func(cfg *Config) {
				cfg.RetryBackoff = 10 * time.Second
				cfg.RetryBackoffMax = 1 * time.Second
			},
			wantErr: "retry backoff",
		},
		{
			name: "negative page cache",
			mutate: func(cfg *Config) {
				cfg.PageCacheSize = -1
			},
			wantErr: "page cache",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValidWithCredentials(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("default config with credentials should validate, got %v", err)
	}
}

func TestDefaultConfigRequiresCredentials(t *testing.T) {
	if err := DefaultConfig().Validate(); err == nil {
		t.Fatal("default config without credentials should not validate")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("12:30:00")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tod.Hour != 12 || tod.Minute != 30 || tod.Second != 0 {
		t.Fatalf("got %+v, want 12:30:00", tod)
	}
	if got := tod.String(); got != "12:30:00" {
		t.Fatalf("String() = %q, want 12:30:00", got)
	}

	if _, err := ParseTimeOfDay("25:00:00"); err == nil {
		t.Fatal("expected error for out-of-range hour")
	}
	if _, err := ParseTimeOfDay("12:30"); err == nil {
		t.Fatal("expected error for missing seconds")
	}
}

func TestTimeOfDayNext(t *testing.T) {
	tod := TimeOfDay{Hour: 12, Minute: 30}
	loc := time.UTC

	before := time.Date(2023, 1, 10, 9, 0, 0, 0, loc)
	if got := tod.Next(before); !got.Equal(time.Date(2023, 1, 10, 12, 30, 0, 0, loc)) {
		t.Fatalf("next from morning = %v", got)
	}

	after := time.Date(2023, 1, 10, 13, 0, 0, 0, loc)
	if got := tod.Next(after); !got.Equal(time.Date(2023, 1, 11, 12, 30, 0, 0, loc)) {
		t.Fatalf("next from afternoon = %v", got)
	}

	exact := time.Date(2023, 1, 10, 12, 30, 0, 0, loc)
	if got := tod.Next(exact); !got.Equal(time.Date(2023, 1, 11, 12, 30, 0, 0, loc)) {
		t.Fatalf("next from exact time = %v", got)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("REDEEMBOT_TEST_STR", "value")
	if got, ok := EnvString("REDEEMBOT_TEST_STR"); !ok || got != "value" {
		t.Fatalf("EnvString = %q, %v", got, ok)
	}
	if _, ok := EnvString("REDEEMBOT_TEST_MISSING"); ok {
		t.Fatal("EnvString should report missing variable")
	}

	t.Setenv("REDEEMBOT_TEST_INT", "42")
	if got, ok, err := EnvInt("REDEEMBOT_TEST_INT"); err != nil || !ok || got != 42 {
		t.Fatalf("EnvInt = %d, %v, %v", got, ok, err)
	}
	t.Setenv("REDEEMBOT_TEST_INT", "nope")
	if _, _, err := EnvInt("REDEEMBOT_TEST_INT"); err == nil {
		t.Fatal("EnvInt should fail on non-numeric value")
	}

	t.Setenv("REDEEMBOT_TEST_DUR", "4h")
	if got, ok, err := EnvDuration("REDEEMBOT_TEST_DUR"); err != nil || !ok || got != 4*time.Hour {
		t.Fatalf("EnvDuration = %v, %v, %v", got, ok, err)
	}
}
