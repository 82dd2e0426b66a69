package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"taskstreak/internal/clock"
	"taskstreak/internal/tracker"
)

const (
	DefaultDatabasePath  = "taskstreak.db"
	DefaultHTTPAddr      = ":8080"
	DefaultLogLevel      = "info"
	DefaultSweepInterval = 15 * time.Minute
	DefaultDigestTime    = "08:00"
	DefaultEnvFile       = ".env"
)

// Config keeps runtime settings for the server, bot and jobs.
type Config struct {
	DatabasePath    string
	LogLevel        string
	LogFile         string
	HTTPAddr        string
	TelegramToken   string
	TelegramOwnerID int64
	SweepInterval   time.Duration
	DigestTime      string
	StreakPolicy    tracker.StreakPolicy
	WeekStart       time.Weekday
}

// BotEnabled reports whether a Telegram token was configured.
func (c Config) BotEnabled() bool { return c.TelegramToken != "" }

// Load reads configuration from environment variables with sane defaults.
// Values from envFile fill in variables that are not already set. A missing
// default .env file is ignored; a missing explicit file is an error.
func Load(envFile string) (Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	cfg := Config{
		DatabasePath:  getenv("TASKSTREAK_DB", DefaultDatabasePath),
		LogLevel:      getenv("TASKSTREAK_LOG_LEVEL", DefaultLogLevel),
		LogFile:       getenv("TASKSTREAK_LOG_FILE", ""),
		HTTPAddr:      getenv("TASKSTREAK_HTTP_ADDR", DefaultHTTPAddr),
		TelegramToken: getenv("TELEGRAM_TOKEN", ""),
		DigestTime:    getenv("DIGEST_TIME", DefaultDigestTime),
		SweepInterval: DefaultSweepInterval,
	}

	var err error
	if raw := getenv("TELEGRAM_OWNER_ID", ""); raw != "" {
		cfg.TelegramOwnerID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || cfg.TelegramOwnerID <= 0 {
			return cfg, fmt.Errorf("TELEGRAM_OWNER_ID must be a positive integer, got %q", raw)
		}
	}
	if cfg.TelegramToken != "" && cfg.TelegramOwnerID == 0 {
		return cfg, fmt.Errorf("TELEGRAM_OWNER_ID is required when TELEGRAM_TOKEN is set")
	}

	if raw := getenv("SWEEP_INTERVAL_MINUTES", ""); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			return cfg, fmt.Errorf("SWEEP_INTERVAL_MINUTES must be a positive integer, got %q", raw)
		}
		cfg.SweepInterval = time.Duration(minutes) * time.Minute
	}

	if _, _, err := clock.ParseTimeOfDay(cfg.DigestTime); err != nil {
		return cfg, fmt.Errorf("DIGEST_TIME: %w", err)
	}

	if cfg.StreakPolicy, err = tracker.ParseStreakPolicy(getenv("STREAK_POLICY", "")); err != nil {
		return cfg, fmt.Errorf("STREAK_POLICY: %w", err)
	}
	if cfg.WeekStart, err = clock.ParseWeekday(getenv("WEEK_START", "")); err != nil {
		return cfg, fmt.Errorf("WEEK_START: %w", err)
	}

	return cfg, nil
}

func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load env file %q: %w", path, err)
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
