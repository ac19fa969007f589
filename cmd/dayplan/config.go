package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/arthur-debert/dayplan/dayplan"
	"github.com/arthur-debert/dayplan/dayplan/persist"
	"github.com/arthur-debert/dayplan/dayplan/undo"
	"github.com/arthur-debert/dayplan/types"
)

// Cache kinds
const (
	cacheFile  = "file"
	cacheRedis = "redis"
	cacheNone  = "none"
)

// Config is the resolved configuration of one invocation
type Config struct {
	Owner       string
	Backend     string
	DB          string
	DSN         string
	UndoTimeout time.Duration
	SyncTimeout time.Duration
	LogLevel    string
	LogStderr   bool
	Cache       string
	CachePath   string
	RedisAddr   string
	Debounce    time.Duration

	// From and To bound the days loaded at startup
	From types.Date
	To   types.Date
}

// setDefaults registers the fallback of every key
func setDefaults(v *viper.Viper) {
	v.SetDefault("owner", os.Getenv("USER"))
	v.SetDefault("backend", dayplan.BackendJSON)
	v.SetDefault("db", "dayplan.json")
	v.SetDefault("undo-timeout", undo.DefaultTimeout)
	v.SetDefault("sync-timeout", 10*time.Second)
	v.SetDefault("log-level", "warn")
	v.SetDefault("cache", cacheFile)
	v.SetDefault("redis-addr", "localhost:6379")
	v.SetDefault("debounce", persist.DefaultDelay)
	v.SetDefault("from", "today")
	v.SetDefault("days", 7)
}

// loadConfig reads every key from v and validates the result
func loadConfig(v *viper.Viper, now time.Time) (Config, error) {
	cfg := Config{
		Owner:       strings.TrimSpace(v.GetString("owner")),
		Backend:     strings.ToLower(v.GetString("backend")),
		DB:          v.GetString("db"),
		DSN:         v.GetString("dsn"),
		UndoTimeout: v.GetDuration("undo-timeout"),
		SyncTimeout: v.GetDuration("sync-timeout"),
		LogLevel:    v.GetString("log-level"),
		LogStderr:   v.GetBool("log-stderr"),
		Cache:       strings.ToLower(v.GetString("cache")),
		CachePath:   v.GetString("cache-path"),
		RedisAddr:   v.GetString("redis-addr"),
		Debounce:    v.GetDuration("debounce"),
	}

	if cfg.Owner == "" {
		return Config{}, NewConfigError("start", "no owner configured",
			"Pass --owner or set DAYPLAN_OWNER",
			CommonSuggestions.CheckConfig)
	}

	switch cfg.Backend {
	case dayplan.BackendJSON, dayplan.BackendSQLite, dayplan.BackendMemory:
	case dayplan.BackendPostgres:
		if cfg.DSN == "" {
			return Config{}, NewConfigError("start", "the postgres backend needs a dsn",
				"Pass --dsn or set DAYPLAN_DSN")
		}
	default:
		return Config{}, NewValidationError("start", "backend", cfg.Backend,
			"Use one of: json, sqlite, postgres, memory")
	}

	switch cfg.Cache {
	case cacheFile:
		if cfg.CachePath == "" {
			cfg.CachePath = filepath.Join(getXDGCacheDir(), "snapshots", cfg.Owner+".yaml")
		}
	case cacheRedis, cacheNone:
	default:
		return Config{}, NewValidationError("start", "cache", cfg.Cache,
			"Use one of: file, redis, none")
	}

	today := types.DateOf(now)
	from, err := parseDay(v.GetString("from"), today)
	if err != nil {
		return Config{}, NewValidationError("start", "from", v.GetString("from"), CommonSuggestions.CheckDate)
	}
	cfg.From = from

	if raw := v.GetString("to"); raw != "" {
		to, err := parseDay(raw, today)
		if err != nil {
			return Config{}, NewValidationError("start", "to", raw, CommonSuggestions.CheckDate)
		}
		cfg.To = to
	} else {
		days := v.GetInt("days")
		if days < 1 {
			days = 1
		}
		to, err := from.AddDays(days - 1)
		if err != nil {
			return Config{}, err
		}
		cfg.To = to
	}
	if cfg.To.Before(cfg.From) {
		return Config{}, NewValidationError("start", "range", fmt.Sprintf("%s..%s", cfg.From, cfg.To),
			"--to must not be before --from")
	}

	return cfg, nil
}

// parseDay accepts YYYY-MM-DD and a few words relative to today
func parseDay(s string, today types.Date) (types.Date, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.AddDays(1)
	case "yesterday":
		return today.AddDays(-1)
	}
	return types.ParseDate(strings.TrimSpace(s))
}
