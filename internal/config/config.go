// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Mode     string  `yaml:"mode"` // polling | webhook (future)
	Username string  `yaml:"username"`
	Workers  int     `yaml:"workers"` // polling workers
	AdminIDs []int64 `yaml:"admin_ids"`
	// CommunityChatID is the group whose new-member restriction is lifted on
	// completion. Zero disables role promotion.
	CommunityChatID int64 `yaml:"community_chat_id"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

type SheetsConfig struct {
	// CredentialsFile is the service-account key path; CredentialsJSON (raw
	// key material, e.g. from an env-substituted config) wins if both are set.
	CredentialsFile string `yaml:"credentials_file"`
	CredentialsJSON string `yaml:"credentials_json"`
	// SpreadsheetID opens directly; when empty the spreadsheet is looked up by
	// name and created if missing.
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SpreadsheetName string `yaml:"spreadsheet_name"`
	WorksheetName   string `yaml:"worksheet_name"`
}

type StoreConfig struct {
	Backend    string       `yaml:"backend"` // sheets | sqlite | postgres
	SQLitePath string       `yaml:"sqlite_path"`
	Postgres   string       `yaml:"postgres_url"`
	Sheets     SheetsConfig `yaml:"sheets"`
}

type SessionConfig struct {
	Backend  string        `yaml:"backend"` // memory | redis
	TTL      time.Duration `yaml:"ttl"`
	RedisURL string        `yaml:"redis_url"`
	Password string        `yaml:"redis_password"`
	DB       int           `yaml:"redis_db"`
}

type OnboardingConfig struct {
	// RepeatPolicy decides what Start does for a user who already has a
	// durable record: prompt (continue-or-abort choice), overwrite, or block.
	RepeatPolicy string `yaml:"repeat_policy"`
}

type Config struct {
	Bot        BotConfig        `yaml:"bot"`
	Log        LogConfig        `yaml:"log"`
	Admin      AdminConfig      `yaml:"admin"`
	Store      StoreConfig      `yaml:"store"`
	Session    SessionConfig    `yaml:"session"`
	Onboarding OnboardingConfig `yaml:"onboarding"`

	Runtime RuntimeConfig `yaml:"-"`
}

const (
	RepeatPolicyPrompt    = "prompt"
	RepeatPolicyOverwrite = "overwrite"
	RepeatPolicyBlock     = "block"
)

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Session.Backend == "" {
		cfg.Session.Backend = "memory"
	}
	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = 15 * time.Minute
	}
	if cfg.Onboarding.RepeatPolicy == "" {
		cfg.Onboarding.RepeatPolicy = RepeatPolicyPrompt
	}
	if cfg.Store.Sheets.SpreadsheetName == "" {
		cfg.Store.Sheets.SpreadsheetName = "Community Onboarding Data"
	}
	if cfg.Store.Sheets.WorksheetName == "" {
		cfg.Store.Sheets.WorksheetName = "User Data"
	}

	// Minimal validation. A missing credential fails startup; nothing here is
	// recoverable at runtime.
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	switch cfg.Store.Backend {
	case "sheets":
		if cfg.Store.Sheets.CredentialsFile == "" && cfg.Store.Sheets.CredentialsJSON == "" {
			return nil, errors.New("store.sheets.credentials_file or credentials_json is required")
		}
	case "sqlite":
		if cfg.Store.SQLitePath == "" {
			return nil, errors.New("store.sqlite_path is required")
		}
	case "postgres":
		if cfg.Store.Postgres == "" {
			return nil, errors.New("store.postgres_url is required")
		}
	default:
		return nil, fmt.Errorf("store.backend must be sheets, sqlite or postgres (got %q)", cfg.Store.Backend)
	}
	switch cfg.Session.Backend {
	case "memory":
	case "redis":
		if cfg.Session.RedisURL == "" {
			return nil, errors.New("session.redis_url is required")
		}
	default:
		return nil, fmt.Errorf("session.backend must be memory or redis (got %q)", cfg.Session.Backend)
	}
	switch cfg.Onboarding.RepeatPolicy {
	case RepeatPolicyPrompt, RepeatPolicyOverwrite, RepeatPolicyBlock:
	default:
		return nil, fmt.Errorf("onboarding.repeat_policy must be prompt, overwrite or block (got %q)", cfg.Onboarding.RepeatPolicy)
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
