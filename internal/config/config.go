package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything the console needs to run.
type Config struct {
	// BaseURL is the origin of the Tambola platform API.
	BaseURL string
	// BotToken authenticates the Telegram front end. Env only, never read
	// from the config file.
	BotToken string
	// AdminChatID, when set, restricts console commands to one chat.
	AdminChatID int64
	// SessionPath is the sqlite file holding the persisted admin session.
	SessionPath string
	// RequestTimeout bounds every API call.
	RequestTimeout time.Duration
	// NotifyTTL is how long a notification stays visible before auto-dismiss.
	NotifyTTL time.Duration
	// PageLimit is the default page size for list screens.
	PageLimit int
	Verbose   bool
}

// fileConfig is the YAML shape of the optional config file. Durations are
// plain seconds so deployments do not need Go duration syntax.
type fileConfig struct {
	BaseURL               string `yaml:"base_url"`
	AdminChatID           int64  `yaml:"admin_chat_id"`
	SessionPath           string `yaml:"session_path"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	NotifyTTLSeconds      int    `yaml:"notify_ttl_seconds"`
	PageLimit             int    `yaml:"page_limit"`
	Verbose               *bool  `yaml:"verbose"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BaseURL:        "https://tambola.chetakbooks.shop",
		SessionPath:    "/app/data/session.db",
		RequestTimeout: 30 * time.Second,
		NotifyTTL:      6 * time.Second,
		PageLimit:      10,
	}
}

// Load builds the configuration from defaults, an optional YAML file named
// by CONFIG_FILE, and environment variables, in that order of precedence.
// A .env file in the working directory is loaded first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		return Config{}, fmt.Errorf("base URL must not be empty")
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = Default().PageLimit
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if fc.BaseURL != "" {
		cfg.BaseURL = fc.BaseURL
	}
	if fc.AdminChatID != 0 {
		cfg.AdminChatID = fc.AdminChatID
	}
	if fc.SessionPath != "" {
		cfg.SessionPath = fc.SessionPath
	}
	if fc.RequestTimeoutSeconds > 0 {
		cfg.RequestTimeout = time.Duration(fc.RequestTimeoutSeconds) * time.Second
	}
	if fc.NotifyTTLSeconds > 0 {
		cfg.NotifyTTL = time.Duration(fc.NotifyTTLSeconds) * time.Second
	}
	if fc.PageLimit > 0 {
		cfg.PageLimit = fc.PageLimit
	}
	if fc.Verbose != nil {
		cfg.Verbose = *fc.Verbose
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("API_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.BotToken = v
	}
	if v := os.Getenv("ADMIN_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.AdminChatID = id
		}
	}
	if v := os.Getenv("SESSION_PATH"); v != "" {
		cfg.SessionPath = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SECONDS"); v != "" {
		if s, err := strconv.Atoi(v); err == nil && s > 0 {
			cfg.RequestTimeout = time.Duration(s) * time.Second
		}
	}
	if v := os.Getenv("NOTIFY_TTL_SECONDS"); v != "" {
		if s, err := strconv.Atoi(v); err == nil && s > 0 {
			cfg.NotifyTTL = time.Duration(s) * time.Second
		}
	}
	if v := os.Getenv("PAGE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PageLimit = n
		}
	}
	if v := os.Getenv("VERBOSE"); v != "" {
		cfg.Verbose = v == "1" || strings.EqualFold(v, "true")
	}
}
