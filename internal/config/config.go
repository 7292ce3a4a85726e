// Package config loads settings for the admin binaries.
//
// Sources, lowest precedence first:
//   - built-in defaults
//   - an optional TOML or YAML file (AIDD_CONFIG or an explicit path)
//   - a .env file in the working directory
//   - the process environment
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL       = "http://localhost:8000"
	DefaultAdminPort    = 3000
	DefaultStateDB      = "aidd_state.db"
	DefaultHistoryLimit = 50
	DefaultAPITimeout   = 30 * time.Second
	DefaultStatsTTL     = 30 * time.Second
	DefaultFontPath     = "fonts/DejaVuSans.ttf"
)

// RenderContext tells ResolveBaseURL which network path the caller is on.
type RenderContext int

const (
	// RenderServer is a process running next to the backend (admin server, bot).
	RenderServer RenderContext = iota
	// RenderBrowser is a client on the public network (CLI, terminal widget).
	RenderBrowser
)

type Config struct {
	// InternalAPIURL is the backend address on the internal network (API_URL).
	InternalAPIURL string
	// PublicAPIURL is the backend address reachable from user machines.
	PublicAPIURL string
	APITimeout   time.Duration

	AdminPort     int
	StateDB       string
	HistoryLimit  int
	StatsCacheTTL time.Duration
	FontPath      string

	TelegramToken string
	AdminChatIDs  []int64

	LogLevel  string
	LogToFile bool
}

// fileConfig mirrors Config for TOML and YAML files. Durations are strings
// such as "30s".
type fileConfig struct {
	API struct {
		URL       string `toml:"url" yaml:"url"`
		PublicURL string `toml:"public_url" yaml:"public_url"`
		Timeout   string `toml:"timeout" yaml:"timeout"`
	} `toml:"api" yaml:"api"`
	Admin struct {
		Port          int    `toml:"port" yaml:"port"`
		StatsCacheTTL string `toml:"stats_cache_ttl" yaml:"stats_cache_ttl"`
		FontPath      string `toml:"font_path" yaml:"font_path"`
	} `toml:"admin" yaml:"admin"`
	Chat struct {
		StateDB      string `toml:"state_db" yaml:"state_db"`
		HistoryLimit int    `toml:"history_limit" yaml:"history_limit"`
	} `toml:"chat" yaml:"chat"`
	Telegram struct {
		Token        string  `toml:"token" yaml:"token"`
		AdminChatIDs []int64 `toml:"admin_chat_ids" yaml:"admin_chat_ids"`
	} `toml:"telegram" yaml:"telegram"`
	Log struct {
		Level  string `toml:"level" yaml:"level"`
		ToFile bool   `toml:"to_file" yaml:"to_file"`
	} `toml:"log" yaml:"log"`
}

func Default() *Config {
	return &Config{
		APITimeout:    DefaultAPITimeout,
		AdminPort:     DefaultAdminPort,
		StateDB:       DefaultStateDB,
		HistoryLimit:  DefaultHistoryLimit,
		StatsCacheTTL: DefaultStatsTTL,
		FontPath:      DefaultFontPath,
		LogLevel:      "INFO",
	}
}

// Load builds a Config. path may be empty; AIDD_CONFIG is consulted then.
// A missing .env file is not an error, a missing explicit config file is.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("AIDD_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &fc); err != nil {
			return fmt.Errorf("parse toml %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("parse yaml %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	return c.merge(fc)
}

func (c *Config) merge(fc fileConfig) error {
	setString(&c.InternalAPIURL, fc.API.URL)
	setString(&c.PublicAPIURL, fc.API.PublicURL)
	if err := setDuration(&c.APITimeout, fc.API.Timeout, "api.timeout"); err != nil {
		return err
	}
	if fc.Admin.Port > 0 {
		c.AdminPort = fc.Admin.Port
	}
	if err := setDuration(&c.StatsCacheTTL, fc.Admin.StatsCacheTTL, "admin.stats_cache_ttl"); err != nil {
		return err
	}
	setString(&c.FontPath, fc.Admin.FontPath)
	setString(&c.StateDB, fc.Chat.StateDB)
	if fc.Chat.HistoryLimit > 0 {
		c.HistoryLimit = fc.Chat.HistoryLimit
	}
	setString(&c.TelegramToken, fc.Telegram.Token)
	if len(fc.Telegram.AdminChatIDs) > 0 {
		c.AdminChatIDs = fc.Telegram.AdminChatIDs
	}
	setString(&c.LogLevel, fc.Log.Level)
	if fc.Log.ToFile {
		c.LogToFile = true
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString(&c.InternalAPIURL, getenv("API_URL"))
	setString(&c.PublicAPIURL, getenv("PUBLIC_API_URL"))
	setString(&c.PublicAPIURL, getenv("NEXT_PUBLIC_API_URL"))
	if err := setDuration(&c.APITimeout, getenv("API_TIMEOUT"), "API_TIMEOUT"); err != nil {
		return err
	}

	if v := getenv("ADMIN_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return fmt.Errorf("invalid ADMIN_PORT %q", v)
		}
		c.AdminPort = port
	}
	if err := setDuration(&c.StatsCacheTTL, getenv("STATS_CACHE_TTL"), "STATS_CACHE_TTL"); err != nil {
		return err
	}
	setString(&c.FontPath, getenv("FONT_PATH"))
	setString(&c.StateDB, getenv("STATE_DB"))

	if v := getenv("HISTORY_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid HISTORY_LIMIT %q", v)
		}
		c.HistoryLimit = n
	}

	setString(&c.TelegramToken, getenv("TELEGRAM_TOKEN"))
	if v := getenv("ADMIN_CHAT_IDS"); v != "" {
		ids, err := ParseChatIDs(v)
		if err != nil {
			return err
		}
		c.AdminChatIDs = ids
	}

	setString(&c.LogLevel, getenv("LOG_LEVEL"))
	if v := getenv("LOG_TO_FILE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LOG_TO_FILE %q", v)
		}
		c.LogToFile = b
	}
	return nil
}

// ResolveBaseURL picks the backend base URL. Server-side callers prefer the
// internal address; everybody else, or a server without one, uses the public
// address and finally DefaultAPIURL.
func (c *Config) ResolveBaseURL(rc RenderContext) string {
	if rc == RenderServer && c.InternalAPIURL != "" {
		return strings.TrimRight(c.InternalAPIURL, "/")
	}
	if c.PublicAPIURL != "" {
		return strings.TrimRight(c.PublicAPIURL, "/")
	}
	return DefaultAPIURL
}

// ParseChatIDs parses a comma separated list of Telegram chat ids.
func ParseChatIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v, name string) error {
	if v = strings.TrimSpace(v); v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s %q: must be positive", name, v)
	}
	*dst = d
	return nil
}
