package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultBoardURL is the public BoostCamp image board.
const DefaultBoardURL = "https://ios-api.boostcamp.connect.or.kr"

// Config holds the application configuration loaded from files, flags and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	BoardURL           string        `mapstructure:"board_url"`
	BoardEmail         string        `mapstructure:"board_email"`
	BoardPassword      string        `mapstructure:"board_password" json:"-"`
	UserAgent          string        `mapstructure:"user_agent"`
	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`

	BoardsFile     string `mapstructure:"boards_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	PollIntervalSeconds int64         `mapstructure:"poll_interval"`
	PollInterval        time.Duration `mapstructure:"-"`
	PollMinGapMs        int64         `mapstructure:"poll_min_gap_ms"`
	PollMinGap          time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`

	MetricsAddr string `mapstructure:"metrics_addr"`
}

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"board-url":    "board_url",
	"email":        "board_email",
	"password":     "board_password",
	"log-level":    "log_level",
	"boards-file":  "boards_file",
	"metrics-addr": "metrics_addr",
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	return LoadWithFlags(nil)
}

// LoadWithFlags is Load with any known flags in fs taking precedence over the environment.
// Only flags the user actually set override other sources.
func LoadWithFlags(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "imageboard-client")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("board_url", DefaultBoardURL)
	v.SetDefault("board_email", "")
	v.SetDefault("board_password", "")
	v.SetDefault("user_agent", "imageboard-client/1.0")
	v.SetDefault("http_timeout_seconds", 60)
	v.SetDefault("boards_file", "")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("poll_interval", 300) // seconds
	v.SetDefault("poll_min_gap_ms", 500)
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/seen.db")
	v.SetDefault("storage_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))
	v.SetDefault("metrics_addr", "")

	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.BoardURL = strings.TrimRight(strings.TrimSpace(cfg.BoardURL), "/")
	if cfg.BoardURL == "" {
		return nil, fmt.Errorf("board_url is required")
	}

	if cfg.HTTPTimeoutSeconds < 0 {
		return nil, fmt.Errorf("invalid http_timeout_seconds (must not be negative)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.PollIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid poll_interval (must be positive seconds)")
	}
	cfg.PollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second

	if cfg.PollMinGapMs < 0 {
		return nil, fmt.Errorf("invalid poll_min_gap_ms (must not be negative)")
	}
	cfg.PollMinGap = time.Duration(cfg.PollMinGapMs) * time.Millisecond

	if cfg.StorageTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}

// RegisterFlags declares the flags LoadWithFlags understands on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("board-url", "", "image board base URL")
	fs.String("email", "", "account email used to sign in")
	fs.String("password", "", "account password used to sign in")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("boards-file", "", "YAML/JSON file listing boards to watch")
	fs.String("metrics-addr", "", "listen address for the Prometheus endpoint")
}

// Summary returns the settings worth logging at startup. Credentials are
// reduced to whether they are set.
func (c *Config) Summary() map[string]any {
	if c == nil {
		return nil
	}
	return map[string]any{
		"app_name":             c.AppName,
		"app_env":              c.Env,
		"log_level":            c.LogLevel,
		"board_url":            c.BoardURL,
		"board_email_set":      c.BoardEmail != "",
		"board_password_set":   c.BoardPassword != "",
		"http_timeout_seconds": int(c.HTTPTimeout.Seconds()),
		"boards_file":          c.BoardsFile,
		"publishers_file":      c.PublishersFile,
		"poll_interval":        c.PollInterval.String(),
		"poll_min_gap":         c.PollMinGap.String(),
		"storage_type":         c.StorageType,
		"bbolt_path":           c.BBoltPath,
		"metrics_addr":         c.MetricsAddr,
	}
}
