// Package config provides configuration management for kage.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// DefaultDataDir is the data directory used when none is configured.
const DefaultDataDir = "~/.kage"

// Config holds all configuration for the kage application.
type Config struct {
	API           APIConfig          `mapstructure:"api"`
	Cache         CacheConfig        `mapstructure:"cache"`
	Todos         TodosConfig        `mapstructure:"todos"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Sync          SyncConfig         `mapstructure:"sync"`
	Log           LogConfig          `mapstructure:"log"`
	Theme         ThemeConfig        `mapstructure:"theme"`
}

// APIConfig points at the life-log server.
type APIConfig struct {
	BaseURL string   `mapstructure:"base_url"`
	Timeout Duration `mapstructure:"timeout"`
}

// CacheConfig holds the lifetimes of the local mirror.
type CacheConfig struct {
	TTL           Duration `mapstructure:"ttl"`
	EventTypesTTL Duration `mapstructure:"event_types_ttl"`
}

// TodosConfig holds todo view settings.
type TodosConfig struct {
	// ServerFilter sends the tab to the server instead of filtering locally.
	ServerFilter bool `mapstructure:"server_filter"`
}

// NotificationConfig holds notification settings.
type NotificationConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Desktop bool `mapstructure:"desktop"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// SyncConfig holds the default schedule of `kage sync --watch`.
type SyncConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// LogConfig holds diagnostic logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ThemeConfig holds theme customization settings (colors and icons).
type ThemeConfig struct {
	ColorAccent  string `mapstructure:"color_accent"`
	ColorTitle   string `mapstructure:"color_title"`
	ColorMuted   string `mapstructure:"color_muted"`
	ColorDone    string `mapstructure:"color_done"`
	ColorHigh    string `mapstructure:"color_high"`
	ColorError   string `mapstructure:"color_error"`
	ColorSuccess string `mapstructure:"color_success"`
	IconApp      string `mapstructure:"icon_app"`
	IconEvent    string `mapstructure:"icon_event"`
	IconTodo     string `mapstructure:"icon_todo"`
	IconDone     string `mapstructure:"icon_done"`
}

// DefaultThemeConfig returns the default theme configuration.
func DefaultThemeConfig() ThemeConfig {
	return ThemeConfig{
		ColorAccent:  "#7C6FE0",
		ColorTitle:   "#A78BFA",
		ColorMuted:   "#6B7280",
		ColorDone:    "#4B5563",
		ColorHigh:    "#F97316",
		ColorError:   "#EF4444",
		ColorSuccess: "#2ECC71",
		IconApp:      "影",
		IconEvent:    "•",
		IconTodo:     "○",
		IconDone:     "●",
	}
}

// Duration is a wrapper around time.Duration for TOML parsing.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// String returns the string representation of the duration.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "https://k4ge.bar/api",
			Timeout: Duration(10 * time.Second),
		},
		Cache: CacheConfig{
			TTL:           Duration(2 * time.Minute),
			EventTypesTTL: Duration(24 * time.Hour),
		},
		Notifications: NotificationConfig{
			Enabled: true,
			Desktop: false,
		},
		Storage: StorageConfig{
			DataDir: DefaultDataDir,
		},
		Sync: SyncConfig{
			Schedule: "*/15 * * * *",
		},
		Log: LogConfig{
			Level: "warn",
		},
		Theme: DefaultThemeConfig(),
	}
}

// Load loads the configuration from ~/.kage/config.toml, creating it with
// defaults on first run.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from configPath.
func LoadFrom(configPath string) (*Config, error) {
	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// If config file doesn't exist, create it with defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := SaveTo(configPath, DefaultConfig()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	dataDir, err := expandHome(cfg.Storage.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.Storage.DataDir = dataDir

	return &cfg, nil
}

// Save saves the configuration to ~/.kage/config.toml.
func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return SaveTo(configPath, cfg)
}

// SaveTo writes cfg to configPath.
func SaveTo(configPath string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := newViper(configPath)
	v.Set("api.base_url", cfg.API.BaseURL)
	v.Set("api.timeout", cfg.API.Timeout.String())
	v.Set("cache.ttl", cfg.Cache.TTL.String())
	v.Set("cache.event_types_ttl", cfg.Cache.EventTypesTTL.String())
	v.Set("todos.server_filter", cfg.Todos.ServerFilter)
	v.Set("notifications.enabled", cfg.Notifications.Enabled)
	v.Set("notifications.desktop", cfg.Notifications.Desktop)
	v.Set("storage.data_dir", cfg.Storage.DataDir)
	v.Set("sync.schedule", cfg.Sync.Schedule)
	v.Set("log.level", cfg.Log.Level)
	v.Set("theme.color_accent", cfg.Theme.ColorAccent)
	v.Set("theme.color_title", cfg.Theme.ColorTitle)
	v.Set("theme.color_muted", cfg.Theme.ColorMuted)
	v.Set("theme.color_done", cfg.Theme.ColorDone)
	v.Set("theme.color_high", cfg.Theme.ColorHigh)
	v.Set("theme.color_error", cfg.Theme.ColorError)
	v.Set("theme.color_success", cfg.Theme.ColorSuccess)
	v.Set("theme.icon_app", cfg.Theme.IconApp)
	v.Set("theme.icon_event", cfg.Theme.IconEvent)
	v.Set("theme.icon_todo", cfg.Theme.IconTodo)
	v.Set("theme.icon_done", cfg.Theme.IconDone)

	return v.WriteConfigAs(configPath)
}

// Keys lists the settable configuration keys.
func Keys() []string {
	keys := newViper("").AllKeys()
	slices.Sort(keys)
	return keys
}

// Set updates one key in the file at configPath. The value is checked by
// loading the result.
func Set(configPath, key, value string) error {
	key = strings.ToLower(key)
	if !slices.Contains(Keys(), key) {
		return fmt.Errorf("unknown config key %q", key)
	}

	if _, err := LoadFrom(configPath); err != nil {
		return err
	}
	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	v.Set(key, value)
	var probe Config
	if err := v.Unmarshal(&probe, decodeHook); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	return v.WriteConfigAs(configPath)
}

// GetConfigPath returns the path to the config file.
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".kage", "config.toml"), nil
}

// GetDBPath returns the path to the cache database file.
func GetDBPath(cfg *Config) string {
	return filepath.Join(cfg.Storage.DataDir, "kage.db")
}

// LogLevel maps log.level to a zap level, defaulting to warn.
func (c *Config) LogLevel() zapcore.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}

// decodeHook lets Duration fields be written as "2m" strings.
var decodeHook = viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
	mapstructure.TextUnmarshallerHookFunc(),
	mapstructure.StringToTimeDurationHookFunc(),
))

func newViper(configPath string) *viper.Viper {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	v.SetConfigType("toml")
	setDefaults(v)
	return v
}

func expandHome(dir string) (string, error) {
	if dir != "" && dir != "~" && !strings.HasPrefix(dir, "~/") {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if dir == "" || dir == "~" {
		return filepath.Join(homeDir, ".kage"), nil
	}
	return filepath.Join(homeDir, strings.TrimPrefix(dir, "~/")), nil
}

// setDefaults sets default values for viper.
func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("api.base_url", defaults.API.BaseURL)
	v.SetDefault("api.timeout", defaults.API.Timeout.String())
	v.SetDefault("cache.ttl", defaults.Cache.TTL.String())
	v.SetDefault("cache.event_types_ttl", defaults.Cache.EventTypesTTL.String())
	v.SetDefault("todos.server_filter", defaults.Todos.ServerFilter)
	v.SetDefault("notifications.enabled", defaults.Notifications.Enabled)
	v.SetDefault("notifications.desktop", defaults.Notifications.Desktop)
	v.SetDefault("storage.data_dir", defaults.Storage.DataDir)
	v.SetDefault("sync.schedule", defaults.Sync.Schedule)
	v.SetDefault("log.level", defaults.Log.Level)

	// Theme defaults
	theme := defaults.Theme
	v.SetDefault("theme.color_accent", theme.ColorAccent)
	v.SetDefault("theme.color_title", theme.ColorTitle)
	v.SetDefault("theme.color_muted", theme.ColorMuted)
	v.SetDefault("theme.color_done", theme.ColorDone)
	v.SetDefault("theme.color_high", theme.ColorHigh)
	v.SetDefault("theme.color_error", theme.ColorError)
	v.SetDefault("theme.color_success", theme.ColorSuccess)
	v.SetDefault("theme.icon_app", theme.IconApp)
	v.SetDefault("theme.icon_event", theme.IconEvent)
	v.SetDefault("theme.icon_todo", theme.IconTodo)
	v.SetDefault("theme.icon_done", theme.IconDone)
}
