// Package app provides application-level configuration and initialization.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lazyvibe/websmith/internal/model"
	"github.com/lazyvibe/websmith/internal/notify"
	"github.com/lazyvibe/websmith/internal/runtime/driver"
	"github.com/lazyvibe/websmith/internal/source"
	"github.com/lazyvibe/websmith/pkg/utils"
)

// EnvPrefix prefixes environment overrides, e.g. WEBSMITH_WINDOW_WIDTH.
const EnvPrefix = "WEBSMITH"

// Config holds the application configuration.
type Config struct {
	// Initialized is set once the first-run wizard completes.
	Initialized bool `mapstructure:"initialized" json:"initialized"`
	// Driver selects the browser automation backend.
	Driver model.DriverType `mapstructure:"driver" json:"driver"`
	// Headless runs the browser without a window.
	Headless bool `mapstructure:"headless" json:"headless"`
	// BrowserPath is the Chromium executable. Empty means auto-detect.
	BrowserPath string `mapstructure:"browser_path" json:"browser_path,omitempty"`
	// BrowserFlags are extra switches, e.g. `--lang=fr --disable-gpu`.
	BrowserFlags string `mapstructure:"browser_flags" json:"browser_flags,omitempty"`
	Window       WindowConfig `mapstructure:"window" json:"window"`
	Fetch        FetchConfig  `mapstructure:"fetch" json:"fetch"`
	// LegacyWhitelistPolicy decides how requestWhitelist is read on import.
	LegacyWhitelistPolicy model.LegacyWhitelistPolicy `mapstructure:"legacy_whitelist_policy" json:"legacy_whitelist_policy"`
	Logger                LoggerConfig                `mapstructure:"logger" json:"logger"`
	Notifications         notify.Config               `mapstructure:"notifications" json:"notifications"`
	// RecentPaths stores recently used import and export paths for completion.
	RecentPaths []string `mapstructure:"recent_paths" json:"recent_paths,omitempty"`
}

// WindowConfig is the initial browser window size.
type WindowConfig struct {
	Width  int `mapstructure:"width" json:"width"`
	Height int `mapstructure:"height" json:"height"`
}

// FetchConfig controls remote stylesheet, script and list loading.
type FetchConfig struct {
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
	Retries int           `mapstructure:"retries" json:"retries"`
}

// LoggerConfig configures the zap logger.
type LoggerConfig struct {
	Level      string `mapstructure:"level" json:"level"`
	Format     string `mapstructure:"format" json:"format"`
	AddSource  bool   `mapstructure:"add_source" json:"add_source"`
	LogFile    string `mapstructure:"log_file" json:"log_file,omitempty"`
	MaxSize    int    `mapstructure:"max_size" json:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" json:"max_age"`
	Compress   bool   `mapstructure:"compress" json:"compress"`
}

// SetDefaults registers default values. Every key must have a default so
// environment overrides are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("initialized", false)
	v.SetDefault("driver", string(model.DriverChromedp))
	v.SetDefault("headless", false)
	v.SetDefault("browser_path", "")
	v.SetDefault("browser_flags", "")
	v.SetDefault("window.width", 1280)
	v.SetDefault("window.height", 800)
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.retries", 3)
	v.SetDefault("legacy_whitelist_policy", string(model.LegacyRename))

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
	v.SetDefault("logger.compress", true)

	v.SetDefault("notifications.desktop", true)
	v.SetDefault("notifications.webhook_url", "")
	v.SetDefault("recent_paths", []string{})
}

// DefaultConfig returns a config populated with defaults only.
func DefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("unmarshal default config: %v", err))
	}
	return &cfg
}

// ConfigPath returns the path to the config file.
func ConfigPath(configDir string) string {
	return filepath.Join(configDir, "config.json")
}

// ConfigDir returns $XDG_CONFIG_HOME/websmith, or ~/.config/websmith.
func ConfigDir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "websmith"), nil
}

// LoadConfig reads config.json from configDir into v and applies
// environment overrides. A missing file yields the defaults.
func LoadConfig(configDir string, v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetConfigFile(ConfigPath(configDir))
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks enumerated and numeric fields.
func (c *Config) Validate() error {
	switch c.Driver {
	case model.DriverChromedp, model.DriverRod:
	default:
		return fmt.Errorf("driver must be %q or %q, got %q", model.DriverChromedp, model.DriverRod, c.Driver)
	}
	if !c.LegacyWhitelistPolicy.Valid() {
		return fmt.Errorf("legacy_whitelist_policy must be %q or %q, got %q",
			model.LegacyRename, model.LegacyAllow, c.LegacyWhitelistPolicy)
	}
	if c.Window.Width < 0 || c.Window.Height < 0 {
		return errors.New("window size must not be negative")
	}
	if c.Fetch.Retries < 0 {
		return errors.New("fetch.retries must not be negative")
	}
	if _, err := utils.ParseBrowserFlags(c.BrowserFlags); err != nil {
		return fmt.Errorf("browser_flags: %w", err)
	}
	return nil
}

// SaveConfig saves the configuration to disk.
func SaveConfig(configDir string, config *Config) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(ConfigPath(configDir), data, 0o644)
}

// DriverConfig derives the launch settings shared by all drivers.
func (c *Config) DriverConfig() driver.Config {
	flags, _ := utils.ParseBrowserFlags(c.BrowserFlags)
	return driver.Config{
		BrowserPath: c.BrowserPath,
		Headless:    c.Headless,
		Width:       c.Window.Width,
		Height:      c.Window.Height,
		ExtraFlags:  flags,
	}
}

// SourceConfig derives the content loader settings.
func (c *Config) SourceConfig() source.Config {
	cfg := source.DefaultConfig()
	if c.Fetch.Timeout > 0 {
		cfg.Timeout = c.Fetch.Timeout
	}
	cfg.Retries = c.Fetch.Retries
	return cfg
}

// DetectBrowserPath attempts to find a Chromium-family executable.
func DetectBrowserPath() string {
	path, err := driver.FindBrowser()
	if err != nil {
		return ""
	}
	return path
}

// ValidateBrowserPath checks if the given path is a usable browser executable.
func ValidateBrowserPath(path string) bool {
	if path == "" {
		return false
	}
	_, err := driver.ResolveBrowser(path)
	return err == nil
}

// AddRecentPath adds a path to the recent paths list.
func (c *Config) AddRecentPath(path string) {
	path = filepath.Clean(path)

	paths := make([]string, 0, len(c.RecentPaths))
	for _, p := range c.RecentPaths {
		if p != path {
			paths = append(paths, p)
		}
	}

	c.RecentPaths = append([]string{path}, paths...)
	if len(c.RecentPaths) > 20 {
		c.RecentPaths = c.RecentPaths[:20]
	}
}

// GetRecentPaths returns recent paths matching the given prefix.
func (c *Config) GetRecentPaths(prefix string) []string {
	if prefix == "" {
		return c.RecentPaths
	}

	var matches []string
	for _, p := range c.RecentPaths {
		if strings.HasPrefix(p, prefix) {
			matches = append(matches, p)
		}
	}
	return matches
}
