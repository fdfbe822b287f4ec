package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	// Explicit path takes priority over the search locations.
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "FollowerCatcher")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "FollowerCatcher")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "follower-catcher")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "follower-catcher")
	}
}

// AvatarCacheDir returns the directory for cached avatar images.
func (c *Config) AvatarCacheDir() string {
	if c.Feed.CacheDir != "" {
		return c.Feed.CacheDir
	}
	return filepath.Join(ConfigDir(), "avatars")
}

// ScreenshotDir returns the directory F12 captures are written to.
func (c *Config) ScreenshotDir() string {
	if c.Debug.ScreenshotDir != "" {
		return c.Debug.ScreenshotDir
	}
	return filepath.Join(ConfigDir(), "screenshots")
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
