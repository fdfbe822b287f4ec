// Package config handles game configuration loading and management.
package config

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config holds all game settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Audio    AudioConfig    `yaml:"audio"`
	Game     GameConfig     `yaml:"game"`
	Feed     FeedConfig     `yaml:"feed"`
	Content  ContentConfig  `yaml:"content"`
	Logging  LoggingConfig  `yaml:"logging"`
	Debug    DebugConfig    `yaml:"debug"`
}

// GraphicsConfig holds display and camera settings.
type GraphicsConfig struct {
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	Fullscreen  bool    `yaml:"fullscreen"`
	VSync       bool    `yaml:"vsync"`
	FieldOfView float32 `yaml:"field_of_view"` // vertical, degrees
	NearPlane   float32 `yaml:"near_plane"`
	FarPlane    float32 `yaml:"far_plane"`
}

// AudioConfig holds audio settings.
type AudioConfig struct {
	MasterVolume float32 `yaml:"master_volume"`
	MusicVolume  float32 `yaml:"music_volume"`
	SFXVolume    float32 `yaml:"sfx_volume"`
	Muted        bool    `yaml:"muted"`
}

// GameConfig holds the runner tuning.
type GameConfig struct {
	ScrollSpeed      float32 `yaml:"scroll_speed"`      // world units per second
	PathWidth        float32 `yaml:"path_width"`        // lane spacing
	SegmentCount     int     `yaml:"segment_count"`     // track ring size
	DecorationChance int     `yaml:"decoration_chance"` // out of 10, per wall
	Seed             uint64  `yaml:"seed"`              // 0 picks a time-based seed
	Hashtag          string  `yaml:"hashtag"`
}

// FeedConfig holds social feed settings.
type FeedConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Endpoint       string        `yaml:"endpoint"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	CacheDir       string        `yaml:"cache_dir"` // empty uses ConfigDir()/avatars
	AvatarSize     int           `yaml:"avatar_size"`
}

// ContentConfig lists asset directories, later entries override earlier.
type ContentConfig struct {
	Roots []string `yaml:"roots"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	JSON    bool   `yaml:"json"`
}

// DebugConfig holds developer settings.
type DebugConfig struct {
	CPUProfile    string `yaml:"cpu_profile"`    // directory for cpu.pprof, empty disables
	ScreenshotDir string `yaml:"screenshot_dir"` // empty uses ConfigDir()/screenshots
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:       1280,
			Height:      720,
			VSync:       true,
			FieldOfView: 45,
			NearPlane:   0.1,
			FarPlane:    1000,
		},
		Audio: AudioConfig{
			MasterVolume: 0.8,
			MusicVolume:  0.7,
			SFXVolume:    0.8,
		},
		Game: GameConfig{
			ScrollSpeed:      200,
			PathWidth:        20,
			SegmentCount:     18,
			DecorationChance: 7,
			Hashtag:          "hackw8",
		},
		Feed: FeedConfig{
			Enabled:        true,
			Endpoint:       "http://127.0.0.1:8085/search",
			PollInterval:   30 * time.Second,
			RequestTimeout: 10 * time.Second,
			MaxConcurrent:  4,
			AvatarSize:     64,
		},
		Content: ContentConfig{
			Roots: []string{"content"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports every setting that cannot be used.
func (c *Config) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf(format, args...))
		}
	}

	check(c.Graphics.Width > 0 && c.Graphics.Height > 0, "graphics: invalid size %dx%d", c.Graphics.Width, c.Graphics.Height)
	check(c.Graphics.FieldOfView > 0 && c.Graphics.FieldOfView < 180, "graphics: field_of_view %v out of range", c.Graphics.FieldOfView)
	check(c.Graphics.NearPlane > 0 && c.Graphics.FarPlane > c.Graphics.NearPlane,
		"graphics: invalid clip planes near=%v far=%v", c.Graphics.NearPlane, c.Graphics.FarPlane)
	check(c.Game.ScrollSpeed > 0, "game: scroll_speed must be positive, got %v", c.Game.ScrollSpeed)
	check(c.Game.PathWidth > 0, "game: path_width must be positive, got %v", c.Game.PathWidth)
	check(c.Game.SegmentCount > 0, "game: segment_count must be positive, got %d", c.Game.SegmentCount)
	check(c.Game.DecorationChance >= 0 && c.Game.DecorationChance <= 10,
		"game: decoration_chance must be in [0,10], got %d", c.Game.DecorationChance)
	check(len(c.Content.Roots) > 0, "content: no roots configured")
	if c.Feed.Enabled {
		check(c.Feed.Endpoint != "", "feed: endpoint is empty")
		check(c.Feed.PollInterval > 0, "feed: poll_interval must be positive, got %v", c.Feed.PollInterval)
		check(c.Feed.MaxConcurrent > 0, "feed: max_concurrent must be positive, got %d", c.Feed.MaxConcurrent)
		check(c.Feed.AvatarSize > 0, "feed: avatar_size must be positive, got %d", c.Feed.AvatarSize)
	}
	return err
}
