package config

import (
	"flag"
	"strings"
)

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagWindowed   = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Window width")
	flagHeight     = flag.Int("height", 0, "Window height")
	flagSeed       = flag.Uint64("seed", 0, "Random seed for track and spawns (0 = time based)")
	flagHashtag    = flag.String("hashtag", "", "Hashtag to poll the social feed for")
	flagOffline    = flag.Bool("offline", false, "Disable the social feed")
	flagContent    = flag.String("content", "", "Comma separated content directories")
	flagCPUProfile = flag.String("cpuprofile", "", "Write a CPU profile to this directory")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWindowed {
		cfg.Graphics.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Graphics.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Graphics.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Graphics.Height = *flagHeight
	}
	if *flagSeed != 0 {
		cfg.Game.Seed = *flagSeed
	}
	if *flagHashtag != "" {
		cfg.Game.Hashtag = strings.TrimPrefix(*flagHashtag, "#")
	}
	if *flagOffline {
		cfg.Feed.Enabled = false
	}
	if *flagContent != "" {
		cfg.Content.Roots = strings.Split(*flagContent, ",")
	}
	if *flagCPUProfile != "" {
		cfg.Debug.CPUProfile = *flagCPUProfile
	}
}
