// Package main is the entry point for Follower Catcher.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/Faultbox/follower-catcher/internal/config"
	"github.com/Faultbox/follower-catcher/internal/game"
	"github.com/Faultbox/follower-catcher/internal/logger"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	opts := logger.Options{Level: cfg.Logging.Level, Console: true, JSON: cfg.Logging.JSON}
	if cfg.Logging.LogFile != "" {
		opts.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.Setup(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Debug.CPUProfile != "" {
		p := profile.Start(profile.CPUProfile, profile.ProfilePath(cfg.Debug.CPUProfile), profile.NoShutdownHook)
		defer p.Stop()
	}

	logger.Info("=== Follower Catcher ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("game error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("game closed normally")
}

func run(cfg *config.Config) error {
	g, err := game.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	defer g.Close()

	return g.Run()
}
