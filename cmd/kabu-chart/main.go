package main

import (
	"fmt"
	"os"

	"kabu-chart/internal/cli"
	"kabu-chart/internal/config"
	"kabu-chart/internal/logging"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := logging.NewLoggerWithConfig(logging.LogConfig{
		Level:      cfg.Logging.Level,
		Console:    cfg.Logging.Console,
		File:       cfg.Logging.File,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	})

	if err := cli.NewRootCmd(cfg, logger).Execute(); err != nil {
		os.Exit(1)
	}
}
