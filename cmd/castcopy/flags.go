package main

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/castcopy/internal/config"
	"github.com/born-ml/castcopy/internal/logger"
)

var (
	configPath string
	logLevel   string
	logFormat  string
	workers    int64
	inOrder    bool
	device     string
	noParallel bool
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default: user config dir)",
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       logger.FormatPretty,
			Destination: &logFormat,
		},
		&cli.Int64Flag{
			Name:        "workers",
			Aliases:     []string{"w"},
			Usage:       "queue worker count",
			Destination: &workers,
		},
		&cli.BoolFlag{
			Name:        "in-order",
			Usage:       "run submissions one after another",
			Destination: &inOrder,
		},
		&cli.StringFlag{
			Name:        "device",
			Usage:       "queue device (cpu, cuda, vulkan, metal, webgpu)",
			Destination: &device,
		},
		&cli.BoolFlag{
			Name:        "no-parallel",
			Usage:       "run each kernel on a single goroutine",
			Destination: &noParallel,
		},
	}
}

// loadSettings reads the config file and lets explicitly set flags win over
// its values.
func loadSettings(cmd *cli.Command) (config.Settings, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Settings{}, err
	}
	applyFlags(cmd.Root(), &cfg)
	return cfg.Resolve()
}

func applyFlags(root *cli.Command, cfg *config.Config) {
	if root.IsSet("workers") {
		n := int(workers)
		cfg.Workers = &n
	}
	if root.IsSet("in-order") {
		cfg.InOrder = &inOrder
	}
	if root.IsSet("device") {
		cfg.Device = device
	}
	if root.IsSet("no-parallel") {
		enabled := !noParallel
		cfg.Parallel = &enabled
	}
	if root.IsSet("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = logLevel
	}
	if root.IsSet("log-format") || cfg.LogFormat == "" {
		cfg.LogFormat = logFormat
	}
}

func setupLogger(s config.Settings, w io.Writer) (logger.Logger, error) {
	log, err := logger.Setup(s.LogFormat, s.LogLevel, w)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return log, nil
}
