package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/RishiKendai/dupcheck/internal/config"
	"github.com/RishiKendai/dupcheck/internal/configs/env"
	"github.com/RishiKendai/dupcheck/internal/logger"
	"github.com/rs/zerolog/log"
)

// commandContext carries the flags shared by every command and the
// configuration they resolve to
type commandContext struct {
	configFlag *string
	logLevel   *string
	stdout     io.Writer
	stderr     io.Writer

	config *config.Config
}

func newCommandContext(configFlag, logLevel *string, stdout, stderr io.Writer) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		logLevel:   logLevel,
		stdout:     stdout,
		stderr:     stderr,
	}
}

// ensureConfig loads .env, the TOML file and environment variables once and
// sets up logging on stderr
func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}

	envErr := env.LoadEnv()

	cfg, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if *c.logLevel != "" {
		cfg.LogLevel = *c.logLevel
	}

	logger.InitWithWriter(cfg.LogLevel, c.stderr)
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		log.Warn().Err(envErr).Msg("Failed to load .env file, continuing with system environment variables")
	}

	c.config = cfg
	return cfg, nil
}
