package main

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/edopalomino/generate-startupcafe/pkg/config"
	"github.com/edopalomino/generate-startupcafe/pkg/logging"
)

type commandContext struct {
	configFlag *string
	stderr     io.Writer

	configOnce sync.Once
	config     config.Config
	logger     *logrus.Logger
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, stderr: os.Stderr}
}

// ensureConfig loads the configuration and builds the logger once per process.
func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		logger, err := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: c.stderr,
		})
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.configErr
}

func (c *commandContext) log() logrus.FieldLogger {
	if c.logger == nil {
		return logging.Discard()
	}
	return c.logger
}
