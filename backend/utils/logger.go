package utils

import (
	"io"
	"log"
	"os"
)

// LoggerConfig tweaks the process logger.
type LoggerConfig struct {
	// Output stream (defaults to os.Stdout).
	Output io.Writer
	// EnableColors colours the prefix for terminal output.
	EnableColors bool
}

// InitLogger builds the process-wide logger.
func InitLogger(config ...LoggerConfig) *log.Logger {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	prefix := "[Training Platform] "
	if cfg.EnableColors {
		prefix = "\033[36m" + prefix + "\033[0m"
	}

	return log.New(cfg.Output, prefix, log.LstdFlags|log.LUTC)
}
