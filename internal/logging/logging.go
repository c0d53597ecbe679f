package logging

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/model-viewer/internal/config"
)

// New builds the process logger. Components receive it explicitly and derive
// their own with logger.With("component", ...).
func New(cfg config.LogConfig) (*log.Logger, error) {
	return NewWithWriter(os.Stderr, cfg)
}

func NewWithWriter(w io.Writer, cfg config.LogConfig) (*log.Logger, error) {
	level := log.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = log.ParseLevel(cfg.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "logging: level %q", cfg.Level)
		}
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportCaller:    level == log.DebugLevel,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          cfg.Prefix,
		Level:           level,
	})

	return logger, nil
}
