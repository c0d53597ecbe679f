package logging

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/model-viewer/internal/config"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, config.LogConfig{Level: "warn", Prefix: "test"})
	require.NoError(t, err)
	require.Equal(t, log.WarnLevel, logger.GetLevel())

	logger.Info("hidden")
	require.Empty(t, buf.String())

	logger.Warn("shown", "component", "swapchain")
	require.Contains(t, buf.String(), "shown")
	require.Contains(t, buf.String(), "swapchain")
}

func TestDefaultLevelIsInfo(t *testing.T) {
	logger, err := NewWithWriter(&bytes.Buffer{}, config.LogConfig{})
	require.NoError(t, err)
	require.Equal(t, log.InfoLevel, logger.GetLevel())
}

func TestUnknownLevel(t *testing.T) {
	_, err := NewWithWriter(&bytes.Buffer{}, config.LogConfig{Level: "chatty"})
	require.Error(t, err)
}
