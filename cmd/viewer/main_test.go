package main

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/model-viewer/internal/config"
	"github.com/vkngwrapper/model-viewer/internal/logging"
)

func TestReportLogsErrorWithDetail(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWithWriter(&buf, config.LogConfig{Level: "info", Prefix: "viewer"})
	require.NoError(t, err)

	report(logger, errors.Wrap(errors.New("no suitable device"), "device context"))

	out := buf.String()
	require.Contains(t, out, "ERRO")
	require.Contains(t, out, "device context: no suitable device")
	// %+v carries the stack of the wrapped error.
	require.Contains(t, out, "TestReportLogsErrorWithDetail")
}
