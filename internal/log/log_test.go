// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"bytes"
	"errors"
	"testing"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
)

func TestCustomHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := &log.Logger{Handler: &CustomHandler{Writer: &buf}, Level: log.DebugLevel}

	logger.WithError(errors.New("disk full")).WithField("ns", "precache-v1").Warn("store failed")

	line := buf.String()
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} W store failed`, line)
	assert.Contains(t, line, "error=disk full")
	assert.Contains(t, line, "ns=precache-v1")
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))
}

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() { InitLogger("") })

	InitLogger("debug")
	assert.Equal(t, log.DebugLevel, log.Log.(*log.Logger).Level)

	InitLogger("")
	assert.Equal(t, log.ErrorLevel, log.Log.(*log.Logger).Level)

	InitLogger("nonsense")
	assert.Equal(t, log.ErrorLevel, log.Log.(*log.Logger).Level)
}
