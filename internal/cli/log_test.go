package cli

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerFiltersByLevel(t *testing.T) {
	tests := []struct {
		level     log.Level
		wantDebug bool
	}{
		{LogInfo, false},
		{LogDebug, true},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.level)
			logger.Debug("planning page", "page", 1)
			logger.Info("wrote front_cards.pdf")

			out := buf.String()
			assert.Contains(t, out, "wrote front_cards.pdf")
			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("planning page")), out)
		})
	}
}

func TestProgressReportsElapsed(t *testing.T) {
	var buf bytes.Buffer
	newProgress(newLogger(&buf, LogDebug)).done("Wrote 2 files")
	assert.Regexp(t, regexp.MustCompile(`Wrote 2 files \(\d+(\.\d+)?[µn]?m?s\)`), buf.String())

	buf.Reset()
	newProgress(newLogger(&buf, LogInfo)).done("Wrote 2 files")
	assert.Empty(t, buf.String(), "progress logs at debug level")
}
