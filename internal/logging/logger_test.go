package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		name     string
		verbose  bool
		quiet    bool
		expected zapcore.Level
	}{
		{"default", false, false, zapcore.WarnLevel},
		{"verbose", true, false, zapcore.DebugLevel},
		{"quiet", false, true, zapcore.ErrorLevel},
		{"quiet wins", true, true, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Level(tt.verbose, tt.quiet); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zapcore.InfoLevel)

	logger.Debug("hidden")
	logger.Info("shown", zap.String("dir", "/tmp"))
	_ = logger.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message should be filtered: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "/tmp") {
		t.Errorf("expected info message with field, got %s", out)
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Error("expected a logger")
	}
}
