package observability

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"DEBUG", zap.DebugLevel},
		{"debug", zap.DebugLevel},
		{" warn ", zap.WarnLevel},
		{"ERROR", zap.ErrorLevel},
		{"INFO", zap.InfoLevel},
		{"", zap.InfoLevel},
		{"bogus", zap.InfoLevel},
	}
	for _, tc := range tests {
		if got := parseLogLevel(tc.input).Level(); got != tc.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Info("test entry")
}
