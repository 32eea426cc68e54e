package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"trace", zerolog.TraceLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_LevelApplied(t *testing.T) {
	logger := New(&Config{Level: "warn", Output: "discard"})
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestSetDefault(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	SetDefault(Nop())
	assert.Equal(t, zerolog.Disabled, Default().GetLevel())
}
