package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestNew_LevelParsing(t *testing.T) {
	cases := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tc := range cases {
		New(Config{Level: tc.level})
		assert.Equal(t, tc.want, zerolog.GlobalLevel(), "level %q", tc.level)
	}
}

func TestSetGlobalLogger(t *testing.T) {
	previous := log.Logger
	defer SetGlobalLogger(previous)

	custom := New(Config{Level: "info"}).With().Str("component", "test").Logger()
	SetGlobalLogger(custom)

	assert.Equal(t, custom, log.Logger)
}
