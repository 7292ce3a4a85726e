package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DEBUG,
		"INFO":    INFO,
		"warning": WARN,
		" error ": ERROR,
		"fatal":   FATAL,
		"":        INFO,
		"verbose": INFO,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, WARN)
	defer SetOutput(&bytes.Buffer{}, INFO)

	Info("hidden")
	Warn("shown", "session_id", "abc")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "shown [session_id=abc]")
	assert.Contains(t, out, "logger_test.go")
}

func TestOddFieldsAreKept(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, DEBUG)
	defer SetOutput(&bytes.Buffer{}, INFO)

	Debug("odd", "key", "value", "dangling")

	assert.Contains(t, buf.String(), "[key=value dangling]")
}
