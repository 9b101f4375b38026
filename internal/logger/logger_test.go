package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]any{"user_id", 7, "email", "a@b.c", "session_token", "xyz", "dangling"})
	assert.Equal(t, []any{"user_id", 7, "email", "[REDACTED]", "session_token", "[REDACTED]", "dangling"}, got)
}

func TestNopDoesNotPanic(t *testing.T) {
	l := Nop().With("component", "test")
	l.Info("hello", "password", "hunter2")
	l.Sync()
}
