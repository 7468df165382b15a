package logger

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_Scoping(t *testing.T) {
	log := New("syncController").File("sync_controller").Function("SyncResults")

	assert.Equal(t, "syncController", log.name)
	assert.Equal(t, "sync_controller", log.file)
	assert.Equal(t, "SyncResults", log.function)

	other := log.Function("SyncSubjects")
	assert.Equal(t, "SyncResults", log.function, "scoping must not mutate the receiver")
	assert.Equal(t, "SyncSubjects", other.function)
}

func TestLogger_ErrorReturnsMessage(t *testing.T) {
	log := New("test")

	err := log.Error("database path is empty", "dbPath", "")
	assert.EqualError(t, err, "database path is empty")

	assert.EqualError(t, log.ErrMsg("nil check failed"), "nil check failed")
}

func TestLogger_ErrWrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := New("test").Err("failed to upsert", cause, "ulid", "R1")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to upsert: disk full", err.Error())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestLogger_ZeroValueIsUsable(t *testing.T) {
	var log Logger
	assert.NotPanics(t, func() {
		log.Info("zero logger")
		log.Er("zero logger error", errors.New("x"))
	})
}

func TestSetLevel_AppliesToExistingLoggers(t *testing.T) {
	_ = New("early")
	defer SetLevel("info")

	SetLevel("debug")
	assert.Equal(t, slog.LevelDebug, level.Level())

	SetLevel("warning")
	assert.Equal(t, slog.LevelWarn, level.Level())
}
