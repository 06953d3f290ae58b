package logging

import (
	"context"

	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

// NopLogger discards every message. Action and plan tests pass one in
// wherever a ports.Logger is required but the test only cares about
// state transitions, not log output.
type NopLogger struct {
	level ports.Level
}

func NewNopLogger() *NopLogger {
	return &NopLogger{level: ports.LevelInfo}
}

func (l *NopLogger) Debug(_ context.Context, _ string, _ ...ports.Field) {}
func (l *NopLogger) Info(_ context.Context, _ string, _ ...ports.Field)  {}
func (l *NopLogger) Warn(_ context.Context, _ string, _ ...ports.Field)  {}
func (l *NopLogger) Error(_ context.Context, _ string, _ ...ports.Field) {}

// With returns l unchanged: a discarding logger has no fields to carry.
func (l *NopLogger) With(_ ...ports.Field) ports.Logger { return l }

func (l *NopLogger) Level() ports.Level { return l.level }

func (l *NopLogger) SetLevel(level ports.Level) { l.level = level }

var _ ports.Logger = (*NopLogger)(nil)
