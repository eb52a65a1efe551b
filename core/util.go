package core

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	LevelTrace slog.Level = slog.LevelInfo + 1
)

func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// LogState emits the register file and flags at debug level.
func LogState(c *Core) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	args := []any{"Core", c.Name(), "Flags", c.state.Flags.String()}
	for _, r := range c.state.Regs.Changed() {
		args = append(args, r.Name(), fmt.Sprintf("0x%04x", c.state.Regs.Read(r)))
	}

	slog.Debug("State", args...)
}
