//go:build go1.22

package telemetry

import "log/slog"

// setLogLoggerLevel sets the level of the bridge between the standard log
// package and slog. slog.SetLogLoggerLevel is only available from Go 1.22.
func setLogLoggerLevel() {
	slog.SetLogLoggerLevel(slog.LevelInfo)
}
