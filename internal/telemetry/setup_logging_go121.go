//go:build !go1.22

package telemetry

// setLogLoggerLevel is a no-op on Go <1.22, where slog.SetLogLoggerLevel
// does not exist; the log-to-slog bridge already defaults to LevelInfo.
func setLogLoggerLevel() {}
