// Package logging sets up the extension's loggers.
//
// The session logger is log/slog fanned out to file, OTel and Graylog. zerolog
// serves the storage and metrics managers and the sampled per-tick logger,
// where allocation-free logging matters.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ExtensionName prefixes log files and identifies the service in remote sinks.
const ExtensionName = "realthrust"

const fileStamp = "20060102_150405"

// LogFilePath names the log file of a session started at start.
func LogFilePath(logsDir string, start time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", ExtensionName, start.Format(fileStamp)))
}

// OpenFile creates logsDir and opens the session log file in it for
// appending. A file left by a session with the same start second is kept as
// <name>.old.
func OpenFile(logsDir string, start time.Time) (*os.File, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating logs directory: %w", err)
	}
	path := LogFilePath(logsDir, start)
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".old"); err != nil {
			return nil, fmt.Errorf("rotating %s: %w", path, err)
		}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}
