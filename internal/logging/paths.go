package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.codeindex/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".codeindex", "logs")
	}
	return filepath.Join(home, ".codeindex", "logs")
}

// DefaultLogPath returns the default log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "codeindex.log")
}

// LogSource represents the source of logs to view. There is only one
// writer process (the codeindex CLI itself), but the type is kept so a
// future log source can be added without changing FindLogFileBySource's
// signature.
type LogSource string

// LogSourceDefault is the only log source this module writes.
const LogSourceDefault LogSource = "codeindex"

// FindLogFile attempts to find the log file for viewing.
// Priority:
// 1. Explicit path (if provided)
// 2. ~/.codeindex/logs/codeindex.log (global)
//
// Returns an error if no log file is found.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	globalPath := DefaultLogPath()
	if _, err := os.Stat(globalPath); err == nil {
		return globalPath, nil
	}

	return "", fmt.Errorf("no log file found. Run a build or watch first.\nExpected at: %s", globalPath)
}

// FindLogFileBySource finds the log file for the given source.
func FindLogFileBySource(source LogSource, explicit string) ([]string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return []string{explicit}, nil
		}
		return nil, fmt.Errorf("log file not found: %s", explicit)
	}

	path := DefaultLogPath()
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no log file found at %s.\n%s", path, getLogHint())
	}
	return []string{path}, nil
}

// ParseLogSource parses a string into a LogSource. Any value other than
// the default is rejected by the caller before reaching here.
func ParseLogSource(s string) LogSource {
	return LogSourceDefault
}

// EnsureLogDir creates the log directory if it doesn't exist.
func EnsureLogDir() error {
	dir := DefaultLogDir()
	return os.MkdirAll(dir, 0o755)
}

func getLogHint() string {
	return "To generate logs:\n  codeindex build\n  codeindex watch"
}
