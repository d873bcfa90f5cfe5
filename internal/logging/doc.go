// Package logging provides file-based logging with rotation for CodeIndex.
// Setup writes JSON log lines to a size-rotated file (by default
// ~/.codeindex/logs/codeindex.log) and, when WriteToStderr is set, to stderr
// as well. cmd/codeindex installs it for every command, taking the level and
// the file path from its --log-level and --log-file flags.
package logging
