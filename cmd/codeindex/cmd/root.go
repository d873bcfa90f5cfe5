// Package cmd implements the codeindex CLI: build, graph-link, search,
// doctor, stats, status, watch, and version subcommands over one project's
// index.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/forge9/codeindex/internal/config"
	"github.com/forge9/codeindex/internal/logging"
	"github.com/forge9/codeindex/internal/profiling"
)

var (
	configPath string
	cfg        config.Config

	cpuProfilePath string
	memProfilePath string
	profiler       = profiling.NewProfiler()
	stopCPUProfile func()

	logLevel    string
	logFilePath string
	stopLogging func()
)

// exitCode is set by a subcommand's RunE to request a specific process
// exit code from main(), distinct from cobra's own "error -> exit 1".
var exitCode int

var rootCmd = &cobra.Command{
	Use:   "codeindex",
	Short: "Code-aware retrieval index builder and hybrid search service",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logCfg := logging.DefaultConfig()
		logCfg.Level = logLevel
		if logFilePath != "" {
			logCfg.FilePath = logFilePath
		}
		logger, cleanup, err := logging.Setup(logCfg)
		if err != nil {
			exitCode = 1
			return fmt.Errorf("setup logging: %w", err)
		}
		slog.SetDefault(logger)
		stopLogging = cleanup

		loaded, err := config.Load(configPath)
		if err != nil {
			exitCode = 1
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded

		if cpuProfilePath != "" {
			stop, err := profiler.StartCPU(cpuProfilePath)
			if err != nil {
				exitCode = 1
				return fmt.Errorf("start cpu profile: %w", err)
			}
			stopCPUProfile = stop
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if stopCPUProfile != nil {
			stopCPUProfile()
		}
		if memProfilePath != "" {
			if err := profiler.WriteHeap(memProfilePath); err != nil {
				return fmt.Errorf("write heap profile: %w", err)
			}
		}
		if stopLogging != nil {
			stopLogging()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".codeindex.yaml", "project config file")
	rootCmd.PersistentFlags().StringVar(&cpuProfilePath, "cpuprofile", "", "write a CPU profile to this path")
	rootCmd.PersistentFlags().StringVar(&memProfilePath, "memprofile", "", "write a heap profile to this path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFilePath, "log-file", "", "override the default rotating log file path")
}

// Execute runs the root command. Callers should exit with ExitCode() after
// a non-nil return, and 0 otherwise.
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode reports the process exit code requested by whichever subcommand
// ran: 2 for a fatal dimension mismatch or missing ignore file, 1 for any
// other error, 0 on success.
func ExitCode() int {
	return exitCode
}
