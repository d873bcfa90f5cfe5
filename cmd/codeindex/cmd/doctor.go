package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/forge9/codeindex/internal/preflight"
	"github.com/forge9/codeindex/internal/retriever"
)

var (
	stylePass = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleFail = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type checkResult struct {
	name string
	ok   bool
	note string
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run startup health checks before a build",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		results := []checkResult{
			checkIgnoreFile(),
			checkAPIKey(),
			checkEmbedder(ctx),
			checkStoreWritable(),
		}
		if cfg.Rerank.Enabled {
			results = append(results, checkReranker(ctx))
		}
		results = append(results, checkHostEnvironment(cfg.Paths.SafeRoot)...)

		failed := 0
		for _, r := range results {
			mark := stylePass.Render("PASS")
			if !r.ok {
				mark = styleFail.Render("FAIL")
				failed++
			}
			fmt.Printf("[%s] %-24s %s\n", mark, r.name, r.note)
		}
		if failed > 0 {
			exitCode = 1
			return fmt.Errorf("%d check(s) failed", failed)
		}
		return nil
	},
}

func checkIgnoreFile() checkResult {
	path := filepath.Join(cfg.Paths.SafeRoot, cfg.Paths.IgnoreFile)
	if _, err := os.Stat(path); err != nil {
		return checkResult{"ignore file", false, fmt.Sprintf("%s not found", path)}
	}
	return checkResult{"ignore file", true, path}
}

func checkAPIKey() checkResult {
	if cfg.AnthropicAPIKey() == "" {
		return checkResult{"anthropic api key", false, fmt.Sprintf("%s not set", cfg.LLM.APIKeyEnv)}
	}
	return checkResult{"anthropic api key", true, "set"}
}

func checkEmbedder(ctx context.Context) checkResult {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	e, err := openEmbedder(ctx, cfg)
	if err != nil {
		exitCode = 0
		return checkResult{"embedding service", false, err.Error()}
	}
	defer func() { _ = e.Close() }()
	return checkResult{"embedding service", true, fmt.Sprintf("%s, dim=%d", e.ModelName(), e.Dimensions())}
}

func checkStoreWritable() checkResult {
	storeDir := filepath.Join(cfg.Paths.SafeRoot, cfg.Store.Dir)
	if err := os.MkdirAll(storeDir, 0o755); err != nil {
		return checkResult{"store directory", false, err.Error()}
	}
	return checkResult{"store directory", true, storeDir}
}

func checkReranker(ctx context.Context) checkResult {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rr := retriever.NewHTTPReranker(cfg.Rerank.Endpoint, cfg.Rerank.Model, cfg.Rerank.Timeout)
	if !rr.Available(ctx) {
		return checkResult{"reranker service", false, fmt.Sprintf("%s unreachable", cfg.Rerank.Endpoint)}
	}
	return checkResult{"reranker service", true, cfg.Rerank.Endpoint}
}

// checkHostEnvironment runs the disk/memory/fd/write-permission checks that
// don't depend on any remote collaborator.
func checkHostEnvironment(projectPath string) []checkResult {
	checker := preflight.New()
	var out []checkResult
	for _, r := range checker.RunAll(context.Background(), projectPath) {
		out = append(out, checkResult{name: r.Name, ok: r.Status != preflight.StatusFail, note: r.Message})
	}
	return out
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
