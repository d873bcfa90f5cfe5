package cmd

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/spf13/cobra"

	"github.com/forge9/codeindex/internal/retriever"
	"github.com/forge9/codeindex/internal/telemetry"
)

var (
	searchTopN       int
	searchPathPrefix string
	searchSymbols    string
	searchRerank     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [question]",
	Short: "Run one hybrid retrieval query against the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		embedder, err := openEmbedder(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = embedder.Close() }()

		var rr retriever.Reranker
		if cfg.Rerank.Enabled {
			rr = retriever.NewHTTPReranker(cfg.Rerank.Endpoint, cfg.Rerank.Model, cfg.Rerank.Timeout)
		}
		r := retriever.New(store, embedder, rr)

		var symbols []string
		if searchSymbols != "" {
			symbols = strings.Split(searchSymbols, ",")
		}

		start := time.Now()
		results, err := r.Search(ctx, retriever.Request{
			Question:    args[0],
			PathPrefix:  searchPathPrefix,
			TopN:        searchTopN,
			Symbols:     symbols,
			UseReranker: searchRerank && cfg.Rerank.Enabled,
		})
		recordQueryTelemetry(filepath.Join(cfg.Paths.SafeRoot, cfg.Store.Dir), args[0], len(results), time.Since(start))
		if err != nil {
			exitCode = 1
			return fmt.Errorf("search: %w", err)
		}

		if len(results) == 0 {
			exitCode = 1
			return fmt.Errorf("no results")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

// recordQueryTelemetry appends one local-only query event to the telemetry
// store. Failures are logged and otherwise ignored: telemetry never blocks
// or fails a search.
func recordQueryTelemetry(storeDir, query string, resultCount int, latency time.Duration) {
	db, err := sql.Open("sqlite", filepath.Join(storeDir, "telemetry.db")+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return
	}
	defer func() { _ = db.Close() }()

	if err := telemetry.InitTelemetrySchema(db); err != nil {
		return
	}
	store, err := telemetry.NewSQLiteMetricsStore(db)
	if err != nil {
		return
	}
	metrics := telemetry.NewQueryMetrics(store)
	defer func() { _ = metrics.Close() }()

	metrics.Record(telemetry.QueryEvent{
		Query:       query,
		QueryType:   telemetry.QueryTypeMixed,
		ResultCount: resultCount,
		Latency:     latency,
		Timestamp:   time.Now(),
	})
}

func init() {
	searchCmd.Flags().IntVar(&searchTopN, "top-n", 10, "number of results to return")
	searchCmd.Flags().StringVar(&searchPathPrefix, "path", "", "restrict results to this path prefix")
	searchCmd.Flags().StringVar(&searchSymbols, "symbols", "", "comma-separated symbol boost terms")
	searchCmd.Flags().BoolVar(&searchRerank, "rerank", false, "apply the cross-encoder reranker")
	rootCmd.AddCommand(searchCmd)
}
