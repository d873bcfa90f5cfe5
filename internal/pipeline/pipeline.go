// Package pipeline is the single orchestrator tying scanning, splitting,
// normalization, embedding, and chunk writes into one ordered sequence per
// file. It holds every collaborator as a value on the Pipeline struct; no
// package-level mutable state exists anywhere in the pipeline.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/forge9/codeindex/internal/chunkindexer"
	"github.com/forge9/codeindex/internal/chunkstore"
	"github.com/forge9/codeindex/internal/embedclient"
	"github.com/forge9/codeindex/internal/manifeststore"
	"github.com/forge9/codeindex/internal/model"
	"github.com/forge9/codeindex/internal/scanner"
	"github.com/forge9/codeindex/internal/splitter"
	"github.com/forge9/codeindex/internal/ui"
)

// Pipeline is the context value described by the design note: every client
// and piece of read-mostly state the stages need, passed explicitly rather
// than reached for as a global.
type Pipeline struct {
	Scanner  *scanner.Scanner
	Manifest *manifeststore.Store
	Splitter splitter.Splitter
	Store    *chunkstore.Store
	Indexer  *chunkindexer.Indexer
	Embedder embedclient.Embedder

	RootDir string

	// Progress, if set, is called after every scanned file with its current
	// stage. It must not block; callers hand it a renderer's UpdateProgress.
	Progress func(ui.ProgressEvent)

	symbols *symbolHinter
}

func (p *Pipeline) report(stage ui.Stage, current int, path string) {
	if p.Progress == nil {
		return
	}
	p.Progress(ui.ProgressEvent{Stage: stage, Current: current, CurrentFile: path})
}

// Stats summarizes one Build run for the CLI to report.
type Stats struct {
	Scanned   int
	Skipped   int
	Indexed   int
	Deleted   int
	Failed    int
	ChunksNew int
}

// Build runs the pipeline end-to-end over RootDir: scan, and for every
// observed file apply the incremental semantics from §4.5, then tombstone
// any manifest entry whose path was not observed this run.
func (p *Pipeline) Build(ctx context.Context) (Stats, error) {
	stats := Stats{}
	observed := make(map[string]struct{})

	entries := p.Scanner.Scan(ctx, scanner.Options{RootDir: p.RootDir})
	for entry := range entries {
		stats.Scanned++
		p.report(ui.StageScanning, stats.Scanned, entry.File.Path)

		if entry.Err != nil {
			slog.Warn("skipping unreadable file", slog.String("error", entry.Err.Error()))
			stats.Failed++
			continue
		}

		if entry.Ignored {
			if err := p.handleDisappeared(ctx, entry.File.Path); err != nil {
				return stats, err
			}
			continue
		}

		observed[entry.File.Path] = struct{}{}

		storedHash, exists, err := p.manifestHash(ctx, entry.File.Path)
		if err != nil {
			return stats, err
		}
		if exists && storedHash == entry.File.Hash {
			stats.Skipped++
			continue
		}

		n, err := p.indexOneFile(ctx, entry.File)
		if err != nil {
			slog.Error("indexing failed, manifest left untouched", slog.String("path", entry.File.Path), slog.String("error", err.Error()))
			stats.Failed++
			continue
		}
		stats.Indexed++
		stats.ChunksNew += n
		p.report(ui.StageIndexing, stats.Indexed, entry.File.Path)
	}

	deleted, err := p.tombstoneUnobserved(ctx, observed)
	if err != nil {
		return stats, err
	}
	stats.Deleted += deleted

	p.report(ui.StageComplete, stats.Indexed, "")
	return stats, nil
}

func (p *Pipeline) manifestHash(ctx context.Context, path string) (string, bool, error) {
	entry, ok, err := p.Manifest.Get(ctx, path)
	if err != nil {
		return "", false, fmt.Errorf("read manifest entry for %s: %w", path, err)
	}
	return entry.Hash, ok, nil
}

// handleDisappeared implements the "current_hash is nil (ignored or
// deleted) and a stored hash exists" branch: delete chunks and the manifest
// row, no-op if nothing was indexed.
func (p *Pipeline) handleDisappeared(ctx context.Context, path string) error {
	_, exists, err := p.manifestHash(ctx, path)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := p.Indexer.DeletePath(ctx, path); err != nil {
		return fmt.Errorf("delete chunks for ignored path %s: %w", path, err)
	}
	if err := p.Manifest.Delete(ctx, path); err != nil {
		return fmt.Errorf("delete manifest entry for %s: %w", path, err)
	}
	return nil
}

// indexOneFile runs split → normalize → embed-per-block → bulk-write →
// manifest-upsert, strictly ordered, for one new-or-changed file. The
// manifest is upserted only after every chunk write for this path is
// durable.
func (p *Pipeline) indexOneFile(ctx context.Context, file model.File) (int, error) {
	text, err := p.readFile(file.Path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", file.Path, err)
	}
	lines := splitLines(text)

	p.report(ui.StageSplitting, 0, file.Path)
	if p.symbols == nil {
		p.symbols = newSymbolHinter()
	}
	req := splitter.Request{
		FileText:     text,
		LanguageHint: file.Language,
		RelativePath: file.Path,
		SymbolHints:  p.symbols.hints(ctx, file.Language, text),
	}
	blocks, err := p.Splitter.Split(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("split %s: %w", file.Path, err)
	}
	blocks = splitter.EnsureNonEmpty(blocks, file.Path, file.Lines)

	normalized, report := normalize(blocks, file.Lines)
	slog.Debug("normalized blocks",
		slog.String("path", file.Path), slog.Int("block_count", report.BlockCount),
		slog.Int("gap_count", report.GapCount), slog.Int("overlap_count", report.OverlapCount))

	llmVersion := ""
	if v, ok := p.Splitter.(splitter.ModelVersion); ok {
		llmVersion = v.ModelVersion()
	}

	p.report(ui.StageEmbedding, 0, file.Path)
	n, err := p.Indexer.IndexFile(ctx, file, normalized, lines, llmVersion)
	if err != nil {
		return 0, err
	}

	if err := p.Manifest.Upsert(ctx, file.Path, file.Hash, nowUTC()); err != nil {
		return n, fmt.Errorf("upsert manifest for %s: %w", file.Path, err)
	}
	return n, nil
}

// tombstoneUnobserved deletes every manifest entry (and its chunks) whose
// path was not seen in this scan.
func (p *Pipeline) tombstoneUnobserved(ctx context.Context, observed map[string]struct{}) (int, error) {
	all, err := p.Manifest.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list manifest for tombstoning: %w", err)
	}
	deleted := 0
	for path := range all {
		if _, ok := observed[path]; ok {
			continue
		}
		if err := p.Indexer.DeletePath(ctx, path); err != nil {
			return deleted, fmt.Errorf("tombstone chunks for %s: %w", path, err)
		}
		if err := p.Manifest.Delete(ctx, path); err != nil {
			return deleted, fmt.Errorf("tombstone manifest entry for %s: %w", path, err)
		}
		deleted++
	}
	return deleted, nil
}

func splitLines(text string) []string {
	return strings.Split(text, "\n")
}
