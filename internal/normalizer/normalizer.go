// Package normalizer repairs the LLM's block partition into the invariant
// the rest of the pipeline depends on: a sorted, disjoint sequence of blocks
// whose union is exactly [1..N].
package normalizer

import (
	"log/slog"
	"sort"

	"github.com/forge9/codeindex/internal/model"
)

// Report is the log-only diagnostic emitted alongside a normalization; it
// must never influence the returned blocks.
type Report struct {
	BlockCount        int
	OutOfBoundsClamps int
	GapCount          int
	GapLines          int
	OverlapCount      int
	OverlapLines      int
	RawCoveragePct    float64
}

// Normalize repairs raw into a sequence satisfying the coverage invariant
// for a file of n lines (n must be > 0). It never returns an empty slice:
// an input that reduces to nothing after clamping yields a single fallback
// block.
func Normalize(raw []model.Block, n int) ([]model.Block, Report) {
	report := Report{}

	blocks := make([]model.Block, len(raw))
	copy(blocks, raw)

	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].StartLine != blocks[j].StartLine {
			return blocks[i].StartLine < blocks[j].StartLine
		}
		return blocks[i].EndLine < blocks[j].EndLine
	})

	rawCoveredLines := 0
	clamped := blocks[:0]
	for _, b := range blocks {
		orig := b
		if b.StartLine < 1 {
			b.StartLine = 1
			report.OutOfBoundsClamps++
		}
		if b.EndLine > n {
			b.EndLine = n
			report.OutOfBoundsClamps++
		}
		if b.StartLine > b.EndLine {
			slog.Warn("normalizer dropped degenerate block after clamping",
				slog.Int("orig_start", orig.StartLine), slog.Int("orig_end", orig.EndLine))
			continue
		}
		rawCoveredLines += orig.EndLine - orig.StartLine + 1
		clamped = append(clamped, b)
	}
	if n > 0 {
		report.RawCoveragePct = 100 * float64(rawCoveredLines) / float64(n)
	}

	if len(clamped) == 0 {
		report.BlockCount = 1
		return fallback(n), report
	}

	clamped[0].StartLine = 1

	out := make([]model.Block, 0, len(clamped))
	previousEnd := 0
	for i, b := range clamped {
		if i > 0 {
			if b.StartLine > previousEnd+1 {
				gapLines := b.StartLine - (previousEnd + 1)
				midpoint := (previousEnd + b.StartLine) / 2
				out[len(out)-1].EndLine = midpoint
				b.StartLine = midpoint + 1
				report.GapCount++
				report.GapLines += gapLines
				slog.Warn("normalizer repaired gap",
					slog.Int("gap_lines", gapLines), slog.Int("midpoint", midpoint))
			} else if b.StartLine <= previousEnd {
				overlapLines := previousEnd - b.StartLine + 1
				b.StartLine = previousEnd + 1
				if b.StartLine > b.EndLine {
					report.OverlapCount++
					report.OverlapLines += overlapLines
					slog.Warn("normalizer dropped block fully consumed by overlap repair")
					continue
				}
				report.OverlapCount++
				report.OverlapLines += overlapLines
				slog.Warn("normalizer repaired overlap", slog.Int("overlap_lines", overlapLines))
			}
		}
		out = append(out, b)
		previousEnd = b.EndLine
	}

	if len(out) == 0 {
		report.BlockCount = 1
		return fallback(n), report
	}

	if out[len(out)-1].EndLine < n {
		slog.Warn("normalizer extended final block to file end",
			slog.Int("from", out[len(out)-1].EndLine), slog.Int("to", n))
		out[len(out)-1].EndLine = n
	}

	report.BlockCount = len(out)
	return out, report
}

func fallback(n int) []model.Block {
	return []model.Block{{
		StartLine: 1,
		EndLine:   n,
		Title:     model.FallbackTitle,
		Kind:      model.KindLogicBlock,
	}}
}
