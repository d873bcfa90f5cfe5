package splitter

import (
	"log/slog"

	"github.com/forge9/codeindex/internal/model"
)

// EnsureNonEmpty implements the empty-array recovery path: when the model
// returns blocks == [], the caller replaces it with a single synthetic block
// spanning the whole file rather than treating it as SplitBadPayload.
func EnsureNonEmpty(blocks []model.Block, path string, lineCount int) []model.Block {
	if len(blocks) > 0 {
		return blocks
	}
	slog.Warn("split_blocks returned an empty array, using single fallback block",
		slog.String("path", path))
	return []model.Block{{
		StartLine: 1,
		EndLine:   lineCount,
		Title:     model.FallbackTitle,
		Kind:      model.KindLogicBlock,
	}}
}
