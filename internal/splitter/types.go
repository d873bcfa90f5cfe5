// Package splitter partitions a file's text into logical blocks by invoking
// a remote tool-calling LLM with the split_blocks tool contract.
package splitter

import (
	"context"

	"github.com/forge9/codeindex/internal/model"
)

// Request is the input contract for Split.
type Request struct {
	FileText     string
	LanguageHint string
	RelativePath string

	// SymbolHints are top-level symbol names extracted by a language parser
	// ahead of the call, passed through so the splitter can anchor block
	// titles/boundaries on names it would otherwise have to guess at.
	SymbolHints []string
}

// Splitter partitions a file into an ordered array of raw (unnormalized)
// blocks. Implementations must not retry internally: a failed call returns
// an error (ErrNotToolUse / ErrBadPayload when the response carries no valid
// tool call) and the caller leaves the file's manifest row untouched so a
// later run naturally retries it.
type Splitter interface {
	Split(ctx context.Context, req Request) ([]model.Block, error)
}

// ModelVersion reports the LLM model identifier in use, stored on every
// chunk produced from blocks this Splitter returns.
type ModelVersion interface {
	ModelVersion() string
}
