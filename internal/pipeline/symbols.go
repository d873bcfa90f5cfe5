package pipeline

import (
	"context"

	"github.com/forge9/codeindex/internal/chunk"
)

// symbolHinter extracts top-level symbol names via tree-sitter ahead of a
// Split call, giving the splitter concrete names to anchor block titles on
// instead of inventing them from scratch.
type symbolHinter struct {
	registry  *chunk.LanguageRegistry
	parser    *chunk.Parser
	extractor *chunk.SymbolExtractor
}

func newSymbolHinter() *symbolHinter {
	registry := chunk.DefaultRegistry()
	return &symbolHinter{
		registry:  registry,
		parser:    chunk.NewParserWithRegistry(registry),
		extractor: chunk.NewSymbolExtractorWithRegistry(registry),
	}
}

// hints returns the top-level symbol names found in text for the given
// language, or nil if the language isn't tree-sitter-registered or the
// parse fails. Parse failures are not an error for the pipeline: the
// splitter still runs, just without symbol anchors.
func (h *symbolHinter) hints(ctx context.Context, language, text string) []string {
	if _, ok := h.registry.GetByName(language); !ok {
		return nil
	}
	tree, err := h.parser.Parse(ctx, []byte(text), language)
	if err != nil {
		return nil
	}
	symbols := h.extractor.Extract(tree, []byte(text))
	if len(symbols) == 0 {
		return nil
	}
	names := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s.Name != "" {
			names = append(names, s.Name)
		}
	}
	return names
}
