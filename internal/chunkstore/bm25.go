// Package chunkstore persists chunk documents across the three surfaces the
// retriever reads from: a Bleve BM25 index over analyzed text subfields, an
// HNSW vector index over chunk embeddings, and a SQLite table holding the
// full projectable document (everything the BM25/HNSW indexes don't carry).
package chunkstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/lang/ru"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"

	"github.com/forge9/codeindex/internal/store"
)

const (
	codeTokenizerName = "chunk_code_tokenizer"
	codeStopFilter    = "chunk_code_stop"
	codeAnalyzerName  = "chunk_code_analyzer"

	// FieldText and its language-scoped siblings are multi-match targets for
	// lexical retrieval; weights are applied at query time, not index time.
	FieldText      = "text"
	FieldTextRu    = "text.ru"
	FieldTextEn    = "text.en"
	FieldSymbols   = "symbols"
	FieldPath      = "path"
	FieldChunkID   = "chunk_id"
)

func init() {
	_ = registry.RegisterTokenizer(codeTokenizerName, codeTokenizerConstructor)
	_ = registry.RegisterTokenFilter(codeStopFilter, codeStopFilterConstructor)
}

// bleveChunkDoc is the subset of a chunk indexed for lexical search. The
// authoritative document (everything else) lives in the metadata store.
type bleveChunkDoc struct {
	Text    string   `json:"text"`
	TextRu  string   `json:"text_ru"`
	TextEn  string   `json:"text_en"`
	Path    string   `json:"path"`
	Symbols []string `json:"symbols"`
}

// BM25Index is the lexical half of the chunk store: the same text indexed
// three times under base/Russian/English analyzers, a keyword symbols field,
// and a path field queried with a prefix clause.
type BM25Index struct {
	mu    sync.RWMutex
	index bleve.Index
}

// OpenBM25Index creates or opens a Bleve index at path ("" for in-memory).
func OpenBM25Index(path string) (*BM25Index, error) {
	m, err := buildMapping()
	if err != nil {
		return nil, fmt.Errorf("build chunk index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, fmt.Errorf("create chunk index dir: %w", mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, m)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open chunk bm25 index: %w", err)
	}
	return &BM25Index{index: idx}, nil
}

func buildMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	if err := im.AddCustomAnalyzer(codeAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": codeTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			codeStopFilter,
		},
	}); err != nil {
		return nil, err
	}
	im.DefaultAnalyzer = codeAnalyzerName

	doc := bleve.NewDocumentMapping()

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = codeAnalyzerName
	doc.AddFieldMappingsAt("Text", textField)

	textRuField := bleve.NewTextFieldMapping()
	textRuField.Analyzer = ru.AnalyzerName
	doc.AddFieldMappingsAt("TextRu", textRuField)

	textEnField := bleve.NewTextFieldMapping()
	textEnField.Analyzer = en.AnalyzerName
	doc.AddFieldMappingsAt("TextEn", textEnField)

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = "keyword"
	doc.AddFieldMappingsAt("Symbols", keywordField)

	pathField := bleve.NewTextFieldMapping()
	pathField.Analyzer = "keyword"
	doc.AddFieldMappingsAt("Path", pathField)

	im.AddDocumentMapping("_default", doc)
	return im, nil
}

// Upsert indexes (or reindexes, bleve upserts by id) a chunk's lexical form.
func (b *BM25Index) Upsert(ctx context.Context, chunkID, path, text string, symbols []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := bleveChunkDoc{Text: text, TextRu: text, TextEn: text, Path: path, Symbols: symbols}
	return b.index.Index(chunkID, d)
}

// DeleteByPath removes every chunk document whose path field equals path
// exactly, the scoped-delete the incremental pipeline performs before
// rewriting a changed file's chunks.
func (b *BM25Index) DeleteByPath(ctx context.Context, path string) error {
	ids, err := b.idsForPath(path)
	if err != nil {
		return err
	}
	return b.deleteIDs(ids)
}

func (b *BM25Index) idsForPath(path string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q := bleve.NewTermQuery(path)
	q.SetField(FieldPath)
	req := bleve.NewSearchRequest(q)
	req.Size = 100000
	req.Fields = nil
	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("scoped lookup by path: %w", err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

func (b *BM25Index) deleteIDs(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return b.index.Batch(batch)
}

// WeightedHit is a single lexical retrieval hit.
type WeightedHit struct {
	ChunkID string
	Score   float64
}

// Search runs the multi-match described for §4.6: the same query against
// text/text.ru/text.en with weights 1.0/1.3/1.2, an optional should-clause
// over lowercased symbols, and an optional path-prefix filter.
func (b *BM25Index) Search(ctx context.Context, question string, symbols []string, pathPrefix string, limit int) ([]WeightedHit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if strings.TrimSpace(question) == "" {
		return nil, nil
	}

	base := bleve.NewMatchQuery(question)
	base.SetField(FieldText)
	base.SetBoost(1.0)

	ruQ := bleve.NewMatchQuery(question)
	ruQ.SetField(FieldTextRu)
	ruQ.SetBoost(1.3)

	enQ := bleve.NewMatchQuery(question)
	enQ.SetField(FieldTextEn)
	enQ.SetBoost(1.2)

	disjuncts := []bleve.Query{base, ruQ, enQ}

	if len(symbols) > 0 {
		terms := make([]bleve.Query, 0, len(symbols))
		for _, s := range symbols {
			tq := bleve.NewTermQuery(strings.ToLower(s))
			tq.SetField(FieldSymbols)
			terms = append(terms, tq)
		}
		symbolsDisjunction := bleve.NewDisjunctionQuery(terms...)
		disjuncts = append(disjuncts, symbolsDisjunction)
	}

	var q bleve.Query = bleve.NewDisjunctionQuery(disjuncts...)
	if pathPrefix != "" {
		prefix := bleve.NewPrefixQuery(pathPrefix)
		prefix.SetField(FieldPath)
		q = bleve.NewConjunctionQuery(q, prefix)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bm25 search: %w", err)
	}

	hits := make([]WeightedHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, WeightedHit{ChunkID: h.ID, Score: h.Score})
	}
	return hits, nil
}

// Close releases the underlying Bleve index.
func (b *BM25Index) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Close()
}

// codeTokenizer reuses the teacher's code-aware token splitting (camelCase,
// snake_case, identifier-boundary aware) for the base chunk text field.
type codeTokenizer struct{}

func codeTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &codeTokenizer{}, nil
}

func (t *codeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := store.TokenizeCode(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0
	for _, token := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), strings.ToLower(token))
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)
		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}
	return result
}

type codeStopFilterImpl struct {
	stopWords map[string]struct{}
}

func codeStopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &codeStopFilterImpl{stopWords: store.BuildStopWordMap(store.DefaultCodeStopWords)}, nil
}

func (f *codeStopFilterImpl) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, tok := range input {
		if _, isStop := f.stopWords[strings.ToLower(string(tok.Term))]; !isStop {
			result = append(result, tok)
		}
	}
	return result
}
