package splitter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	cierrors "github.com/forge9/codeindex/internal/errors"
	"github.com/forge9/codeindex/internal/model"
)

// toolName is the single tool this package's system prompt instructs the
// model to call.
const toolName = "split_blocks"

// systemPrompt instructs the model to cover [1..N] without gaps or overlaps,
// per the external interface contract. It is declared cacheable: the same
// prompt is sent on every call regardless of which file is being split, so
// prompt caching turns repeated invocations into a cache hit on this block.
const systemPrompt = `You partition source files into logical blocks for a code search index.

Given the full text of a file (with 1-indexed line numbers implied by line
position) and its detected language, call the ` + toolName + ` tool exactly
once with an array of blocks covering every line from 1 to N (N = the file's
line count) with no gaps and no overlaps.

Each block needs:
- start_line, end_line: 1-indexed, inclusive, covering a coherent unit
  (a function, a class, a documentation section, a config stanza...).
- title: a short human-readable label (1-120 characters).
- kind: one of function, class, section, paragraph, list, list_item, table,
  code, config, or logic_block if nothing else fits.
- symbols: up to 20 identifiers defined or referenced in the block.
- graph_questions: 2-5 short questions this block answers.
- graph_answers: 2-5 short answers this block gives, phrased as answers,
  not restatements of the questions.

Always call the tool. Never answer in plain text.`

// anthropicToolSchema is blocksSchema written out as a Go map, top-level
// object included, and passed as the tool's input_schema; the returned
// payload is checked against blocksSchema itself by validateBlocksPayload.
var anthropicToolSchema = map[string]any{
	"type":     "object",
	"required": []string{"blocks"},
	"properties": map[string]any{
		"blocks": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"start_line", "end_line", "title", "kind"},
				"properties": map[string]any{
					"start_line":      map[string]any{"type": "integer", "minimum": 1},
					"end_line":        map[string]any{"type": "integer", "minimum": 1},
					"title":           map[string]any{"type": "string", "minLength": 1, "maxLength": 120},
					"kind":            map[string]any{"type": "string", "minLength": 1, "maxLength": 32},
					"symbols":         map[string]any{"type": "array", "maxItems": 20, "items": map[string]any{"type": "string"}},
					"graph_questions": map[string]any{"type": "array", "minItems": 2, "maxItems": 5, "items": map[string]any{"type": "string"}},
					"graph_answers":   map[string]any{"type": "array", "minItems": 2, "maxItems": 5, "items": map[string]any{"type": "string"}},
				},
			},
		},
	},
}

// AnthropicSplitter implements Splitter via a tool-calling Anthropic model.
type AnthropicSplitter struct {
	client  *anthropic.Client
	model   string
	breaker *cierrors.CircuitBreaker
}

var _ Splitter = (*AnthropicSplitter)(nil)
var _ ModelVersion = (*AnthropicSplitter)(nil)

// NewAnthropicSplitter constructs a splitter against the given model id,
// authenticated with apiKey (the ANTHROPIC_API_KEY env var's value). Calls
// trip a circuit breaker after 5 consecutive failures and stay open for 30s,
// the same defaults as the embedder and reranker collaborators.
func NewAnthropicSplitter(apiKey, modelID string) *AnthropicSplitter {
	return &AnthropicSplitter{
		client:  anthropic.NewClient(apiKey),
		model:   modelID,
		breaker: cierrors.NewCircuitBreaker("splitter"),
	}
}

// ModelVersion returns the model id, stored per chunk as llm_version.
func (a *AnthropicSplitter) ModelVersion() string {
	return a.model
}

type blocksPayload struct {
	Blocks []blockPayload `json:"blocks"`
}

type blockPayload struct {
	StartLine      int      `json:"start_line"`
	EndLine        int      `json:"end_line"`
	Title          string   `json:"title"`
	Kind           string   `json:"kind"`
	Symbols        []string `json:"symbols"`
	GraphQuestions []string `json:"graph_questions"`
	GraphAnswers   []string `json:"graph_answers"`
}

// Split sends the file text to the model with the split_blocks tool
// declared, both the system prompt and the file text marked cacheable, and
// parses the single expected tool call.
func (a *AnthropicSplitter) Split(ctx context.Context, req Request) ([]model.Block, error) {
	userText := fmt.Sprintf("Language: %s\nPath: %s\n\n%s", req.LanguageHint, req.RelativePath, req.FileText)
	if len(req.SymbolHints) > 0 {
		userText = fmt.Sprintf("Language: %s\nPath: %s\nKnown top-level symbols: %s\n\n%s",
			req.LanguageHint, req.RelativePath, strings.Join(req.SymbolHints, ", "), req.FileText)
	}

	userContent := anthropic.NewTextMessageContent(userText)
	userContent.CacheControl = &anthropic.MessageCacheControl{Type: anthropic.CacheControlTypeEphemeral}

	apiReq := anthropic.MessagesRequest{
		Model: anthropic.Model(a.model),
		MultiSystem: []anthropic.MessageSystemPart{
			{Type: "text", Text: systemPrompt, CacheControl: &anthropic.MessageCacheControl{Type: anthropic.CacheControlTypeEphemeral}},
		},
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					userContent,
				},
			},
		},
		Tools: []anthropic.ToolDefinition{
			{
				Name:        toolName,
				Description: "Report the file's logical block partition.",
				InputSchema: anthropicToolSchema,
			},
		},
		MaxTokens: 8192,
	}

	var resp anthropic.MessagesResponse
	callErr := a.breaker.Execute(func() error {
		var err error
		resp, err = a.client.CreateMessages(ctx, apiReq)
		return err
	})
	if callErr != nil {
		return nil, fmt.Errorf("split_blocks call: %w", callErr)
	}

	var toolInput json.RawMessage
	for _, block := range resp.Content {
		if block.Type == "tool_use" && block.MessageContentToolUse != nil && block.Name == toolName {
			toolInput = block.Input
			break
		}
	}
	if toolInput == nil {
		return nil, cierrors.NewKind(cierrors.KindSplitNotToolUse, "model response contained no tool call", req.RelativePath, "splitting", ErrNotToolUse)
	}

	if err := validateBlocksPayload(toolInput); err != nil {
		return nil, cierrors.NewKind(cierrors.KindSplitBadPayload, "blocks payload failed schema validation", req.RelativePath, "splitting", err)
	}

	var payload blocksPayload
	if err := json.Unmarshal(toolInput, &payload); err != nil {
		return nil, cierrors.NewKind(cierrors.KindSplitBadPayload, "blocks payload failed to decode", req.RelativePath, "splitting", fmt.Errorf("%w: %v", ErrBadPayload, err))
	}

	blocks := make([]model.Block, 0, len(payload.Blocks))
	for _, b := range payload.Blocks {
		blocks = append(blocks, model.Block{
			StartLine:      b.StartLine,
			EndLine:        b.EndLine,
			Title:          b.Title,
			Kind:           b.Kind,
			Symbols:        b.Symbols,
			GraphQuestions: b.GraphQuestions,
			GraphAnswers:   b.GraphAnswers,
		})
	}
	return blocks, nil
}
