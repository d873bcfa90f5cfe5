package splitter

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// blocksSchema is the JSON schema for the split_blocks tool's single
// argument, per the external interface contract: an array of Block objects
// with start_line/end_line >= 1, title 1-120 chars, kind 1-32 chars, at most
// 20 symbols, and 2-5 graph question/answer phrases each.
const blocksSchema = `{
  "type": "object",
  "required": ["blocks"],
  "properties": {
    "blocks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["start_line", "end_line", "title", "kind"],
        "properties": {
          "start_line": {"type": "integer", "minimum": 1},
          "end_line": {"type": "integer", "minimum": 1},
          "title": {"type": "string", "minLength": 1, "maxLength": 120},
          "kind": {"type": "string", "minLength": 1, "maxLength": 32},
          "symbols": {
            "type": "array",
            "maxItems": 20,
            "items": {"type": "string"}
          },
          "graph_questions": {
            "type": "array",
            "minItems": 2,
            "maxItems": 5,
            "items": {"type": "string"}
          },
          "graph_answers": {
            "type": "array",
            "minItems": 2,
            "maxItems": 5,
            "items": {"type": "string"}
          }
        }
      }
    }
  }
}`

var blocksSchemaLoader = gojsonschema.NewStringLoader(blocksSchema)

// validateBlocksPayload checks raw (the tool call's input JSON) against
// blocksSchema. It returns ErrBadPayload, wrapped with the first validation
// failure, on any violation -- including "blocks" not being present or not
// being an array, which the spec calls out as the canonical SplitBadPayload
// trigger.
func validateBlocksPayload(raw json.RawMessage) error {
	result, err := gojsonschema.Validate(blocksSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if !result.Valid() {
		if len(result.Errors()) > 0 {
			return fmt.Errorf("%w: %s", ErrBadPayload, result.Errors()[0].String())
		}
		return ErrBadPayload
	}
	return nil
}
