package splitter

import "errors"

// ErrNotToolUse is returned when the LLM response contains no tool call at
// all (it answered in plain text instead of invoking split_blocks).
var ErrNotToolUse = errors.New("split_blocks: response contained no tool call")

// ErrBadPayload is returned when the tool call's "blocks" argument failed
// schema validation (not an array, or an element missing a required field).
var ErrBadPayload = errors.New("split_blocks: blocks payload failed schema validation")
