package errors

// Kind names the nine failure modes the pipeline and CLI distinguish when
// deciding whether to log-and-continue, abort one file, or exit the
// process. Each maps onto one of the existing numeric error codes so the
// category/severity/retryable machinery above still applies.
type Kind string

const (
	KindConfigError     Kind = "config_error"
	KindFileUnreadable  Kind = "file_unreadable"
	KindSplitNotToolUse Kind = "split_not_tool_use"
	KindSplitBadPayload Kind = "split_bad_payload"
	KindBlockDegenerate Kind = "block_degenerate"
	KindEmbedFailure    Kind = "embed_failure"
	KindStoreTransient  Kind = "store_transient"
	KindStoreConflict   Kind = "store_conflict"
	KindRetrievalEmpty  Kind = "retrieval_empty"
)

var kindCode = map[Kind]string{
	KindConfigError:     ErrCodeConfigInvalid,
	KindFileUnreadable:  ErrCodeFileNotFound,
	KindSplitNotToolUse: ErrCodeInvalidQuery,
	KindSplitBadPayload: ErrCodeInvalidInput,
	KindBlockDegenerate: ErrCodeChunkingFailed,
	KindEmbedFailure:    ErrCodeEmbeddingFailed,
	KindStoreTransient:  ErrCodeIndexFailed,
	KindStoreConflict:   ErrCodeCorruptIndex,
	KindRetrievalEmpty:  ErrCodeSearchFailed,
}

// NewKind builds a CodeIndexError for one of the nine pipeline-stage failure
// kinds, carrying path/stage context for logging.
func NewKind(kind Kind, message, path, stage string, cause error) *CodeIndexError {
	e := New(kindCode[kind], message, cause)
	e.Kind = kind
	if path != "" {
		e.WithDetail("path", path)
	}
	if stage != "" {
		e.WithDetail("stage", stage)
	}
	return e
}

// KindOf extracts the Kind from err if it is (or wraps) a CodeIndexError
// produced by NewKind, and false otherwise.
func KindOf(err error) (Kind, bool) {
	var ce *CodeIndexError
	if !As(err, &ce) {
		return "", false
	}
	return ce.Kind, ce.Kind != ""
}
