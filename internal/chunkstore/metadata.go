package chunkstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/forge9/codeindex/internal/model"
)

// MetadataStore persists the full chunk document: everything the retriever's
// fixed whitelist can project, and everything ChunkIndexer/GraphLinker need
// to read back (symbols, Q/A phrases, links). Bleve and HNSW only carry the
// slices needed for their own search, not the whole document.
type MetadataStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	chunk_id         TEXT PRIMARY KEY,
	path             TEXT NOT NULL,
	hash             TEXT NOT NULL,
	ordinal          INTEGER NOT NULL,
	chunks           INTEGER NOT NULL,
	text             TEXT NOT NULL,
	size             INTEGER NOT NULL,
	start_line       INTEGER NOT NULL,
	end_line         INTEGER NOT NULL,
	file_size        INTEGER NOT NULL,
	file_lines       INTEGER NOT NULL,
	extension        TEXT NOT NULL,
	filename         TEXT NOT NULL,
	mime             TEXT NOT NULL,
	lang             TEXT NOT NULL,
	created_at       TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL,
	llm_version      TEXT NOT NULL,
	title            TEXT NOT NULL,
	kind             TEXT NOT NULL,
	symbols_json     TEXT NOT NULL,
	graph_questions_json TEXT NOT NULL,
	graph_answers_json   TEXT NOT NULL,
	links_out_json   TEXT NOT NULL DEFAULT '[]',
	links_in_json    TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_chunks_path ON chunks(path);
`

// OpenMetadataStore opens (creating if absent) the SQLite chunk metadata
// database in WAL mode, mirroring the pragma set used for the manifest.
func OpenMetadataStore(ctx context.Context, path string) (*MetadataStore, error) {
	dsn := ":memory:"
	if path != "" {
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open chunk metadata db: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init chunk metadata schema: %w", err)
	}

	return &MetadataStore{db: db}, nil
}

// Upsert replaces a chunk document wholesale; chunks are never mutated in
// place, only replaced.
func (s *MetadataStore) Upsert(ctx context.Context, c model.Chunk) error {
	symbolsJSON, err := json.Marshal(c.Symbols)
	if err != nil {
		return fmt.Errorf("marshal symbols: %w", err)
	}
	questionsJSON, err := json.Marshal(c.GraphQuestions)
	if err != nil {
		return fmt.Errorf("marshal graph_questions: %w", err)
	}
	answersJSON, err := json.Marshal(c.GraphAnswers)
	if err != nil {
		return fmt.Errorf("marshal graph_answers: %w", err)
	}
	linksOutJSON, err := json.Marshal(c.LinksOut)
	if err != nil {
		return fmt.Errorf("marshal links_out: %w", err)
	}
	linksInJSON, err := json.Marshal(c.LinksIn)
	if err != nil {
		return fmt.Errorf("marshal links_in: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chunks (
			chunk_id, path, hash, ordinal, chunks, text, size, start_line, end_line,
			file_size, file_lines, extension, filename, mime, lang, created_at, updated_at,
			llm_version, title, kind, symbols_json, graph_questions_json, graph_answers_json,
			links_out_json, links_in_json
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			path=excluded.path, hash=excluded.hash, ordinal=excluded.ordinal, chunks=excluded.chunks,
			text=excluded.text, size=excluded.size, start_line=excluded.start_line, end_line=excluded.end_line,
			file_size=excluded.file_size, file_lines=excluded.file_lines, extension=excluded.extension,
			filename=excluded.filename, mime=excluded.mime, lang=excluded.lang,
			created_at=excluded.created_at, updated_at=excluded.updated_at, llm_version=excluded.llm_version,
			title=excluded.title, kind=excluded.kind, symbols_json=excluded.symbols_json,
			graph_questions_json=excluded.graph_questions_json, graph_answers_json=excluded.graph_answers_json,
			links_out_json=excluded.links_out_json, links_in_json=excluded.links_in_json
	`,
		c.ChunkID, c.Path, c.Hash, c.Ordinal, c.Chunks, c.Text, c.Size, c.StartLine, c.EndLine,
		c.FileSize, c.FileLines, c.Extension, c.Filename, c.MIME, c.Lang, c.CreatedAt, c.UpdatedAt,
		c.LLMVersion, c.Title, c.Kind, string(symbolsJSON), string(questionsJSON), string(answersJSON),
		string(linksOutJSON), string(linksInJSON),
	)
	if err != nil {
		return fmt.Errorf("upsert chunk %s: %w", c.ChunkID, err)
	}
	return nil
}

// UpdateLinks bulk-updates only a chunk's link lists, the operation
// GraphLinker performs after the similarity pass.
func (s *MetadataStore) UpdateLinks(ctx context.Context, chunkID string, linksOut, linksIn []model.Link) error {
	outJSON, err := json.Marshal(linksOut)
	if err != nil {
		return fmt.Errorf("marshal links_out: %w", err)
	}
	inJSON, err := json.Marshal(linksIn)
	if err != nil {
		return fmt.Errorf("marshal links_in: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE chunks SET links_out_json = ?, links_in_json = ? WHERE chunk_id = ?`,
		string(outJSON), string(inJSON), chunkID)
	if err != nil {
		return fmt.Errorf("update links for %s: %w", chunkID, err)
	}
	return nil
}

// DeleteByPath removes every chunk row for path, the scoped delete
// ChunkIndexer performs before rewriting a changed or vanished file.
func (s *MetadataStore) DeleteByPath(ctx context.Context, path string) ([]string, error) {
	ids, err := s.chunkIDsForPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE path = ?`, path); err != nil {
		return nil, fmt.Errorf("delete chunks for path %s: %w", path, err)
	}
	return ids, nil
}

func (s *MetadataStore) chunkIDsForPath(ctx context.Context, path string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chunk_id FROM chunks WHERE path = ?`, path)
	if err != nil {
		return nil, fmt.Errorf("select chunk ids for path %s: %w", path, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PathOf resolves a chunk id to its path, used by kNN's path-prefix filter.
func (s *MetadataStore) PathOf(ctx context.Context, chunkID string) (string, bool, error) {
	var path string
	err := s.db.QueryRowContext(ctx, `SELECT path FROM chunks WHERE chunk_id = ?`, chunkID).Scan(&path)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolve path for %s: %w", chunkID, err)
	}
	return path, true, nil
}

// Get loads a chunk document by id for the retriever's field-whitelist
// projection.
func (s *MetadataStore) Get(ctx context.Context, chunkID string) (model.Chunk, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT chunk_id, path, hash, ordinal, chunks, text, size, start_line, end_line,
			file_size, file_lines, extension, filename, mime, lang, created_at, updated_at,
			llm_version, title, kind, symbols_json, graph_questions_json, graph_answers_json,
			links_out_json, links_in_json
		FROM chunks WHERE chunk_id = ?`, chunkID)

	var c model.Chunk
	var symbolsJSON, questionsJSON, answersJSON, linksOutJSON, linksInJSON string
	var createdAt, updatedAt time.Time

	err := row.Scan(&c.ChunkID, &c.Path, &c.Hash, &c.Ordinal, &c.Chunks, &c.Text, &c.Size, &c.StartLine, &c.EndLine,
		&c.FileSize, &c.FileLines, &c.Extension, &c.Filename, &c.MIME, &c.Lang, &createdAt, &updatedAt,
		&c.LLMVersion, &c.Title, &c.Kind, &symbolsJSON, &questionsJSON, &answersJSON, &linksOutJSON, &linksInJSON)
	if err == sql.ErrNoRows {
		return model.Chunk{}, false, nil
	}
	if err != nil {
		return model.Chunk{}, false, fmt.Errorf("get chunk %s: %w", chunkID, err)
	}
	c.CreatedAt, c.UpdatedAt = createdAt, updatedAt

	if err := json.Unmarshal([]byte(symbolsJSON), &c.Symbols); err != nil {
		return model.Chunk{}, false, fmt.Errorf("unmarshal symbols: %w", err)
	}
	if err := json.Unmarshal([]byte(questionsJSON), &c.GraphQuestions); err != nil {
		return model.Chunk{}, false, fmt.Errorf("unmarshal graph_questions: %w", err)
	}
	if err := json.Unmarshal([]byte(answersJSON), &c.GraphAnswers); err != nil {
		return model.Chunk{}, false, fmt.Errorf("unmarshal graph_answers: %w", err)
	}
	if err := json.Unmarshal([]byte(linksOutJSON), &c.LinksOut); err != nil {
		return model.Chunk{}, false, fmt.Errorf("unmarshal links_out: %w", err)
	}
	if err := json.Unmarshal([]byte(linksInJSON), &c.LinksIn); err != nil {
		return model.Chunk{}, false, fmt.Errorf("unmarshal links_in: %w", err)
	}
	return c, true, nil
}

// AllChunkIDsAndPaths lists every currently stored (chunk_id, path) pair,
// the scan GraphLinker and the manifest-reconciliation pass use.
func (s *MetadataStore) AllChunkIDsAndPaths(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chunk_id, path FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("list chunk ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]string)
	for rows.Next() {
		var id, path string
		if err := rows.Scan(&id, &path); err != nil {
			return nil, err
		}
		out[id] = path
	}
	return out, rows.Err()
}

// AllChunks loads every stored chunk, used by GraphLinker's phrase pass.
func (s *MetadataStore) AllChunks(ctx context.Context) ([]model.Chunk, error) {
	ids, err := s.AllChunkIDsAndPaths(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Chunk, 0, len(ids))
	for id := range ids {
		c, ok, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Close closes the underlying database handle.
func (s *MetadataStore) Close() error {
	return s.db.Close()
}
