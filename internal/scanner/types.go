// Package scanner walks a repository root and yields one entry per regular
// file: a model.File with its content fingerprint, or an Ignored entry with a
// nil fingerprint for a file the ignore specification excludes. Files under
// an ignored directory are not yielded at all: the walk skips the directory.
package scanner

import "github.com/forge9/codeindex/internal/model"

// Entry is one yielded scan result. Fingerprint is the zero value (File.Hash
// == "") when Ignored is true.
type Entry struct {
	File    model.File
	Ignored bool
	Err     error
}

// Options configures a Scan call.
type Options struct {
	// RootDir is the directory to walk. Defaults to ".".
	RootDir string

	// IgnoreFile is not read by Scan: the ignore specification in effect is
	// the one the Scanner loaded in New, matched against the
	// POSIX-normalized path relative to RootDir.
	IgnoreFile string

	// Workers bounds the number of files read and hashed concurrently.
	// Defaults to runtime.NumCPU().
	Workers int

	// MaxFileSize skips (as unreadable, not ignored) files larger than this
	// many bytes. Zero means DefaultMaxFileSize.
	MaxFileSize int64
}

// DefaultMaxFileSize is applied when Options.MaxFileSize is zero.
const DefaultMaxFileSize = 10 * 1024 * 1024

// languageMap maps file extensions and well-known basenames to a language
// identifier. Mirrors the extension table a scanner needs to derive
// File.Language and File.MIME without shelling out to `file`.
var languageMap = map[string]string{
	".go": "go",

	".js": "javascript", ".jsx": "javascript", ".mjs": "javascript",
	".ts": "typescript", ".tsx": "typescript",

	".py": "python", ".pyw": "python", ".pyi": "python",

	".html": "html", ".htm": "html",
	".css": "css", ".scss": "scss", ".sass": "sass", ".less": "less",

	".json": "json", ".yaml": "yaml", ".yml": "yaml", ".toml": "toml",
	".xml": "xml", ".ini": "ini", ".conf": "config", ".properties": "properties",

	".md": "markdown", ".mdx": "markdown", ".markdown": "markdown",
	".rst": "rst", ".txt": "text",

	".sh": "shell", ".bash": "shell", ".zsh": "shell", ".fish": "fish",

	".rb": "ruby", ".rake": "ruby", ".erb": "erb",
	".rs": "rust",
	".java": "java", ".kt": "kotlin", ".kts": "kotlin",
	".c": "c", ".h": "c", ".cpp": "cpp", ".hpp": "cpp", ".cc": "cpp", ".cxx": "cpp",
	".cs":    "csharp",
	".swift": "swift",
	".php":   "php",
	".scala": "scala",
	".ex":    "elixir", ".exs": "elixir", ".erl": "erlang",
	".hs":  "haskell",
	".lua": "lua",
	".r":   "r", ".R": "r",
	".sql": "sql",

	"Dockerfile":  "dockerfile",
	"Makefile":    "makefile",
	"makefile":    "makefile",
	"GNUmakefile": "makefile",

	".vue": "vue", ".svelte": "svelte",
	".graphql": "graphql", ".gql": "graphql",
	".proto": "protobuf",
}

// mimeMap maps a language identifier to a best-effort MIME type.
var mimeMap = map[string]string{
	"go": "text/x-go", "javascript": "text/javascript", "typescript": "text/typescript",
	"python": "text/x-python", "html": "text/html", "css": "text/css",
	"json": "application/json", "yaml": "application/yaml", "toml": "application/toml",
	"xml": "application/xml", "markdown": "text/markdown", "text": "text/plain",
	"shell": "text/x-shellscript", "ruby": "text/x-ruby", "rust": "text/rust",
	"java": "text/x-java", "c": "text/x-c", "cpp": "text/x-c++",
}

// DetectLanguage derives a language identifier from a file path. Returns ""
// when nothing matches.
func DetectLanguage(path string) string {
	base := baseName(path)
	if lang, ok := languageMap[base]; ok {
		return lang
	}
	if lang, ok := languageMap[extension(path)]; ok {
		return lang
	}
	return ""
}

// DetectMIME derives a best-effort MIME type from a language identifier.
func DetectMIME(language string) string {
	if m, ok := mimeMap[language]; ok {
		return m
	}
	return "application/octet-stream"
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}

func extension(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' || path[i] == '\\' {
			break
		}
	}
	return ""
}
