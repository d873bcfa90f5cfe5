package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/forge9/codeindex/internal/fingerprint"
	"github.com/forge9/codeindex/internal/gitignore"
	"github.com/forge9/codeindex/internal/model"
)

// Scanner walks a repository root against a single ignore specification.
type Scanner struct {
	matcher *gitignore.Matcher
}

// New loads the ignore specification from ignoreFile (if non-empty) and
// returns a Scanner ready to walk. A missing ignoreFile makes New return an
// error, which cmd/codeindex treats as fatal at startup (exit code 2).
func New(ignoreFile string) (*Scanner, error) {
	m := gitignore.New()
	if ignoreFile != "" {
		if err := m.AddFromFile(ignoreFile, ""); err != nil {
			return nil, fmt.Errorf("load ignore file %s: %w", ignoreFile, err)
		}
	}
	return &Scanner{matcher: m}, nil
}

// Scan walks opts.RootDir and streams one Entry per regular file found. The
// returned channel is closed when the walk completes or ctx is canceled.
// Scan does not hold file contents in memory beyond what is needed to
// compute a single file's fingerprint.
func (s *Scanner) Scan(ctx context.Context, opts Options) <-chan Entry {
	root := opts.RootDir
	if root == "" {
		root = "."
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	paths := make(chan string, workers*4)
	out := make(chan Entry, workers*4)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rel := range paths {
				select {
				case <-ctx.Done():
					return
				default:
				}
				out <- s.stat(root, rel, maxSize)
			}
		}()
	}

	go func() {
		defer close(paths)
		_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if path == root {
				return nil
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if info.IsDir() {
				if s.matcher.Match(rel, true) {
					return filepath.SkipDir
				}
				if strings.HasSuffix(rel, "/.git") || rel == ".git" {
					return filepath.SkipDir
				}
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case paths <- rel:
			}
			return nil
		})
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

// stat classifies and, if not ignored, fingerprints a single relative path.
func (s *Scanner) stat(root, rel string, maxSize int64) Entry {
	if s.matcher.Match(rel, false) {
		return Entry{File: model.File{Path: rel}, Ignored: true}
	}

	abs := filepath.Join(root, rel)
	info, err := os.Stat(abs)
	if err != nil {
		return Entry{Err: fmt.Errorf("stat %s: %w", rel, err)}
	}
	if info.Size() > maxSize {
		return Entry{Err: fmt.Errorf("%s: exceeds max file size %d bytes", rel, maxSize)}
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return Entry{Err: fmt.Errorf("read %s: %w", rel, err)}
	}

	lang := DetectLanguage(rel)
	f := model.File{
		Path:      rel,
		Size:      info.Size(),
		Lines:     countLines(content),
		Extension: extension(rel),
		MIME:      DetectMIME(lang),
		Language:  lang,
		Hash:      fingerprint.OfBytes(content),
	}
	return Entry{File: f}
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := 1
	for _, b := range content {
		if b == '\n' {
			n++
		}
	}
	if content[len(content)-1] == '\n' {
		n--
	}
	return n
}
