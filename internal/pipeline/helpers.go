package pipeline

import (
	"os"
	"path/filepath"
	"time"

	"github.com/forge9/codeindex/internal/model"
	"github.com/forge9/codeindex/internal/normalizer"
)

func (p *Pipeline) readFile(relPath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(p.RootDir, relPath))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func normalize(blocks []model.Block, lineCount int) ([]model.Block, normalizer.Report) {
	return normalizer.Normalize(blocks, lineCount)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
