package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ppiankov/simtriage/internal/model"
)

// FileSource reads a single JSON document of complete submission records,
// either a bare array or {"submissions": [...]}
type FileSource struct {
	path string
}

// NewFileSource creates a source over a JSON file
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string {
	return s.path
}

// Load decodes and validates the document
func (s *FileSource) Load(ctx context.Context) ([]model.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", s.path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	subs, err := decodeList[model.Submission](data, "submissions")
	if err != nil {
		return nil, fmt.Errorf("%s: decode: %w", s.path, err)
	}
	for i := range subs {
		if subs[i].MatchCards == nil {
			subs[i].MatchCards = []model.MatchCard{}
		}
	}
	return finish(s.path, subs)
}
