package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ppiankov/simtriage/internal/model"
)

// DirSource reads an exported course folder: an index document plus one
// detail document per submission
type DirSource struct {
	dir       string
	indexName string
}

// NewDirSource creates a source over dir. An empty indexName selects submissions.json.
func NewDirSource(dir, indexName string) *DirSource {
	if indexName == "" {
		indexName = "submissions.json"
	}
	return &DirSource{dir: dir, indexName: indexName}
}

func (s *DirSource) Name() string {
	return s.dir
}

// Load reads the index and resolves each detail document
func (s *DirSource) Load(ctx context.Context) ([]model.Submission, error) {
	data, err := s.read(s.indexName)
	if err != nil {
		return nil, fmt.Errorf("%s: read index: %w", s.dir, err)
	}
	entries, err := decodeIndex(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.dir, err)
	}

	return assemble(ctx, s.dir, entries, 0, func(ctx context.Context, ref string) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return s.read(ref)
	})
}

// read opens a file inside the folder; refs may not escape it
func (s *DirSource) read(ref string) ([]byte, error) {
	if !filepath.IsLocal(filepath.FromSlash(ref)) {
		return nil, fmt.Errorf("detail path %q escapes the export folder", ref)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.FromSlash(ref)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	return data, err
}
