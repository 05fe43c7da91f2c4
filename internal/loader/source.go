package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/simtriage/internal/logging"
	"github.com/ppiankov/simtriage/internal/model"
)

var (
	// ErrNotFound is returned when a snapshot or detail document does not exist
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedSource is returned by Open for specs no source understands
	ErrUnsupportedSource = errors.New("unsupported source")
)

// Source produces a validated snapshot of submissions in listing order
type Source interface {
	Name() string
	Load(ctx context.Context) ([]model.Submission, error)
}

// Open picks a source for spec:
//
//	http://..., https://...     HTTPSource over an exported folder
//	sqlite:path, *.db, *.sqlite SQLiteSource
//	existing directory          DirSource
//	*.json                      FileSource
func Open(spec string, cfg model.LoaderConfig) (Source, error) {
	spec = strings.TrimSpace(spec)
	lower := strings.ToLower(spec)

	switch {
	case spec == "":
		return nil, fmt.Errorf("%w: empty source", ErrUnsupportedSource)
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return NewHTTPSource(spec, cfg)
	case strings.HasPrefix(lower, "sqlite:"):
		return NewSQLiteSource(spec[len("sqlite:"):]), nil
	case strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"):
		return NewSQLiteSource(spec), nil
	}

	info, err := os.Stat(spec)
	if err == nil && info.IsDir() {
		return NewDirSource(spec, cfg.IndexName), nil
	}
	if strings.HasSuffix(lower, ".json") {
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", spec, ErrNotFound)
		}
		return NewFileSource(spec), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s does not exist", ErrUnsupportedSource, spec)
	}
	return nil, fmt.Errorf("%w: %s (expected a directory, .json file, .db file or URL)", ErrUnsupportedSource, filepath.Base(spec))
}

// finish validates a decoded snapshot on behalf of every source
func finish(name string, subs []model.Submission) ([]model.Submission, error) {
	if subs == nil {
		subs = []model.Submission{}
	}
	if err := model.ValidateAll(subs); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	// Unparsable timestamps rank as oldest; worth a warning, not a failure
	log := logging.New("loader")
	for _, sub := range subs {
		if _, ok := sub.Timestamp(); !ok && strings.TrimSpace(sub.DateAdded) != "" {
			log.Warn("unparsable dateAdded, ranking as oldest", "source", name, "id", sub.ID, "dateAdded", sub.DateAdded)
		}
	}
	return subs, nil
}
