package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/simtriage/internal/logging"
	"github.com/ppiankov/simtriage/internal/model"
)

// indexEntry is one row of an exported submissions.json listing. The match
// cards live in a separate detail document unless they are inlined.
type indexEntry struct {
	model.Submission
	DetailPath string `json:"detailPath,omitempty"`
}

// detailRef names the detail document of an entry relative to the export root
func (e indexEntry) detailRef() string {
	if e.DetailPath != "" {
		return e.DetailPath
	}
	return e.ID + ".json"
}

type detailFunc func(ctx context.Context, ref string) ([]byte, error)

// decodeList accepts either a bare JSON array or an object holding the
// array under key
func decodeList[T any](data []byte, key string) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, err
	}
	raw, ok := wrapped[key]
	if !ok {
		return nil, fmt.Errorf("missing %q list", key)
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func decodeIndex(data []byte) ([]indexEntry, error) {
	entries, err := decodeList[indexEntry](data, "submissions")
	if err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return entries, nil
}

func decodeDetail(data []byte) ([]model.MatchCard, error) {
	cards, err := decodeList[model.MatchCard](data, "matchCards")
	if err != nil {
		return nil, fmt.Errorf("decode detail: %w", err)
	}
	return cards, nil
}

// assemble resolves the detail document of every entry concurrently and
// returns the submissions in listing order. A missing detail document leaves
// the submission without match cards.
func assemble(ctx context.Context, name string, entries []indexEntry, workers int, fetch detailFunc) ([]model.Submission, error) {
	log := logging.New("loader")
	subs := make([]model.Submission, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, entry := range entries {
		subs[i] = entry.Submission
		if entry.MatchCards != nil || entry.ID == "" {
			continue
		}

		g.Go(func() error {
			ref := entry.detailRef()
			data, err := fetch(ctx, ref)
			if errors.Is(err, ErrNotFound) {
				log.Warn("detail document missing, treating as zero sources",
					"source", name, "submission", entry.ID, "ref", ref)
				subs[i].MatchCards = []model.MatchCard{}
				return nil
			}
			if err != nil {
				return fmt.Errorf("submission %s: %w", entry.ID, err)
			}
			cards, err := decodeDetail(data)
			if err != nil {
				return fmt.Errorf("submission %s: %s: %w", entry.ID, ref, err)
			}
			if cards == nil {
				cards = []model.MatchCard{}
			}
			subs[i].MatchCards = cards
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	log.Debug("snapshot assembled", "source", name, "submissions", len(subs))
	return finish(name, subs)
}
