package loader

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ppiankov/simtriage/internal/model"
	"github.com/ppiankov/simtriage/internal/worker"
)

// HTTPSource reads an exported course folder served over HTTP
type HTTPSource struct {
	base      *url.URL
	indexName string
	workers   int
	fetcher   *Fetcher
}

// NewHTTPSource creates a source rooted at rawURL. A URL ending in .json is
// taken as the index document itself.
func NewHTTPSource(rawURL string, cfg model.LoaderConfig) (*HTTPSource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse source URL: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %s has no host", ErrUnsupportedSource, rawURL)
	}

	indexName := cfg.IndexName
	if indexName == "" {
		indexName = "submissions.json"
	}
	if strings.HasSuffix(strings.ToLower(u.Path), ".json") {
		i := strings.LastIndex(u.Path, "/")
		indexName = u.Path[i+1:]
		u.Path = u.Path[:i+1]
	} else if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	limiter := worker.NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize)
	return &HTTPSource{
		base:      u,
		indexName: indexName,
		workers:   cfg.Workers,
		fetcher:   NewFetcher(cfg, limiter),
	}, nil
}

func (s *HTTPSource) Name() string {
	return s.base.String()
}

// Load fetches the index, then every detail document concurrently
func (s *HTTPSource) Load(ctx context.Context) ([]model.Submission, error) {
	indexURL, err := s.resolve(s.indexName)
	if err != nil {
		return nil, err
	}
	data, err := s.fetcher.FetchWithRetry(ctx, indexURL)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch index: %w", s.Name(), err)
	}
	entries, err := decodeIndex(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}

	return assemble(ctx, s.Name(), entries, s.workers, func(ctx context.Context, ref string) ([]byte, error) {
		detailURL, err := s.resolve(ref)
		if err != nil {
			return nil, err
		}
		return s.fetcher.FetchWithRetry(ctx, detailURL)
	})
}

// resolve maps a ref onto the export root. Absolute refs must stay on the same host.
func (s *HTTPSource) resolve(ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse ref %q: %w", ref, err)
	}
	u := s.base.ResolveReference(r)
	if u.Host != s.base.Host {
		return "", fmt.Errorf("detail path %q points outside %s", ref, s.base.Host)
	}
	return u.String(), nil
}
