package arxiv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/crimson-sun/paperscout/internal/model"
	"github.com/crimson-sun/paperscout/internal/source"
	"github.com/crimson-sun/paperscout/pkg/arxiv"
)

func init() {
	source.Register("arxiv", func() source.Source {
		return &Source{}
	})
}

// Source implements source.Source against the arXiv Atom API.
type Source struct {
	mu     sync.Mutex
	client *arxiv.Client
}

// clientFor lazily builds the underlying client from cfg. The client is
// kept so request spacing carries across categories in one run.
func (s *Source) clientFor(cfg source.Config) *arxiv.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		opts := []arxiv.Option{arxiv.WithRequestDelay(3 * time.Second)}
		if cfg.Endpoint != "" {
			opts = append(opts, arxiv.WithEndpoint(cfg.Endpoint))
		}
		if cfg.UserAgent != "" {
			opts = append(opts, arxiv.WithUserAgent(cfg.UserAgent))
		}
		s.client = arxiv.New(opts...)
	}
	return s.client
}

// Latest fetches the n newest submissions in a category.
func (s *Source) Latest(ctx context.Context, cfg source.Config, category string, n int) ([]model.Paper, error) {
	papers, err := s.clientFor(cfg).Latest(ctx, category, n)
	if err != nil {
		return nil, fmt.Errorf("arxiv source: %w", err)
	}
	return convert(papers), nil
}

// Search fetches papers matching keywords within a category.
func (s *Source) Search(ctx context.Context, cfg source.Config, params source.SearchParams) ([]model.Paper, error) {
	papers, err := s.clientFor(cfg).Search(ctx, arxiv.Query{
		Category:   params.Category,
		Keywords:   params.Keywords,
		MaxResults: params.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("arxiv source: %w", err)
	}
	return convert(papers), nil
}

// convert maps API papers to the internal model, stamping fetch time.
func convert(in []arxiv.Paper) []model.Paper {
	now := time.Now().UTC()
	out := make([]model.Paper, 0, len(in))
	for _, p := range in {
		out = append(out, model.Paper{
			ArxivID:         p.ID,
			Title:           p.Title,
			Authors:         p.Authors,
			Abstract:        p.Abstract,
			PrimaryCategory: p.PrimaryCategory,
			Categories:      p.Categories,
			PDFURL:          p.PDFURL,
			AbsURL:          p.AbsURL,
			Published:       p.Published,
			FetchedAt:       now,
		})
	}
	return out
}
