package client

import (
	"context"
	"sync"

	"alfredoptarigan/cv-search/internal/metrics"
	"alfredoptarigan/cv-search/internal/models"
)

type EligibleSearcher interface {
	SearchEligible(ctx context.Context, query string, limit int, f *Filters) (*models.SearchResponse, error)
}

// Searcher lets only the latest search win. Starting a search cancels the
// one in flight, and the cancelled call returns ErrSuperseded.
type Searcher struct {
	api     EligibleSearcher
	metrics *metrics.Manager

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func NewSearcher(api EligibleSearcher, m *metrics.Manager) *Searcher {
	return &Searcher{api: api, metrics: m}
}

func (s *Searcher) Search(ctx context.Context, query string, limit int, f *Filters) (*models.SearchResponse, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	mine := s.seq
	s.cancel = cancel
	s.mu.Unlock()

	resp, err := s.api.SearchEligible(ctx, query, limit, f)

	s.mu.Lock()
	superseded := mine != s.seq
	if !superseded {
		s.cancel = nil
	}
	s.mu.Unlock()

	if superseded {
		s.metrics.IncSearchSuperseded()
		return nil, ErrSuperseded
	}
	return resp, err
}

// Cancel aborts the search in flight, if any.
func (s *Searcher) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
}
