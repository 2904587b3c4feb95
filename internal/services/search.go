package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-search/internal/models"
	"alfredoptarigan/cv-search/internal/repositories"
)

const (
	DefaultSearchLimit = 2
	MaxSearchLimit     = 100
)

type SearchQuery struct {
	Text   string
	Filter SearchFilter
	Limit  int
	Offset int
}

type RankedCandidate struct {
	Record models.CandidateRecord
	Score  float64
}

type SearchResult struct {
	Candidates []RankedCandidate
	Total      int
	NextOffset *int
}

type SearchService interface {
	Search(ctx context.Context, q SearchQuery) (*SearchResult, error)
}

type searchService struct {
	repo          repositories.CandidateRepository
	geminiService GeminiService
	qdrantService QdrantService
	promptBuilder *PromptBuilder
	log           *zap.Logger
}

func NewSearchService(
	repo repositories.CandidateRepository,
	geminiService GeminiService,
	qdrantService QdrantService,
	log *zap.Logger,
) SearchService {
	return &searchService{
		repo:          repo,
		geminiService: geminiService,
		qdrantService: qdrantService,
		promptBuilder: NewPromptBuilder(),
		log:           log,
	}
}

// Search ranks candidates by vector similarity to the query. Without any
// query text or filter it lists indexed candidates, newest first, with a
// score of 0.
func (s *searchService) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	if q.Limit < 1 {
		q.Limit = DefaultSearchLimit
	}
	if q.Limit > MaxSearchLimit {
		q.Limit = MaxSearchLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	text := s.promptBuilder.BuildSearchQuery(q.Text, q.Filter)
	if text == "" {
		return s.list(q)
	}

	embedding, err := s.geminiService.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	hits, err := s.qdrantService.SearchCandidates(ctx, embedding, q.Filter, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}

	total, err := s.qdrantService.CountCandidates(ctx, q.Filter)
	if err != nil {
		s.log.Warn("failed to count candidates", zap.Error(err))
		total = q.Offset + len(hits)
	}

	ids := make([]uuid.UUID, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	recs, err := s.repo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.CandidateRecord, len(recs))
	for _, rec := range recs {
		byID[rec.ID] = rec
	}

	ranked := make([]RankedCandidate, 0, len(hits))
	for _, h := range hits {
		rec, ok := byID[h.ID]
		if !ok {
			s.log.Warn("vector without stored candidate", zap.String("candidate_id", h.ID.String()))
			continue
		}
		ranked = append(ranked, RankedCandidate{Record: rec, Score: float64(h.Score)})
	}

	return &SearchResult{
		Candidates: ranked,
		Total:      total,
		NextOffset: nextOffset(q.Offset, len(hits), total),
	}, nil
}

func (s *searchService) list(q SearchQuery) (*SearchResult, error) {
	recs, err := s.repo.ListIndexed(q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count()
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedCandidate, len(recs))
	for i, rec := range recs {
		ranked[i] = RankedCandidate{Record: rec}
	}

	return &SearchResult{
		Candidates: ranked,
		Total:      int(total),
		NextOffset: nextOffset(q.Offset, len(recs), int(total)),
	}, nil
}

func nextOffset(offset, n, total int) *int {
	if n == 0 || offset+n >= total {
		return nil
	}
	next := offset + n
	return &next
}
