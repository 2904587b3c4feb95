package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"alfredoptarigan/cv-search/internal/models"
	"alfredoptarigan/cv-search/internal/repositories"
)

type fakeRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*models.CandidateRecord
	order   []uuid.UUID
}

func newFakeRepo(recs ...models.CandidateRecord) *fakeRepo {
	r := &fakeRepo{records: map[uuid.UUID]*models.CandidateRecord{}}
	for i := range recs {
		rec := recs[i]
		r.records[rec.ID] = &rec
		r.order = append(r.order, rec.ID)
	}
	return r
}

func (r *fakeRepo) Create(rec *models.CandidateRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records[rec.ID] = &cp
	r.order = append(r.order, rec.ID)
	return nil
}

func (r *fakeRepo) FindByID(id uuid.UUID) (*models.CandidateRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, repositories.ErrCandidateNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeRepo) FindByIDs(ids []uuid.UUID) ([]models.CandidateRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CandidateRecord
	for _, id := range ids {
		if rec, ok := r.records[id]; ok {
			out = append(out, *rec)
		}
	}
	// Store order is not rank order.
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *fakeRepo) UpdateStatus(id uuid.UUID, status models.CandidateStatus) error {
	return r.with(id, func(rec *models.CandidateRecord) { rec.Status = status })
}

func (r *fakeRepo) UpdateIndexed(id uuid.UUID, summary *string) error {
	return r.with(id, func(rec *models.CandidateRecord) {
		rec.Status = models.StatusIndexed
		rec.ErrorMessage = nil
		if summary != nil {
			rec.Summary = summary
		}
	})
}

func (r *fakeRepo) UpdateError(id uuid.UUID, errorMsg string) error {
	return r.with(id, func(rec *models.CandidateRecord) {
		rec.Status = models.StatusFailed
		rec.ErrorMessage = &errorMsg
	})
}

func (r *fakeRepo) FindPendingJobs(limit int) ([]models.CandidateRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CandidateRecord
	for _, id := range r.order {
		if rec := r.records[id]; rec.Status == models.StatusQueued && len(out) < limit {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListIndexed(limit, offset int) ([]models.CandidateRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var indexed []models.CandidateRecord
	for _, id := range r.order {
		if rec := r.records[id]; rec.Status == models.StatusIndexed {
			indexed = append(indexed, *rec)
		}
	}
	if offset >= len(indexed) {
		return nil, nil
	}
	end := offset + limit
	if end > len(indexed) {
		end = len(indexed)
	}
	return indexed[offset:end], nil
}

func (r *fakeRepo) Count() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.records {
		if rec.Status == models.StatusIndexed {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) get(id uuid.UUID) models.CandidateRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.records[id]
}

func (r *fakeRepo) with(id uuid.UUID, fn func(*models.CandidateRecord)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return repositories.ErrCandidateNotFound
	}
	fn(rec)
	return nil
}

type fakeGemini struct {
	mu         sync.Mutex
	embedErr   error
	summary    string
	summaryErr error
	embedded   []string
}

func (g *fakeGemini) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.embedErr != nil {
		return nil, g.embedErr
	}
	g.embedded = append(g.embedded, text)
	return []float32{1, 2, 3}, nil
}

func (g *fakeGemini) SummarizeCV(_ context.Context, _ string, _ int) (string, error) {
	if g.summaryErr != nil {
		return "", g.summaryErr
	}
	return g.summary, nil
}

func (g *fakeGemini) embeddedTexts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.embedded...)
}

type fakeQdrant struct {
	mu       sync.Mutex
	hits     []CandidateHit
	total    int
	countErr error
	upserted map[uuid.UUID]CandidatePayload
	filters  []SearchFilter
}

func (q *fakeQdrant) InitCollection(context.Context) error { return nil }

func (q *fakeQdrant) UpsertCandidate(_ context.Context, id uuid.UUID, _ []float32, payload CandidatePayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.upserted == nil {
		q.upserted = map[uuid.UUID]CandidatePayload{}
	}
	q.upserted[id] = payload
	return nil
}

func (q *fakeQdrant) SearchCandidates(_ context.Context, _ []float32, filter SearchFilter, limit, offset int) ([]CandidateHit, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.filters = append(q.filters, filter)
	if offset >= len(q.hits) {
		return nil, nil
	}
	end := offset + limit
	if end > len(q.hits) {
		end = len(q.hits)
	}
	return q.hits[offset:end], nil
}

func (q *fakeQdrant) CountCandidates(context.Context, SearchFilter) (int, error) {
	if q.countErr != nil {
		return 0, q.countErr
	}
	return q.total, nil
}

func (q *fakeQdrant) DeleteCandidate(context.Context, uuid.UUID) error { return nil }

type fakeParser struct {
	text string
	err  error
}

func (p *fakeParser) ExtractText(path string) (*PDFContent, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &PDFContent{Text: p.text, Pages: []string{p.text}, PageCount: 1, FilePath: path}, nil
}

func (p *fakeParser) PageCount(string) (int, error) {
	if p.err != nil {
		return 0, p.err
	}
	return 1, nil
}

var errBoom = errors.New("boom")
