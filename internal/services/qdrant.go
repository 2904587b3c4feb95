package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

type QdrantService interface {
	InitCollection(ctx context.Context) error
	UpsertCandidate(ctx context.Context, id uuid.UUID, embedding []float32, payload CandidatePayload) error
	SearchCandidates(ctx context.Context, queryEmbedding []float32, filter SearchFilter, limit, offset int) ([]CandidateHit, error)
	CountCandidates(ctx context.Context, filter SearchFilter) (int, error)
	DeleteCandidate(ctx context.Context, id uuid.UUID) error
}

// CandidatePayload is stored next to each vector so searches can filter
// without touching the database.
type CandidatePayload struct {
	Email    string
	Phone    string
	Skills   []string
	Sector   string
	Location string
}

type SearchFilter struct {
	Skills   []string
	Sector   string
	Location string
}

type CandidateHit struct {
	ID    uuid.UUID
	Score float32
}

type qdrantService struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	log            *zap.Logger
}

func NewQdrantService(urlStr, apiKey, collectionName string, log *zap.Logger) (QdrantService, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantService{
		client:         client,
		collectionName: collectionName,
		vectorSize:     768, // text-embedding-004
		log:            log,
	}, nil
}

func (q *qdrantService) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		q.log.Info("qdrant collection already exists", zap.String("collection", q.collectionName))
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	q.log.Info("qdrant collection created", zap.String("collection", q.collectionName))
	return nil
}

// UpsertCandidate uses the candidate id as point id, so re-indexing a CV
// replaces its vector.
func (q *qdrantService) UpsertCandidate(ctx context.Context, id uuid.UUID, embedding []float32, payload CandidatePayload) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(id.String()),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: qdrant.NewValueMap(map[string]interface{}{
			"candidate_id": id.String(),
			"email":        payload.Email,
			"phone":        payload.Phone,
			"skills":       toValues(lowerAll(payload.Skills)),
			"sector":       strings.ToLower(payload.Sector),
			"location":     strings.ToLower(payload.Location),
		}),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}

	return nil
}

func (q *qdrantService) SearchCandidates(ctx context.Context, queryEmbedding []float32, filter SearchFilter, limit, offset int) ([]CandidateHit, error) {
	req := &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Filter:         buildFilter(filter),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(false),
	}
	if offset > 0 {
		req.Offset = qdrant.PtrOf(uint64(offset))
	}

	points, err := q.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]CandidateHit, 0, len(points))
	for _, point := range points {
		id, err := uuid.Parse(point.GetId().GetUuid())
		if err != nil {
			q.log.Warn("skipping point with non-uuid id", zap.String("id", point.GetId().String()))
			continue
		}
		hits = append(hits, CandidateHit{ID: id, Score: point.Score})
	}

	return hits, nil
}

func (q *qdrantService) CountCandidates(ctx context.Context, filter SearchFilter) (int, error) {
	n, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collectionName,
		Filter:         buildFilter(filter),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(n), nil
}

func (q *qdrantService) DeleteCandidate(ctx context.Context, id uuid.UUID) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points:         qdrant.NewPointsSelector(qdrant.NewID(id.String())),
	})
	if err != nil {
		return fmt.Errorf("failed to delete candidate: %w", err)
	}

	return nil
}

func buildFilter(f SearchFilter) *qdrant.Filter {
	var must []*qdrant.Condition
	if skills := lowerAll(f.Skills); len(skills) > 0 {
		must = append(must, qdrant.NewMatchKeywords("skills", skills...))
	}
	if f.Sector != "" {
		must = append(must, qdrant.NewMatch("sector", strings.ToLower(f.Sector)))
	}
	if f.Location != "" {
		must = append(must, qdrant.NewMatch("location", strings.ToLower(f.Location)))
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToLower(s))
		}
	}
	return out
}

func toValues(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
