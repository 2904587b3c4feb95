package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"alfredoptarigan/cv-search/internal/metrics"
	"alfredoptarigan/cv-search/internal/models"
	"alfredoptarigan/cv-search/internal/repositories"
)

const (
	embedChunkRunes   = 2000
	embedChunkOverlap = 200
	maxEmbedChunks    = 4
	summaryInputRunes = 6000
)

var ErrEmptyEmbedding = errors.New("no embedding produced")

type IndexerService interface {
	IndexCandidate(ctx context.Context, id uuid.UUID) error
}

type indexerService struct {
	repo          repositories.CandidateRepository
	geminiService GeminiService
	qdrantService QdrantService
	pdfParser     PDFParserService
	chunker       TextChunker
	promptBuilder *PromptBuilder
	metrics       *metrics.Manager
	log           *zap.Logger
	maxRetries    int
}

func NewIndexerService(
	repo repositories.CandidateRepository,
	geminiService GeminiService,
	qdrantService QdrantService,
	pdfParser PDFParserService,
	m *metrics.Manager,
	log *zap.Logger,
	maxRetries int,
) IndexerService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &indexerService{
		repo:          repo,
		geminiService: geminiService,
		qdrantService: qdrantService,
		pdfParser:     pdfParser,
		chunker:       NewTextChunker(),
		promptBuilder: NewPromptBuilder(),
		metrics:       m,
		log:           log,
		maxRetries:    maxRetries,
	}
}

// IndexCandidate parses the stored CV, embeds it and writes the vector.
// The summary is best effort: a failed summary does not fail the job.
func (s *indexerService) IndexCandidate(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	log := s.log.With(zap.String("candidate_id", id.String()))

	rec, err := s.repo.FindByID(id)
	if err != nil {
		return fmt.Errorf("failed to get candidate: %w", err)
	}

	// The pending poller can enqueue a job that is already queued.
	if rec.Status == models.StatusProcessing || rec.Status == models.StatusIndexed {
		log.Debug("skipping candidate", zap.String("status", string(rec.Status)))
		return nil
	}

	if err := s.repo.UpdateStatus(id, models.StatusProcessing); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	content, err := s.pdfParser.ExtractText(rec.FilePath)
	if err != nil {
		return s.fail(id, start, "failed to parse CV", err)
	}

	meta, clean, _ := AnalyzeText(content.Text)
	chunks := s.chunker.ChunkText(clean, embedChunkRunes, embedChunkOverlap)
	if len(chunks) == 0 {
		return s.fail(id, start, "failed to parse CV", ErrNoText)
	}

	var (
		embedding []float32
		summary   *string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vec, err := s.embedChunks(gctx, chunks)
		if err != nil {
			return err
		}
		embedding = vec
		return nil
	})
	g.Go(func() error {
		prompt := s.promptBuilder.BuildSummaryPrompt(meta, truncateRunes(clean, summaryInputRunes))
		text, err := s.geminiService.SummarizeCV(gctx, prompt, s.maxRetries)
		if err != nil {
			log.Warn("summary generation failed", zap.Error(err))
			return nil
		}
		if text = CleanSummary(text); text != "" {
			summary = &text
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return s.fail(id, start, "failed to embed CV", err)
	}

	payload := CandidatePayload{
		Email:    rec.Email,
		Phone:    rec.Phone,
		Skills:   rec.Skills,
		Sector:   rec.Sector,
		Location: rec.Location,
	}
	if err := s.qdrantService.UpsertCandidate(ctx, id, embedding, payload); err != nil {
		return s.fail(id, start, "failed to store vector", err)
	}

	if err := s.repo.UpdateIndexed(id, summary); err != nil {
		// A vector without an indexed record would surface in searches.
		if derr := s.qdrantService.DeleteCandidate(ctx, id); derr != nil {
			log.Error("failed to remove orphaned vector", zap.Error(derr))
		}
		return s.fail(id, start, "failed to save results", err)
	}

	s.metrics.ObserveIndexJob(string(models.StatusIndexed), time.Since(start))
	log.Info("candidate indexed",
		zap.Int("chunks", len(chunks)),
		zap.Bool("summary", summary != nil),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// embedChunks embeds up to maxEmbedChunks chunks concurrently and averages
// them into one document vector.
func (s *indexerService) embedChunks(ctx context.Context, chunks []string) ([]float32, error) {
	if len(chunks) > maxEmbedChunks {
		chunks = chunks[:maxEmbedChunks]
	}

	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			vec, err := s.geminiService.GenerateEmbedding(gctx, chunk)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return MeanVector(vectors)
}

func (s *indexerService) fail(id uuid.UUID, start time.Time, msg string, err error) error {
	if uerr := s.repo.UpdateError(id, fmt.Sprintf("%s: %v", msg, err)); uerr != nil {
		s.log.Error("failed to record index error", zap.String("candidate_id", id.String()), zap.Error(uerr))
	}
	s.metrics.ObserveIndexJob(string(models.StatusFailed), time.Since(start))
	return fmt.Errorf("%s: %w", msg, err)
}

// MeanVector averages vectors of equal length.
func MeanVector(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, ErrEmptyEmbedding
	}

	dim := len(vectors[0])
	out := make([]float32, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("embedding dimension mismatch: %d != %d", len(v), dim)
		}
		for i, x := range v {
			out[i] += x
		}
	}
	n := float32(len(vectors))
	for i := range out {
		out[i] /= n
	}
	return out, nil
}
