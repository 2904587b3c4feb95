package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	summaryModel   = "gemini-2.5-flash"
	embeddingModel = "text-embedding-004"

	// Roughly the embedding model's token limit.
	maxEmbeddingInput = 40000

	summaryTemperature float32 = 0.2
	summaryMaxTokens   int32   = 512
)

const summaryInstruction = `You are a technical recruiter writing short candidate profiles for a CV search tool.
Use only facts stated in the CV. Never include contact details.
Answer with plain prose, no markdown, no JSON, no preamble.`

// GeminiService embeds CV chunks and search queries, and writes the
// profile summary shown on a candidate page.
type GeminiService interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	SummarizeCV(ctx context.Context, prompt string, maxAttempts int) (string, error)
}

type geminiService struct {
	client     *genai.Client
	retryDelay time.Duration
	log        *zap.Logger
}

func NewGeminiService(apiKey string, retryDelay time.Duration, log *zap.Logger) (GeminiService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is not set")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiService{
		client:     client,
		retryDelay: retryDelay,
		log:        log,
	}, nil
}

func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if len(text) > maxEmbeddingInput {
		text = text[:maxEmbeddingInput]
	}

	result, err := g.client.Models.EmbedContent(ctx, embeddingModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}

// SummarizeCV asks the summary model for a profile, retrying with
// exponential backoff.
func (g *geminiService) SummarizeCV(ctx context.Context, prompt string, maxAttempts int) (string, error) {
	config := summaryConfig()

	var summary string
	err := withRetry(ctx, maxAttempts, g.retryDelay, g.log, func() error {
		resp, err := g.client.Models.GenerateContent(ctx, summaryModel, genai.Text(prompt), config)
		if err != nil {
			return fmt.Errorf("failed to generate summary: %w", err)
		}
		if resp == nil {
			return fmt.Errorf("no response generated (nil response)")
		}
		if summary = resp.Text(); summary == "" {
			return fmt.Errorf("no text content in response (%d candidates)", len(resp.Candidates))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return summary, nil
}

func summaryConfig() *genai.GenerateContentConfig {
	temperature := summaryTemperature
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: summaryInstruction}}},
		Temperature:       &temperature,
		MaxOutputTokens:   summaryMaxTokens,
	}
}

// withRetry runs fn up to attempts times, doubling delay after each
// failure. It stops early when ctx is done.
func withRetry(ctx context.Context, attempts int, delay time.Duration, log *zap.Logger, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		log.Warn("gemini attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(lastErr),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
