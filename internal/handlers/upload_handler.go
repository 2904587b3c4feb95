package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-search/internal/models"
	"alfredoptarigan/cv-search/internal/repositories"
	"alfredoptarigan/cv-search/internal/services"
)

// JobQueue receives candidates that are ready to be indexed.
type JobQueue interface {
	EnqueueJob(candidateID uuid.UUID)
}

type UploadHandler struct {
	repo           repositories.CandidateRepository
	storageService services.StorageService
	pdfParser      services.PDFParserService
	queue          JobQueue
	maxFileSize    int64
	log            *zap.Logger
}

func NewUploadHandler(
	repo repositories.CandidateRepository,
	storageService services.StorageService,
	pdfParser services.PDFParserService,
	queue JobQueue,
	maxFileSize int64,
	log *zap.Logger,
) *UploadHandler {
	return &UploadHandler{
		repo:           repo,
		storageService: storageService,
		pdfParser:      pdfParser,
		queue:          queue,
		maxFileSize:    maxFileSize,
		log:            log,
	}
}

// HandleUpload stores a CV, extracts what it can synchronously and queues
// the rest (embedding, summary) for the worker.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing form field 'file'",
		})
	}

	if file.Size > h.maxFileSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": fmt.Sprintf("file too large. Max size: %d bytes", h.maxFileSize),
		})
	}

	id := uuid.New()
	filename, filePath, err := h.storageService.SaveFile(file, id)
	if err != nil {
		if errors.Is(err, services.ErrNotPDF) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to save file: %v", err),
		})
	}

	content, err := h.pdfParser.ExtractText(filePath)
	if err != nil {
		h.cleanup(filename)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to read PDF: %v", err),
		})
	}

	meta, _, sections := services.AnalyzeText(content.Text)

	rec := models.CandidateRecord{
		ID:               id,
		Name:             meta.Name,
		Email:            meta.Email,
		Phone:            meta.Phone,
		LinkedIn:         meta.LinkedIn,
		GitHub:           meta.GitHub,
		Skills:           meta.Skills,
		Sections:         sections,
		Sector:           strings.TrimSpace(c.FormValue("sector")),
		Location:         strings.TrimSpace(c.FormValue("location")),
		Filename:         filename,
		OriginalFileName: file.Filename,
		FilePath:         filePath,
		Pages:            content.PageCount,
		Status:           models.StatusQueued,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	if err := h.repo.Create(&rec); err != nil {
		h.cleanup(filename)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to save candidate: %v", err),
		})
	}

	h.queue.EnqueueJob(id)
	h.log.Info("cv uploaded",
		zap.String("candidate_id", id.String()),
		zap.Int("pages", content.PageCount),
		zap.Int("sections", len(sections)),
	)

	return c.JSON(models.UploadResponse{
		Success: true,
		Message: "CV uploaded successfully",
		FileID:  id.String(),
		Metadata: &models.UploadMetadata{
			Email:      meta.Email,
			Phone:      meta.Phone,
			Name:       meta.Name,
			Skills:     meta.Skills,
			Experience: meta.Experience,
			LinkedIn:   meta.LinkedIn,
			GitHub:     meta.GitHub,
		},
		Pages:   content.PageCount,
		Excerpt: sections,
	})
}

func (h *UploadHandler) cleanup(filename string) {
	if err := h.storageService.DeleteFile(filename); err != nil {
		h.log.Warn("failed to remove uploaded file", zap.String("file", filename), zap.Error(err))
	}
}
