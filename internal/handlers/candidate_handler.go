package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-search/internal/repositories"
	"alfredoptarigan/cv-search/internal/services"
)

type CandidateHandler struct {
	repo           repositories.CandidateRepository
	storageService services.StorageService
	log            *zap.Logger
}

func NewCandidateHandler(
	repo repositories.CandidateRepository,
	storageService services.StorageService,
	log *zap.Logger,
) *CandidateHandler {
	return &CandidateHandler{
		repo:           repo,
		storageService: storageService,
		log:            log,
	}
}

func (h *CandidateHandler) HandleGetCandidate(c *fiber.Ctx) error {
	// Ids that are not uuids cannot exist.
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return notFound(c)
	}

	rec, err := h.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrCandidateNotFound) {
			return notFound(c)
		}
		h.log.Error("failed to load candidate", zap.String("candidate_id", id.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load candidate",
		})
	}

	return c.JSON(rec.ToDetail(c.BaseURL()))
}

// HandleGetPDF serves /pdf/<id>.pdf from upload storage.
func (h *CandidateHandler) HandleGetPDF(c *fiber.Ctx) error {
	id, err := uuid.Parse(strings.TrimSuffix(c.Params("file"), ".pdf"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "pdf not found")
	}

	f, err := h.storageService.Open(id)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "pdf not found")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+h.storageService.FilenameFor(id)+`"`)
	return c.SendStream(f, int(info.Size()))
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "candidate not found",
	})
}
