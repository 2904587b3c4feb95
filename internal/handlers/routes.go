package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Register mounts the backend routes the web proxy forwards to.
func Register(r fiber.Router, upload *UploadHandler, search *SearchHandler, candidates *CandidateHandler) {
	r.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	r.Post("/upload-cv", upload.HandleUpload)
	r.Get("/eligible-candidates", search.HandleSearchGet)
	r.Post("/eligible-candidates", search.HandleSearchPost)
	r.Get("/candidates/:id", candidates.HandleGetCandidate)
	r.Get("/pdf/:file", candidates.HandleGetPDF)
}
