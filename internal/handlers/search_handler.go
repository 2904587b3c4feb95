package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	applog "alfredoptarigan/cv-search/internal/logger"
	"alfredoptarigan/cv-search/internal/models"
	"alfredoptarigan/cv-search/internal/services"
)

type SearchHandler struct {
	search services.SearchService
	log    *zap.Logger
}

func NewSearchHandler(search services.SearchService, log *zap.Logger) *SearchHandler {
	return &SearchHandler{search: search, log: log}
}

type eligibleResponse struct {
	Eligible   []models.Candidate `json:"eligible"`
	Query      string             `json:"query"`
	Limit      int                `json:"limit"`
	Total      int                `json:"total"`
	NextOffset *int               `json:"nextOffset,omitempty"`
}

// HandleSearchGet reads q, k (or limit), offset and filters from the query
// string. An unusable k falls back to the default instead of failing.
func (h *SearchHandler) HandleSearchGet(c *fiber.Ctx) error {
	kParam := c.Query("k")
	if kParam == "" {
		kParam = c.Query("limit")
	}
	k, err := strconv.Atoi(kParam)
	if err != nil || k < 1 {
		k = services.DefaultSearchLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return h.run(c, services.SearchQuery{
		Text: c.Query("q"),
		Filter: services.SearchFilter{
			Skills:   SplitSkills(c.Query("skills")),
			Sector:   strings.TrimSpace(c.Query("sector")),
			Location: strings.TrimSpace(c.Query("location")),
		},
		Limit:  k,
		Offset: offset,
	})
}

func (h *SearchHandler) HandleSearchPost(c *fiber.Ctx) error {
	var req models.SearchRequest
	// The web proxy drops bodies that are not valid JSON.
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
	}

	if req.K == 0 {
		req.K = services.DefaultSearchLimit
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	q := services.SearchQuery{
		Text: req.Q,
		Filter: services.SearchFilter{
			Skills:   SplitSkills(req.Skills),
			Sector:   strings.TrimSpace(req.Sector),
			Location: strings.TrimSpace(req.Location),
		},
		Limit: req.K,
	}
	if req.Offset != nil {
		q.Offset = *req.Offset
	}
	return h.run(c, q)
}

func (h *SearchHandler) run(c *fiber.Ctx, q services.SearchQuery) error {
	res, err := h.search.Search(c.UserContext(), q)
	if err != nil {
		h.log.Error("search failed", zap.String("query", applog.TruncateForLog(q.Text, 80)), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "search failed",
		})
	}

	base := c.BaseURL()
	eligible := make([]models.Candidate, len(res.Candidates))
	for i, rc := range res.Candidates {
		eligible[i] = rc.Record.ToCandidate(rc.Score, base)
	}

	return c.JSON(eligibleResponse{
		Eligible:   eligible,
		Query:      q.Text,
		Limit:      q.Limit,
		Total:      res.Total,
		NextOffset: res.NextOffset,
	})
}

// SplitSkills turns "Go, SQL,,k8s" into [Go SQL k8s].
func SplitSkills(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
