// Package pages renders the server-side HTML front-end.
package pages

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"go.uber.org/zap"

	"alfredoptarigan/cv-search/internal/client"
	"alfredoptarigan/cv-search/internal/metrics"
	"alfredoptarigan/cv-search/internal/models"
)

//go:embed templates/*.html assets/app.css assets/upload.js
var templatesFS embed.FS

const defaultLimit = 10

// CandidateService is what the pages need from the candidate API.
type CandidateService interface {
	client.EligibleSearcher
	GetCandidate(ctx context.Context, id string) *models.CandidateDetail
	UploadCV(ctx context.Context, up client.Upload) (*models.UploadResponse, error)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) (*models.HealthResponse, error)
}

type Pages struct {
	api      CandidateService
	health   HealthChecker
	visitors *visitors
	log      *zap.Logger

	homeTmpl      *template.Template
	searchTmpl    *template.Template
	uploadTmpl    *template.Template
	candidateTmpl *template.Template
}

var funcs = template.FuncMap{
	"round": func(v float64) int64 { return int64(math.Round(v)) },
	"joinNonEmpty": func(parts ...string) string {
		return joinNonEmpty(" • ", parts...)
	},
	"joinDates": func(parts ...string) string {
		return joinNonEmpty(" — ", parts...)
	},
}

func parse(name string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/"+name))
}

func New(api CandidateService, health HealthChecker, m *metrics.Manager, log *zap.Logger) *Pages {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pages{
		api:           api,
		health:        health,
		visitors:      newVisitors(api, m),
		log:           log,
		homeTmpl:      parse("home.html"),
		searchTmpl:    parse("search.html"),
		uploadTmpl:    parse("upload.html"),
		candidateTmpl: parse("candidate.html"),
	}
}

func (p *Pages) Register(app fiber.Router) {
	assets, err := fs.Sub(templatesFS, "assets")
	if err != nil {
		panic(err)
	}
	app.Use("/assets", filesystem.New(filesystem.Config{
		Root:   http.FS(assets),
		MaxAge: 3600,
	}))

	app.Get("/", p.HandleHome)
	app.Get("/search", p.HandleSearch)
	app.Get("/upload", p.HandleUploadForm)
	app.Post("/upload", p.HandleUpload)
	app.Get("/candidates/:id", p.HandleCandidate)
}

// StartJanitor drops per-visitor state idle for longer than maxIdle until
// ctx is done.
func (p *Pages) StartJanitor(ctx context.Context, every, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := p.visitors.sweep(maxIdle); n > 0 {
					p.log.Debug("dropped idle visitors", zap.Int("count", n))
				}
			}
		}
	}()
}

type homeView struct {
	Title       string
	Health      *models.HealthResponse
	HealthError string
}

func (p *Pages) HandleHome(c *fiber.Ctx) error {
	view := homeView{Title: "Home"}
	health, err := p.health.HealthCheck(c.UserContext())
	if err != nil {
		view.HealthError = err.Error()
	} else {
		view.Health = health
	}
	return p.render(c, fiber.StatusOK, p.homeTmpl, view)
}

type searchView struct {
	Title       string
	Query       string
	Skills      string
	Sector      string
	Location    string
	Limit       int
	Candidates  []models.Candidate
	Error       string
	LoadMoreURL string
}

// HandleSearch runs a search when the form was submitted. Each visitor has
// one search in flight at most; a newer one cancels the older.
func (p *Pages) HandleSearch(c *fiber.Ctx) error {
	view := searchView{
		Title:    "Search Candidates",
		Query:    strings.TrimSpace(c.Query("q")),
		Skills:   strings.TrimSpace(c.Query("skills")),
		Sector:   strings.TrimSpace(c.Query("sector")),
		Location: strings.TrimSpace(c.Query("location")),
		Limit:    defaultLimit,
	}

	if c.Query("run") == "" {
		return p.render(c, fiber.StatusOK, p.searchTmpl, view)
	}

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			view.Error = "limit must be a number"
			return p.render(c, fiber.StatusBadRequest, p.searchTmpl, view)
		}
		view.Limit = n
	}

	req := models.SearchRequest{
		Q:        view.Query,
		K:        view.Limit,
		Skills:   view.Skills,
		Sector:   view.Sector,
		Location: view.Location,
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			view.Error = "offset must be a number"
			return p.render(c, fiber.StatusBadRequest, p.searchTmpl, view)
		}
		req.Offset = &n
	}
	if err := req.Validate(); err != nil {
		view.Error = err.Error()
		return p.render(c, fiber.StatusBadRequest, p.searchTmpl, view)
	}

	searcher := p.visitors.searcher(visitorID(c))
	resp, err := searcher.Search(c.UserContext(), req.Q, req.K, &client.Filters{
		Skills:   req.Skills,
		Sector:   req.Sector,
		Location: req.Location,
		Offset:   req.Offset,
	})
	if errors.Is(err, client.ErrSuperseded) {
		return c.SendStatus(fiber.StatusNoContent)
	}
	if err != nil {
		view.Error = searchErrorMessage(err)
		p.log.Info("search failed", zap.String("query", req.Q), zap.Error(err))
		return p.render(c, fiber.StatusOK, p.searchTmpl, view)
	}

	view.Candidates = resp.Candidates
	if resp.HasMore() {
		view.LoadMoreURL = loadMoreURL(req, int(*resp.NextOffset))
	}
	return p.render(c, fiber.StatusOK, p.searchTmpl, view)
}

type uploadView struct {
	Title  string
	Error  string
	Result *models.UploadResponse
}

func (p *Pages) HandleUploadForm(c *fiber.Ctx) error {
	return p.render(c, fiber.StatusOK, p.uploadTmpl, uploadView{Title: "Upload CV"})
}

// HandleUpload validates the file type before anything leaves the server.
func (p *Pages) HandleUpload(c *fiber.Ctx) error {
	view := uploadView{Title: "Upload CV"}

	fh, err := c.FormFile("file")
	if err != nil || !client.IsPDF(fh.Header.Get("Content-Type")) {
		view.Error = client.ErrNotPDF.Error()
		return p.render(c, fiber.StatusBadRequest, p.uploadTmpl, view)
	}

	file, err := fh.Open()
	if err != nil {
		view.Error = "Upload failed"
		return p.render(c, fiber.StatusInternalServerError, p.uploadTmpl, view)
	}
	defer file.Close()

	resp, err := p.api.UploadCV(c.UserContext(), client.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		view.Error = err.Error()
		p.log.Info("upload failed", zap.String("filename", fh.Filename), zap.Error(err))
		return p.render(c, fiber.StatusOK, p.uploadTmpl, view)
	}

	view.Result = resp
	return p.render(c, fiber.StatusOK, p.uploadTmpl, view)
}

type candidateView struct {
	Title string
	*models.CandidateDetail
}

func (p *Pages) HandleCandidate(c *fiber.Ctx) error {
	id := c.Params("id")
	if decoded, err := url.PathUnescape(id); err == nil {
		id = decoded
	}

	detail := p.api.GetCandidate(c.UserContext(), id)
	return p.render(c, fiber.StatusOK, p.candidateTmpl, candidateView{
		Title:           "Candidate " + id,
		CandidateDetail: detail,
	})
}

func (p *Pages) render(c *fiber.Ctx, status int, tmpl *template.Template, data interface{}) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		p.log.Error("failed to render page", zap.String("template", tmpl.Name()), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render page")
	}
	c.Type("html", "utf-8")
	return c.Status(status).Send(buf.Bytes())
}

func searchErrorMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Search failed"
}

func loadMoreURL(req models.SearchRequest, next int) string {
	q := url.Values{}
	q.Set("run", "1")
	q.Set("q", req.Q)
	q.Set("skills", req.Skills)
	q.Set("sector", req.Sector)
	q.Set("location", req.Location)
	q.Set("limit", strconv.Itoa(req.K))
	q.Set("offset", strconv.Itoa(next))
	return "/search?" + q.Encode()
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
