package proxy

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"alfredoptarigan/cv-search/internal/models"
	"alfredoptarigan/cv-search/internal/normalize"
)

const (
	RouteDetail = "detail"
	RouteSearch = "search"
	RouteUpload = "upload"
)

// Handler exposes the /api proxy routes.
type Handler struct {
	fwd *Forwarder
	log *zap.Logger
}

func NewHandler(fwd *Forwarder, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{fwd: fwd, log: log}
}

// Register mounts the routes on r, which is expected to be the /api group.
func (h *Handler) Register(r fiber.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/candidates/:id", h.HandleGetCandidate)
	r.Get("/eligible-candidates", h.HandleSearchGet)
	r.Post("/eligible-candidates", h.HandleSearchPost)
	r.Post("/upload-cv", h.HandleUpload)
}

func (h *Handler) HandleGetCandidate(c *fiber.Ctx) error {
	id := c.Params("id")
	if decoded, err := url.PathUnescape(id); err == nil {
		id = decoded
	}

	req := Request{
		Route:  RouteDetail,
		Method: fiber.MethodGet,
		Path:   "/candidates/" + url.PathEscape(id),
	}
	resp, ok := h.forward(c, req, "Upstream error")
	if !ok {
		return nil
	}
	return sendJSON(c, fiber.StatusOK, normalize.Detail(resp.Body, h.fwd.Base(), id))
}

func (h *Handler) HandleSearchGet(c *fiber.Ctx) error {
	req := Request{
		Route:    RouteSearch,
		Method:   fiber.MethodGet,
		Path:     "/eligible-candidates",
		RawQuery: string(c.Request().URI().QueryString()),
	}
	resp, ok := h.forward(c, req, "Upstream error")
	if !ok {
		return nil
	}
	return sendJSON(c, fiber.StatusOK, normalize.Search(resp.Body, h.fwd.Base()))
}

// HandleSearchPost forwards the inbound JSON body. An unparsable body is
// dropped and the upstream is called without one.
func (h *Handler) HandleSearchPost(c *fiber.Ctx) error {
	req := Request{
		Route:  RouteSearch,
		Method: fiber.MethodPost,
		Path:   "/eligible-candidates",
	}
	if body := c.Body(); gjson.ValidBytes(body) && gjson.ParseBytes(body).Type != gjson.Null {
		req.Body = append([]byte(nil), body...)
		req.ContentType = fiber.MIMEApplicationJSON
	}

	resp, ok := h.forward(c, req, "Upstream error")
	if !ok {
		return nil
	}
	return sendJSON(c, fiber.StatusOK, normalize.Search(resp.Body, h.fwd.Base()))
}

// HandleUpload passes the multipart body through without decoding it.
func (h *Handler) HandleUpload(c *fiber.Ctx) error {
	req := Request{
		Route:       RouteUpload,
		Method:      fiber.MethodPost,
		Path:        "/upload-cv",
		Body:        append([]byte(nil), c.Body()...),
		ContentType: c.Get(fiber.HeaderContentType),
	}
	resp, ok := h.forward(c, req, "Upload failed")
	if !ok {
		return nil
	}

	body := resp.Body
	if !gjson.ValidBytes(body) {
		body = []byte("{}")
	}
	return sendJSON(c, resp.Status, body)
}

func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(models.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Upstream:  h.fwd.Base(),
	})
}

// forward runs req and writes the error envelope when the call failed.
// It reports whether the caller should write a success response.
func (h *Handler) forward(c *fiber.Ctx, req Request, failure string) (*Response, bool) {
	target := h.fwd.Target(req)

	resp, err := h.fwd.Forward(c.UserContext(), req)
	if err != nil {
		msg := transportMessage(err)
		if msg == "" {
			msg = "Failed to fetch upstream"
			if req.Route == RouteUpload {
				msg = "Failed to upload"
			}
		}
		h.writeError(c, fiber.StatusBadGateway, models.ErrorEnvelope{
			Message: msg,
			Base:    h.fwd.Base(),
			Target:  target,
		})
		return nil, false
	}

	if !resp.OK() {
		msg := normalize.UpstreamMessage(resp.Body)
		if msg == "" {
			msg = fmt.Sprintf("%s (%d)", failure, resp.Status)
		}
		h.log.Info("upstream returned error",
			zap.String("route", req.Route),
			zap.Int("status", resp.Status),
			zap.String("message", msg),
		)
		h.writeError(c, resp.Status, models.ErrorEnvelope{
			Message: msg,
			Base:    h.fwd.Base(),
			Target:  target,
			Status:  resp.Status,
		})
		return nil, false
	}

	return resp, true
}

func (h *Handler) writeError(c *fiber.Ctx, status int, env models.ErrorEnvelope) {
	c.Set(fiber.HeaderCacheControl, "no-store")
	if err := c.Status(status).JSON(env); err != nil {
		h.log.Error("failed to write error response", zap.Error(err))
	}
}

func sendJSON(c *fiber.Ctx, status int, body []byte) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(status).Send(body)
}

// transportMessage strips the method and URL that net/http prepends, since
// the envelope already carries the target.
func transportMessage(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err.Error()
	}
	return err.Error()
}
