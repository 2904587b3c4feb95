package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"alfredoptarigan/cv-search/internal/metrics"
	"alfredoptarigan/cv-search/internal/models"
	"alfredoptarigan/cv-search/internal/normalize"
)

const pdfContentType = "application/pdf"

// Filters narrow a candidate search. Empty fields are not sent.
type Filters struct {
	Skills   string
	Sector   string
	Location string
	Offset   *int
}

// Upload is a single CV file.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// CandidateAPI calls the /api proxy surface for searches and uploads, and
// the backend directly for candidate details.
type CandidateAPI struct {
	proxyURL   string
	backendURL string
	http       *http.Client
	metrics    *metrics.Manager
	log        *zap.Logger
}

func NewCandidateAPI(proxyURL, backendURL string, timeout time.Duration, m *metrics.Manager, log *zap.Logger) *CandidateAPI {
	if log == nil {
		log = zap.NewNop()
	}
	return &CandidateAPI{
		proxyURL:   strings.TrimRight(proxyURL, "/"),
		backendURL: strings.TrimRight(backendURL, "/"),
		http:       &http.Client{Timeout: timeout},
		metrics:    m,
		log:        log,
	}
}

// WithHTTPClient swaps the transport, mainly for tests.
func (a *CandidateAPI) WithHTTPClient(c *http.Client) *CandidateAPI {
	a.http = c
	return a
}

func (a *CandidateAPI) BackendURL() string { return a.backendURL }

// SearchEligible runs a GET search and, when the GET is not OK, retries
// exactly once with the same parameters as a JSON body.
func (a *CandidateAPI) SearchEligible(ctx context.Context, query string, limit int, f *Filters) (*models.SearchResponse, error) {
	if f == nil {
		f = &Filters{}
	}

	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	params.Set("k", strconv.Itoa(limit))
	if f.Offset != nil {
		params.Set("offset", strconv.Itoa(*f.Offset))
	}
	if f.Skills != "" {
		params.Set("skills", f.Skills)
	}
	if f.Sector != "" {
		params.Set("sector", f.Sector)
	}
	if f.Location != "" {
		params.Set("location", f.Location)
	}

	endpoint := a.proxyURL + "/api/eligible-candidates"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	status, data, err := a.send(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search candidates: %w", err)
	}

	if !ok(status) {
		a.metrics.IncSearchFallback()
		a.log.Debug("search GET failed, retrying with POST", zap.Int("status", status))

		body := models.SearchRequest{
			Q:        query,
			K:        limit,
			Skills:   f.Skills,
			Sector:   f.Sector,
			Location: f.Location,
			Offset:   f.Offset,
		}
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode search body: %w", err)
		}

		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to build search request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		status, data, err = a.send(req)
		if err != nil {
			return nil, fmt.Errorf("failed to search candidates: %w", err)
		}
	}

	if !ok(status) {
		return nil, failure(status, data, "Search failed", "Search failed (%d)")
	}

	var resp models.SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	if resp.Candidates == nil {
		resp.Candidates = []models.Candidate{}
	}
	return &resp, nil
}

// GetCandidate never fails: any problem yields a placeholder that still
// links to the stored PDF.
func (a *CandidateAPI) GetCandidate(ctx context.Context, id string) *models.CandidateDetail {
	base := a.backendURL
	placeholder := models.PlaceholderDetail(id, base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/candidates/"+url.PathEscape(id), nil)
	if err != nil {
		return placeholder
	}
	req.Header.Set("Cache-Control", "no-store")

	status, data, err := a.send(req)
	if err != nil {
		a.log.Warn("candidate fetch failed", zap.String("id", id), zap.Error(err))
		return placeholder
	}

	if status == http.StatusNotFound {
		return placeholder
	}
	if !ok(status) {
		msg := fmt.Sprintf("Fetch failed (%d)", status)
		if gjson.ValidBytes(data) {
			msg = normalize.UpstreamMessage(data)
		}
		if msg != "" {
			placeholder.Summary = "Upstream error: " + msg
		}
		return placeholder
	}

	if !gjson.ValidBytes(data) {
		a.log.Warn("candidate response is not JSON", zap.String("id", id))
		return placeholder
	}

	var detail models.CandidateDetail
	if err := json.Unmarshal(normalize.Detail(data, base, id), &detail); err != nil {
		a.log.Warn("candidate decode failed", zap.String("id", id), zap.Error(err))
		return placeholder
	}
	return &detail
}

// UploadCV sends a PDF as the multipart field "file". Non-PDF uploads are
// rejected with ErrNotPDF without touching the network.
func (a *CandidateAPI) UploadCV(ctx context.Context, up Upload) (*models.UploadResponse, error) {
	if !IsPDF(up.ContentType) {
		return nil, ErrNotPDF
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, up.Filename))
	header.Set("Content-Type", pdfContentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, up.Body); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.proxyURL+"/api/upload-cv", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	status, data, err := a.send(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload CV: %w", err)
	}
	if !ok(status) {
		return nil, failure(status, data, "Upload failed", "Upload failed with status %d")
	}

	var resp models.UploadResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return &resp, nil
}

// IsPDF reports whether a declared content type is application/pdf.
func IsPDF(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == pdfContentType
}

func (a *CandidateAPI) send(req *http.Request) (int, []byte, error) {
	resp, err := a.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// failure builds the error for a final non-OK response. A non-JSON body
// yields statusMsg, a JSON body without a message yields generic.
func failure(status int, data []byte, generic, statusMsg string) *APIError {
	if !gjson.ValidBytes(data) {
		return newAPIError(status, statusMsg, status)
	}
	if msg := gjson.GetBytes(data, "message"); msg.Type == gjson.String && msg.Str != "" {
		return &APIError{Status: status, Message: msg.Str}
	}
	return &APIError{Status: status, Message: generic}
}

func ok(status int) bool {
	return status >= 200 && status < 300
}
