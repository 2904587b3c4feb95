package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"alfredoptarigan/cv-search/internal/models"
	"alfredoptarigan/cv-search/internal/normalize"
)

// REST is a small JSON client with a per-request timeout and default
// headers shared by every call.
type REST struct {
	baseURL string
	timeout time.Duration
	http    *http.Client

	mu      sync.RWMutex
	headers map[string]string
}

func NewREST(baseURL string, timeout time.Duration, httpClient *http.Client) *REST {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &REST{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    httpClient,
		headers: map[string]string{"Content-Type": "application/json"},
	}
}

func (r *REST) BaseURL() string { return r.baseURL }

func (r *REST) SetAuthToken(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.headers["Authorization"] = "Bearer " + token
}

func (r *REST) RemoveAuthToken() {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.headers, "Authorization")
}

func (r *REST) Get(ctx context.Context, endpoint string, out interface{}) error {
	return r.do(ctx, http.MethodGet, endpoint, nil, out)
}

func (r *REST) Post(ctx context.Context, endpoint string, body, out interface{}) error {
	return r.do(ctx, http.MethodPost, endpoint, body, out)
}

func (r *REST) Put(ctx context.Context, endpoint string, body, out interface{}) error {
	return r.do(ctx, http.MethodPut, endpoint, body, out)
}

func (r *REST) Patch(ctx context.Context, endpoint string, body, out interface{}) error {
	return r.do(ctx, http.MethodPatch, endpoint, body, out)
}

func (r *REST) Delete(ctx context.Context, endpoint string, out interface{}) error {
	return r.do(ctx, http.MethodDelete, endpoint, nil, out)
}

// HealthCheck asks the proxy surface whether it is up.
func (r *REST) HealthCheck(ctx context.Context) (*models.HealthResponse, error) {
	var health models.HealthResponse
	if err := r.Get(ctx, "/api/health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

func (r *REST) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("API request failed: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	r.mu.RLock()
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	r.mu.RUnlock()

	resp, err := r.http.Do(req)
	if err != nil {
		return r.wrap(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return r.wrap(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := normalize.UpstreamMessage(data)
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return newAPIError(resp.StatusCode, "API request failed: %s", msg)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	return nil
}

func (r *REST) wrap(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("Request timeout after %dms", r.timeout.Milliseconds())
	}
	return fmt.Errorf("API request failed: %w", err)
}
