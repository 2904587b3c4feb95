// Package proxy forwards the front-end's /api routes to the candidate
// backend and shapes the responses.
package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/cv-search/internal/metrics"
)

// Request describes one upstream call.
type Request struct {
	Route       string
	Method      string
	Path        string
	RawQuery    string
	Body        []byte
	ContentType string
}

// Response is an upstream reply that was fully read.
type Response struct {
	Status      int
	Body        []byte
	ContentType string
}

func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Forwarder issues uncached calls against a fixed upstream base URL.
type Forwarder struct {
	base    string
	client  *http.Client
	metrics *metrics.Manager
	log     *zap.Logger
}

func NewForwarder(base string, client *http.Client, m *metrics.Manager, log *zap.Logger) *Forwarder {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Forwarder{
		base:    strings.TrimRight(base, "/"),
		client:  client,
		metrics: m,
		log:     log,
	}
}

func (f *Forwarder) Base() string { return f.base }

// Target is the absolute upstream URL for req.
func (f *Forwarder) Target(req Request) string {
	target := f.base + req.Path
	if req.RawQuery != "" {
		target += "?" + req.RawQuery
	}
	return target
}

// Forward performs req. A non-nil error means no upstream response was
// obtained; upstream error statuses are returned as a Response.
func (f *Forwarder) Forward(ctx context.Context, req Request) (*Response, error) {
	target := f.Target(req)
	start := time.Now()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	httpReq.Header.Set("Cache-Control", "no-store")
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil && req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		f.metrics.ObserveUpstream(req.Route, 0, time.Since(start))
		f.log.Warn("upstream unreachable",
			zap.String("route", req.Route),
			zap.String("target", target),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	f.metrics.ObserveUpstream(req.Route, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	f.log.Debug("upstream call",
		zap.String("route", req.Route),
		zap.String("method", req.Method),
		zap.String("target", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Response{
		Status:      resp.StatusCode,
		Body:        data,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
