package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-search/internal/models"
)

type call struct {
	method      string
	path        string
	query       string
	body        string
	contentType string
}

type fakeServer struct {
	*httptest.Server
	mu    sync.Mutex
	calls []call
}

func (f *fakeServer) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func newFakeServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *fakeServer {
	t.Helper()
	f := &fakeServer{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(data))
		f.mu.Lock()
		f.calls = append(f.calls, call{
			method:      r.Method,
			path:        r.URL.Path,
			query:       r.URL.RawQuery,
			body:        string(data),
			contentType: r.Header.Get("Content-Type"),
		})
		f.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newAPI(proxy, backend string) *CandidateAPI {
	return NewCandidateAPI(proxy, backend, 5*time.Second, nil, nil)
}

func TestSearchEligible_GetSucceeds(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"candidates":[{"id":"1","name":"Ana","score":0.92}],"total":1,"nextOffset":10}`)
	})
	api := newAPI(srv.URL, "http://backend")

	offset := 0
	resp, err := api.SearchEligible(context.Background(), "go developer", 10, &Filters{Skills: "go,sql", Offset: &offset})
	require.NoError(t, err)

	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "Ana", resp.Candidates[0].Name)
	assert.True(t, resp.HasMore())

	calls := srv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "GET", calls[0].method)
	assert.Equal(t, "/api/eligible-candidates", calls[0].path)
	assert.Equal(t, "k=10&offset=0&q=go+developer&skills=go%2Csql", calls[0].query)
}

func TestSearchEligible_EmptyQueryOmitsQ(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"candidates":[]}`)
	})
	api := newAPI(srv.URL, "http://backend")

	resp, err := api.SearchEligible(context.Background(), "", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, resp.Candidates)
	assert.Equal(t, "k=5", srv.Calls()[0].query)
}

func TestSearchEligible_Get500FallsBackToOnePost(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			writeJSON(w, 500, `{"message":"GET not supported"}`)
			return
		}
		writeJSON(w, 200, `{"candidates":[{"id":"7","score":3}],"total":1}`)
	})
	api := newAPI(srv.URL, "http://backend")

	resp, err := api.SearchEligible(context.Background(), "pm", 3, &Filters{Sector: "fintech", Location: "Pune"})
	require.NoError(t, err)
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, models.FlexString("7"), resp.Candidates[0].ID)

	calls := srv.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "GET", calls[0].method)
	assert.Equal(t, "POST", calls[1].method)
	assert.Equal(t, "application/json", calls[1].contentType)
	assert.JSONEq(t, `{"q":"pm","k":3,"sector":"fintech","location":"Pune"}`, calls[1].body)
}

func TestSearchEligible_BothFail(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{name: "upstream message", body: `{"message":"index offline"}`, wantMsg: "index offline"},
		{name: "json without message", body: `{"detail":"x"}`, wantMsg: "Search failed"},
		{name: "not json", body: `oops`, wantMsg: "Search failed (502)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, 502, tt.body)
			})
			api := newAPI(srv.URL, "http://backend")

			_, err := api.SearchEligible(context.Background(), "x", 1, nil)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, 502, apiErr.Status)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Len(t, srv.Calls(), 2)
		})
	}
}

func TestSearchEligible_Get400FallsBackToOnePost(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			writeJSON(w, 400, `{"message":"bad"}`)
			return
		}
		writeJSON(w, 200, `{"candidates":[{"id":"3","name":"Ravi"}],"total":1}`)
	})
	api := newAPI(srv.URL, "http://backend")

	resp, err := api.SearchEligible(context.Background(), "x", 1, nil)
	require.NoError(t, err)
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "Ravi", resp.Candidates[0].Name)

	calls := srv.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "GET", calls[0].method)
	assert.Equal(t, "POST", calls[1].method)
}

func TestSearchEligible_LenientSkills(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"candidates":[{"id":"1","skills":"go, sql"},{"id":"2","skills":["rust"]},{"id":"3","skills":null}]}`)
	})
	api := newAPI(srv.URL, "http://backend")

	resp, err := api.SearchEligible(context.Background(), "x", 3, nil)
	require.NoError(t, err)
	require.Len(t, resp.Candidates, 3)
	assert.Equal(t, models.SkillList{"go", "sql"}, resp.Candidates[0].Skills)
	assert.Equal(t, models.SkillList{"rust"}, resp.Candidates[1].Skills)
	assert.Empty(t, resp.Candidates[2].Skills)
}

func TestGetCandidate(t *testing.T) {
	t.Run("404 yields placeholder", func(t *testing.T) {
		srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 404, `{"error":"candidate not found"}`)
		})
		api := newAPI("http://proxy", srv.URL)

		got := api.GetCandidate(context.Background(), "X")

		out, err := json.Marshal(got)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"X","score":0,"pdfId":"X","pdfUrl":"`+srv.URL+`/pdf/X.pdf"}`, string(out))
		assert.Equal(t, "/candidates/X", srv.Calls()[0].path)
	})

	t.Run("server error adds summary", func(t *testing.T) {
		srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 500, `{"message":"db down"}`)
		})
		api := newAPI("http://proxy", srv.URL)

		got := api.GetCandidate(context.Background(), "X")
		assert.Equal(t, "Upstream error: db down", got.Summary)
		assert.Equal(t, srv.URL+"/pdf/X.pdf", got.PdfURL)
	})

	t.Run("non json error body", func(t *testing.T) {
		srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(503)
		})
		api := newAPI("http://proxy", srv.URL)

		got := api.GetCandidate(context.Background(), "X")
		assert.Equal(t, "Upstream error: Fetch failed (503)", got.Summary)
	})

	t.Run("unreachable backend", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		base := srv.URL
		srv.Close()
		api := newAPI("http://proxy", base)

		got := api.GetCandidate(context.Background(), "X")
		assert.Equal(t, models.FlexString("X"), got.ID)
		assert.Equal(t, base+"/pdf/X.pdf", got.PdfURL)
		assert.Empty(t, got.Summary)
	})

	t.Run("non json success body", func(t *testing.T) {
		srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>oops"))
		})
		api := newAPI("http://proxy", srv.URL)

		got := api.GetCandidate(context.Background(), "X")

		out, err := json.Marshal(got)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"X","score":0,"pdfId":"X","pdfUrl":"`+srv.URL+`/pdf/X.pdf"}`, string(out))
	})

	t.Run("success derives pdf link", func(t *testing.T) {
		srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 200, `{"id":12,"name":"Ana","score":0.9,"pdf_id":"cv-12","experience":[{"company":"Acme","role":"PM"}]}`)
		})
		api := newAPI("http://proxy", srv.URL)

		got := api.GetCandidate(context.Background(), "12")
		assert.Equal(t, "Ana", got.Name)
		assert.Equal(t, models.FlexString("12"), got.ID)
		assert.Equal(t, models.FlexString("cv-12"), got.PdfID)
		assert.Equal(t, srv.URL+"/pdf/cv-12.pdf", got.PdfURL)
		require.Len(t, got.Experience, 1)
		assert.Equal(t, "Acme", got.Experience[0].Company)
	})
}

func TestUploadCV_RejectsNonPDFWithoutRequest(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()
	api := newAPI(srv.URL, srv.URL)

	_, err := api.UploadCV(context.Background(), Upload{
		Filename:    "cv.docx",
		ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Body:        strings.NewReader("PK"),
	})

	require.ErrorIs(t, err, ErrNotPDF)
	assert.Equal(t, "Please select a PDF file", err.Error())
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestUploadCV_SendsMultipart(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, 400, `{"error":"missing form field 'file'"}`)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "cv.pdf" || string(data) != "%PDF-1.4" || header.Header.Get("Content-Type") != "application/pdf" {
			writeJSON(w, 422, `{"message":"unexpected file"}`)
			return
		}
		writeJSON(w, 200, `{"success":true,"message":"CV uploaded","fileId":"f1","metadata":{"name":"Ana","email":"ana@example.com","skills":["go"]}}`)
	})
	api := newAPI(srv.URL, "http://backend")

	resp, err := api.UploadCV(context.Background(), Upload{Filename: "cv.pdf", ContentType: "application/pdf", Body: strings.NewReader("%PDF-1.4")})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "f1", resp.FileID)
	require.NotNil(t, resp.Metadata)
	assert.Equal(t, "Ana", resp.Metadata.Name)
	assert.Equal(t, []string{"go"}, resp.Metadata.Skills)
	assert.Equal(t, "/api/upload-cv", srv.Calls()[0].path)
}

func TestUploadCV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "message", status: 400, body: `{"message":"file too large"}`, wantMsg: "file too large"},
		{name: "json without message", status: 500, body: `{}`, wantMsg: "Upload failed"},
		{name: "not json", status: 500, body: `boom`, wantMsg: "Upload failed with status 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			api := newAPI(srv.URL, "http://backend")

			_, err := api.UploadCV(context.Background(), Upload{Filename: "cv.pdf", ContentType: "application/pdf", Body: strings.NewReader("x")})
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("application/pdf"))
	assert.True(t, IsPDF("application/pdf; name=cv.pdf"))
	assert.False(t, IsPDF("application/octet-stream"))
	assert.False(t, IsPDF(""))
}
