package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestREST_HealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		writeJSON(w, 200, `{"status":"ok","timestamp":"2026-01-02T03:04:05Z"}`)
	}))
	defer srv.Close()

	health, err := NewREST(srv.URL+"/", time.Second, nil).HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "2026-01-02T03:04:05Z", health.Timestamp)
}

func TestREST_AuthToken(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		writeJSON(w, 200, `{}`)
	}))
	defer srv.Close()

	rc := NewREST(srv.URL, time.Second, nil)
	rc.SetAuthToken("abc")
	require.NoError(t, rc.Get(context.Background(), "/x", nil))
	rc.RemoveAuthToken()
	require.NoError(t, rc.Delete(context.Background(), "/x", nil))

	assert.Equal(t, []string{"Bearer abc", ""}, seen)
}

func TestREST_PostDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		writeJSON(w, 201, `{"name":"created"}`)
	}))
	defer srv.Close()

	var out struct {
		Name string `json:"name"`
	}
	err := NewREST(srv.URL, time.Second, nil).Post(context.Background(), "/items", map[string]string{"name": "x"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "created", out.Name)
}

func TestREST_Errors(t *testing.T) {
	t.Run("upstream message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 403, `{"message":"forbidden"}`)
		}))
		defer srv.Close()

		err := NewREST(srv.URL, time.Second, nil).Get(context.Background(), "/x", nil)
		require.Error(t, err)
		assert.Equal(t, "API request failed: forbidden", err.Error())
	})

	t.Run("status text", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(500)
		}))
		defer srv.Close()

		err := NewREST(srv.URL, time.Second, nil).Get(context.Background(), "/x", nil)
		require.Error(t, err)
		assert.Equal(t, "API request failed: HTTP 500: Internal Server Error", err.Error())
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		err := NewREST(srv.URL, 50*time.Millisecond, nil).Get(context.Background(), "/slow", nil)
		require.Error(t, err)
		assert.Equal(t, "Request timeout after 50ms", err.Error())
	})
}
