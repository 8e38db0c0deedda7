package server

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gridwatch/dcimpact/pkg/scenario"
	"github.com/gridwatch/dcimpact/pkg/storage"
	"github.com/gridwatch/dcimpact/pkg/storage/storagemock"
	"github.com/gridwatch/dcimpact/pkg/types"
)

var testNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(db storage.Database) *Server {
	return &Server{
		storage:    db,
		base:       scenario.Default(),
		listenAddr: ":8080",
		serverName: "dcimpact/test",
		now:        func() time.Time { return testNow },
	}
}

func do(t *testing.T, h http.Handler, method, target string, body []byte, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&storagemock.MockDatabase{})
	w := do(t, srv.setupHandler(), "GET", "/healthz", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Equal(t, "dcimpact/test", w.Header().Get("Server"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", w.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Empty(t, w.Header().Get("Cache-Control"))
}

func TestAPICacheControl(t *testing.T) {
	db := &storagemock.MockDatabase{}
	db.On("SaveRun", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("boom"))
	db.On("ListRuns", mock.Anything, defaultListLimit).Return([]types.Run{}, nil)
	h := newTestServer(db).setupHandler()

	w := do(t, h, "POST", "/api/runs", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	w = do(t, h, "GET", "/api/runs", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, cacheShort, w.Header().Get("Cache-Control"))
}

func TestMetrics(t *testing.T) {
	db := &storagemock.MockDatabase{}
	db.On("ListRuns", mock.Anything, defaultListLimit).Return([]types.Run{}, nil)
	h := newTestServer(db).setupHandler()

	w := do(t, h, "GET", "/api/runs", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, "GET", "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `dcimpact_http_requests_total{code="200",route="GET /api/runs"}`)
	assert.Contains(t, w.Body.String(), "dcimpact_http_request_duration_seconds")
}

func TestGzip(t *testing.T) {
	db := storage.NewMemory()
	srv := newTestServer(db)
	h := srv.setupHandler()

	w := do(t, h, "POST", "/api/runs", nil, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var run types.Run
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))

	w = do(t, h, "GET", "/api/runs/"+run.ID+"/records", nil, map[string]string{"Accept-Encoding": "gzip"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	var records []types.TimeSeriesRecord
	require.NoError(t, json.NewDecoder(zr).Decode(&records))
	assert.Len(t, records, 216)
}

func TestRunShutdown(t *testing.T) {
	srv := newTestServer(&storagemock.MockDatabase{})
	srv.listenAddr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
