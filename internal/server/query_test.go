package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ---------------------------------------------------------------------------
// Fake querier for query handler tests
// ---------------------------------------------------------------------------

// fakeQuerier implements the querier interface for tests.
// It writes a fixed response to the writer and returns a configurable error.
type fakeQuerier struct {
	// response is written verbatim to the writer on each Query call.
	response string
	// err is returned as the error value.
	err error
}

func (f *fakeQuerier) Query(_ context.Context, _ string, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, _ = fmt.Fprint(w, f.response)
	return nil
}

// newTestServer builds a *Server with a fresh isolated metrics registry so
// tests do not pollute prometheus.DefaultRegisterer.
func newTestServer() *Server {
	return &Server{
		querier: &fakeQuerier{},
		cfg:     &Config{QueryTimeout: time.Minute},
		log:     slog.Default(),
		metrics: newServerMetrics(prometheus.NewRegistry()),
	}
}

// newQueryTestServer builds a *Server wired with the given querier fake.
func newQueryTestServer(q querier) *Server {
	s := newTestServer()
	s.querier = q
	return s
}

// ---------------------------------------------------------------------------
// POST /api/query — validation error paths (no agent needed)
// ---------------------------------------------------------------------------

func TestHandleQuery_MissingQuestion(t *testing.T) {
	t.Parallel()

	s := newQueryTestServer(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"question":"   "}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleQuery_InvalidJSON(t *testing.T) {
	t.Parallel()

	s := newQueryTestServer(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`not-json`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /api/query — happy path (fake querier, SSE response)
// ---------------------------------------------------------------------------

// TestHandleQuery_Success verifies that a valid request produces an SSE stream
// with a "done" event. httptest.ResponseRecorder implements http.Flusher so
// the handler's flusher check passes without a real connection.
func TestHandleQuery_Success(t *testing.T) {
	t.Parallel()

	q := &fakeQuerier{response: "Boston has a larger historic core than Houston."}
	s := newQueryTestServer(q)

	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"question":"compare the two cities"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	body := w.Body.String()

	if !strings.Contains(body, "data: Boston has a larger historic core") {
		t.Errorf("expected SSE data frame in body, got: %s", body)
	}
	if !strings.Contains(body, "event: done") {
		t.Errorf("expected SSE done event in body, got: %s", body)
	}
	if !strings.Contains(body, "[DONE]") {
		t.Errorf("expected [DONE] sentinel in body, got: %s", body)
	}
}

// TestHandleQuery_AgentError verifies that when the querier returns an error,
// the SSE stream includes an "error" event and the response is still 200
// (SSE errors are delivered in-band, not via HTTP status).
func TestHandleQuery_AgentError(t *testing.T) {
	t.Parallel()

	q := &fakeQuerier{err: fmt.Errorf("LLM unavailable")}
	s := newQueryTestServer(q)

	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"question":"anything"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "event: error") {
		t.Errorf("expected error event in body, got: %s", body)
	}
	if !strings.Contains(body, "LLM unavailable") {
		t.Errorf("expected error message in body, got: %s", body)
	}
}

// TestSSEWriter_MultiLine verifies that multi-line chunks are framed with one
// "data: " prefix per line so the SSE frame boundary is never broken.
func TestSSEWriter_MultiLine(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	sw := &sseWriter{w: w, flusher: w}

	if _, err := sw.Write([]byte("line one\nline two\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := w.Body.String()
	want := "data: line one\ndata: line two\n\n"
	if got != want {
		t.Errorf("frame: got %q, want %q", got, want)
	}
}
