package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestHandleCorpus_ListsDocuments verifies that GET /api/corpus returns every
// loaded document with its metadata and the aggregate chunk count.
func TestHandleCorpus_ListsDocuments(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.docs = []DocumentInfo{
		{ID: "toronto", Title: "Toronto", Synopsis: "Largest city in Canada.", Chunks: 42},
		{ID: "boston", Title: "Boston", Synopsis: "Capital of Massachusetts.", Chunks: 37},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/corpus", nil)
	w := httptest.NewRecorder()

	s.handleCorpus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: expected application/json, got %q", ct)
	}

	var resp corpusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(resp.Documents))
	}
	if resp.Documents[0].ID != "toronto" || resp.Documents[1].ID != "boston" {
		t.Errorf("documents out of order: %+v", resp.Documents)
	}
	if resp.Chunks != 79 {
		t.Errorf("expected 79 total chunks, got %d", resp.Chunks)
	}
}

// TestHandleCorpus_EmptyCorpus verifies that an empty corpus yields an empty
// documents array rather than null.
func TestHandleCorpus_EmptyCorpus(t *testing.T) {
	t.Parallel()

	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/corpus", nil)
	w := httptest.NewRecorder()

	s.handleCorpus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	body := w.Body.String()
	var resp corpusResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Documents == nil {
		t.Errorf("expected empty array, got null — body: %s", body)
	}
	if resp.Chunks != 0 {
		t.Errorf("expected 0 chunks, got %d", resp.Chunks)
	}
}
