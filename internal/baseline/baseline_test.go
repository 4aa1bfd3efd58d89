package baseline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docmind-go/internal/rag"
	"github.com/54b3r/docmind-go/internal/splitter"
)

// memStore is an in-memory rag.VectorStore keyed by doc and chunk index.
type memStore struct {
	chunks     []rag.Chunk
	embeddings [][]float32
	searchErr  error
}

func (s *memStore) Upsert(ctx context.Context, chunks []rag.Chunk, embeddings [][]float32) error {
	s.chunks = append(s.chunks, chunks...)
	s.embeddings = append(s.embeddings, embeddings...)
	return nil
}

func (s *memStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]rag.Chunk, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if len(s.chunks) > topK {
		return s.chunks[:topK], nil
	}
	return s.chunks, nil
}

func (s *memStore) Close() error { return nil }

// unitEmbedder returns a fixed-dimension vector per text.
type unitEmbedder struct {
	calls int
}

func (e *unitEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

// captureGen records the messages it was asked to complete.
type captureGen struct {
	got   []*schema.Message
	reply string
}

func (g *captureGen) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	g.got = input
	return schema.AssistantMessage(g.reply, nil), nil
}

func sentences(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "Sentence number %d describes the harbor. ", i)
	}
	return sb.String()
}

func Test_Index_AddSplitsAndUpserts(t *testing.T) {
	t.Parallel()

	st := &memStore{}
	x, err := New(&unitEmbedder{}, st, &captureGen{}, splitter.New(4, 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	n, err := x.Add(context.Background(), rag.Document{ID: "harbor", Title: "Harbor", Content: sentences(12)})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if n == 0 {
		t.Fatal("no chunks indexed")
	}
	if len(st.chunks) != n {
		t.Errorf("store holds %d chunks, Add reported %d", len(st.chunks), n)
	}
	if len(st.embeddings) != len(st.chunks) {
		t.Errorf("embeddings (%d) and chunks (%d) out of step", len(st.embeddings), len(st.chunks))
	}
}

func Test_Index_AddEmptyDocument(t *testing.T) {
	t.Parallel()

	emb := &unitEmbedder{}
	x, err := New(emb, &memStore{}, &captureGen{}, splitter.New(0, 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	n, err := x.Add(context.Background(), rag.Document{ID: "empty", Title: "Empty"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if n != 0 {
		t.Errorf("indexed %d chunks from empty document", n)
	}
	if emb.calls != 0 {
		t.Errorf("embedder called %d times for empty document", emb.calls)
	}
}

func Test_Index_QueryStuffsContext(t *testing.T) {
	t.Parallel()

	st := &memStore{chunks: []rag.Chunk{
		{DocID: "harbor", Index: 0, Text: "The harbor freezes in winter."},
		{DocID: "airport", Index: 0, Text: "The airport opened in 1998."},
	}}
	gen := &captureGen{reply: "It freezes in winter."}
	x, err := New(&unitEmbedder{}, st, gen, splitter.New(0, 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	answer, err := x.Query(context.Background(), "When does the harbor freeze?", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if answer != "It freezes in winter." {
		t.Errorf("answer = %q", answer)
	}

	if len(gen.got) != 2 {
		t.Fatalf("generator got %d messages, want 2", len(gen.got))
	}
	user := gen.got[1].Content
	if !strings.Contains(user, "The harbor freezes in winter.") {
		t.Errorf("context missing retrieved chunk: %q", user)
	}
	if !strings.Contains(user, "from harbor") {
		t.Errorf("context missing source attribution: %q", user)
	}
	if !strings.Contains(user, "When does the harbor freeze?") {
		t.Errorf("context missing question: %q", user)
	}
}

func Test_Index_QueryEmptyCorpus(t *testing.T) {
	t.Parallel()

	gen := &captureGen{reply: "should not be called"}
	x, err := New(&unitEmbedder{}, &memStore{}, gen, splitter.New(0, 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	answer, err := x.Query(context.Background(), "anything", 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !strings.Contains(answer, "No relevant passages") {
		t.Errorf("answer = %q", answer)
	}
	if gen.got != nil {
		t.Error("generator should not be called for empty retrieval")
	}
}

func Test_Index_QuerySearchError(t *testing.T) {
	t.Parallel()

	st := &memStore{searchErr: fmt.Errorf("collection missing")}
	x, err := New(&unitEmbedder{}, st, &captureGen{}, splitter.New(0, 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := x.Query(context.Background(), "q", 1); err == nil {
		t.Error("expected error when search fails")
	}
}
