package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docmind-go/internal/docagent"
	"github.com/54b3r/docmind-go/internal/loader"
	"github.com/54b3r/docmind-go/internal/splitter"
	"github.com/54b3r/docmind-go/internal/toolreg"
)

// hashEmbedder produces a deterministic unit vector per text and counts
// Embed calls so cache behaviour is observable.
type hashEmbedder struct {
	calls int
}

func (e *hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 4)
		for j, r := range t {
			v[j%4] += float32(r%13) + 1
		}
		out[i] = v
	}
	return out, nil
}

// stubChat satisfies model.ToolCallingChatModel; Generate returns a fixed
// synopsis so the builder's summary generation is deterministic.
type stubChat struct{}

func (stubChat) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage("A short test synopsis.", nil), nil
}
func (stubChat) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}
func (m stubChat) WithTools(_ []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// writeTestCorpus creates a two-document HTML corpus in a temp directory.
func writeTestCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	pages := map[string]string{
		"toronto.html": "<html><head><title>Toronto</title></head><body><p>Toronto is the largest city in Canada. It sits on Lake Ontario. The city has many neighbourhoods.</p></body></html>",
		"boston.html":  "<html><head><title>Boston</title></head><body><p>Boston is the capital of Massachusetts. It is one of the oldest cities in the United States. The harbour shaped its history.</p></body></html>",
	}
	for name, content := range pages {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// newTestPipeline wires a Pipeline with fakes and a temp cache directory.
func newTestPipeline(t *testing.T, cacheDir string, embed *hashEmbedder) *Pipeline {
	t.Helper()

	split := splitter.New(2, 0)
	builder, err := docagent.NewBuilder(embed, stubChat{}, split, cacheDir, 0)
	if err != nil {
		t.Fatalf("builder: %v", err)
	}
	registry, err := toolreg.NewRegistry(embed)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	p, err := NewPipeline(loader.New(loader.Config{}), builder, stubChat{}, embed, registry, nil)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	return p
}

func Test_Run_BuildsAgentsAndSummaries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	corpus := writeTestCorpus(t)
	cache := t.TempDir()
	embed := &hashEmbedder{}
	p := newTestPipeline(t, cache, embed)

	var progress []string
	result, err := p.Run(ctx, corpus, func(msg string) { progress = append(progress, msg) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Documents != 2 {
		t.Errorf("Documents = %d, want 2", result.Documents)
	}
	if result.Rebuilt != 2 {
		t.Errorf("Rebuilt = %d, want 2 on a cold cache", result.Rebuilt)
	}
	if len(result.Agents) != 2 {
		t.Fatalf("Agents = %d, want 2", len(result.Agents))
	}
	if result.Chunks == 0 {
		t.Error("expected at least one chunk")
	}
	if len(progress) == 0 {
		t.Error("expected progress messages")
	}

	// Docs summaries mirror the built agents in corpus order.
	if len(result.Docs) != 2 {
		t.Fatalf("Docs = %d, want 2", len(result.Docs))
	}
	for i, d := range result.Docs {
		if d.ID != result.Agents[i].DocID() {
			t.Errorf("doc %d: ID %q does not match agent %q", i, d.ID, result.Agents[i].DocID())
		}
		if d.Synopsis != "A short test synopsis." {
			t.Errorf("doc %d: synopsis %q", i, d.Synopsis)
		}
		if d.Chunks == 0 {
			t.Errorf("doc %d: expected chunks", i)
		}
	}
}

func Test_Run_SecondRunUsesCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	corpus := writeTestCorpus(t)
	cache := t.TempDir()

	first := &hashEmbedder{}
	if _, err := newTestPipeline(t, cache, first).Run(ctx, corpus, nil); err != nil {
		t.Fatalf("first run: %v", err)
	}

	second := &hashEmbedder{}
	result, err := newTestPipeline(t, cache, second).Run(ctx, corpus, nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if result.Rebuilt != 0 {
		t.Errorf("Rebuilt = %d, want 0 on a warm cache", result.Rebuilt)
	}
	// Registration still embeds each tool description, but no chunk content.
	if second.calls != 2 {
		t.Errorf("embedder calls = %d, want 2 (one per tool registration)", second.calls)
	}
}

func Test_Run_EmptyCorpusFails(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, t.TempDir(), &hashEmbedder{})
	if _, err := p.Run(context.Background(), t.TempDir(), nil); err == nil {
		t.Error("expected error for empty corpus directory")
	}
}

func Test_NewPipeline_Validation(t *testing.T) {
	t.Parallel()

	embed := &hashEmbedder{}
	split := splitter.New(2, 0)
	builder, err := docagent.NewBuilder(embed, stubChat{}, split, t.TempDir(), 0)
	if err != nil {
		t.Fatalf("builder: %v", err)
	}
	registry, err := toolreg.NewRegistry(embed)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	load := loader.New(loader.Config{})

	if _, err := NewPipeline(nil, builder, stubChat{}, embed, registry, nil); err == nil {
		t.Error("expected error for nil loader")
	}
	if _, err := NewPipeline(load, nil, stubChat{}, embed, registry, nil); err == nil {
		t.Error("expected error for nil builder")
	}
	if _, err := NewPipeline(load, builder, nil, embed, registry, nil); err == nil {
		t.Error("expected error for nil chat model")
	}
	if _, err := NewPipeline(load, builder, stubChat{}, nil, registry, nil); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewPipeline(load, builder, stubChat{}, embed, nil, nil); err == nil {
		t.Error("expected error for nil registry")
	}
}
