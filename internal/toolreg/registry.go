// Package toolreg maintains a registry of agent tools indexed by embeddings
// of their descriptions, so a top-level agent can retrieve only the tools
// relevant to a query instead of exposing every document agent at once.
package toolreg

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/cloudwego/eino/components/tool"

	"github.com/54b3r/docmind-go/internal/rag"
)

// DescribedTool is a tool with a stable name and an LLM-facing description.
// The description is what gets embedded for retrieval.
type DescribedTool interface {
	tool.BaseTool
	// Name returns the unique tool name.
	Name() string
	// Description returns the LLM-facing description.
	Description() string
}

// ToolRetriever selects the tools most relevant to a query.
// Implementations must be safe to call from multiple goroutines.
type ToolRetriever interface {
	// Retrieve returns up to topK tools relevant to the query, most relevant
	// first. An empty result is not an error.
	Retrieve(ctx context.Context, query string, topK int) ([]tool.BaseTool, error)
}

// ScoredEntry is one retrieval candidate with its similarity score.
type ScoredEntry struct {
	// Tool is the registered tool.
	Tool tool.BaseTool
	// Name is the tool's registered name.
	Name string
	// Description is the text the tool was indexed under.
	Description string
	// Score is the cosine similarity to the query embedding.
	Score float32
}

// entry is one registered tool with its description embedding.
type entry struct {
	tool        tool.BaseTool
	name        string
	description string
	embedding   []float32
}

// Registry is an in-memory object index over tools. Registration embeds each
// tool's description; retrieval embeds the query and ranks by cosine
// similarity. Safe for concurrent use after registration.
type Registry struct {
	// embedder produces description and query embeddings.
	embedder rag.Embedder

	mu      sync.RWMutex
	entries []entry
}

// NewRegistry constructs an empty Registry.
func NewRegistry(embedder rag.Embedder) (*Registry, error) {
	if embedder == nil {
		return nil, fmt.Errorf("toolreg: embedder must not be nil")
	}
	return &Registry{embedder: embedder}, nil
}

// Add registers a tool, embedding its name and description for retrieval.
// Registering a second tool under an existing name is an error.
func (r *Registry) Add(ctx context.Context, t DescribedTool) error {
	if t == nil {
		return fmt.Errorf("toolreg: tool must not be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.name == t.Name() {
			return fmt.Errorf("toolreg: tool %q already registered", t.Name())
		}
	}

	text := t.Name() + ": " + t.Description()
	embeddings, err := r.embedder.Embed(ctx, []string{text})
	if err != nil {
		return fmt.Errorf("toolreg: embed description for %q: %w", t.Name(), err)
	}
	if len(embeddings) != 1 {
		return fmt.Errorf("toolreg: expected 1 embedding, got %d", len(embeddings))
	}

	r.entries = append(r.entries, entry{
		tool:        t,
		name:        t.Name(),
		description: t.Description(),
		embedding:   embeddings[0],
	})
	return nil
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Candidates returns up to topK scored candidates for the query, highest
// similarity first. An empty registry yields an empty result, never an error.
func (r *Registry) Candidates(ctx context.Context, query string, topK int) ([]ScoredEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.entries) == 0 {
		return nil, nil
	}
	if topK <= 0 || topK > len(r.entries) {
		topK = len(r.entries)
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("toolreg: embed query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("toolreg: expected 1 embedding, got %d", len(embeddings))
	}

	scored := make([]ScoredEntry, 0, len(r.entries))
	for _, e := range r.entries {
		scored = append(scored, ScoredEntry{
			Tool:        e.tool,
			Name:        e.name,
			Description: e.description,
			Score:       cosine(embeddings[0], e.embedding),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored[:topK], nil
}

// Retrieve satisfies ToolRetriever using plain similarity order.
func (r *Registry) Retrieve(ctx context.Context, query string, topK int) ([]tool.BaseTool, error) {
	candidates, err := r.Candidates(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	tools := make([]tool.BaseTool, 0, len(candidates))
	for _, c := range candidates {
		tools = append(tools, c.Tool)
	}
	return tools, nil
}

// cosine returns the cosine similarity of two vectors, 0 when either has zero
// norm or the lengths differ.
func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
