// Package docagent builds per-document indices and wraps each document in an
// agent that can search the document's chunks or summarize it. Each agent is
// exposed as an Eino tool so a top-level agent can route questions to the
// right document.
package docagent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docmind-go/internal/rag"
)

// defaultSearchTopK is the number of chunks a search tool returns when the
// caller does not ask for a specific count.
const defaultSearchTopK = 4

// searcher is the slice of the vector index the search tool needs.
// Abstracting this allows tests to inject a fake without touching SQLite.
type searcher interface {
	// Search returns the top-k chunks by similarity to the query embedding.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]rag.Chunk, error)
}

// summarizer is the slice of the summary index the summarize tool needs.
type summarizer interface {
	// Query answers a question from the full document content.
	Query(ctx context.Context, question string) (string, error)
}

// SearchTool is an Eino tool that retrieves the most relevant chunks of a
// single document for a specific question.
type SearchTool struct {
	// docID identifies the document this tool searches.
	docID string
	// title is the human-readable document title, used in the description.
	title string
	// embedder converts the query into a vector.
	embedder rag.Embedder
	// index is the per-document vector index.
	index searcher
}

// searchInput is the JSON-serialisable input schema for SearchTool.
type searchInput struct {
	// Query is the question to retrieve relevant passages for.
	Query string `json:"query"`

	// TopK optionally overrides how many passages to return.
	TopK int `json:"top_k,omitempty"`
}

// NewSearchTool constructs a SearchTool for one document.
func NewSearchTool(docID, title string, embedder rag.Embedder, index searcher) (*SearchTool, error) {
	if docID == "" {
		return nil, fmt.Errorf("docagent: docID must not be empty")
	}
	if embedder == nil {
		return nil, fmt.Errorf("docagent: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("docagent: index must not be nil")
	}
	return &SearchTool{docID: docID, title: title, embedder: embedder, index: index}, nil
}

// Name returns the tool name registered with the agent.
func (t *SearchTool) Name() string { return "search_" + t.docID }

// Description returns the LLM-facing description of this tool.
func (t *SearchTool) Description() string {
	return fmt.Sprintf("Retrieves the passages of %q most relevant to a question. "+
		"Use this for specific facts, names, dates, or details from this document.", t.title)
}

// Info returns the Eino tool metadata including the JSON input schema.
func (t *SearchTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.Name(),
		Desc: t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "The question to retrieve relevant passages for.",
				Required: true,
			},
			"top_k": {
				Type: schema.Integer,
				Desc: "Number of passages to return (default 4).",
			},
		}),
	}, nil
}

// InvokableRun embeds the query, searches the document's vector index, and
// returns the matching passages separated by blank lines.
func (t *SearchTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var input searchInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("%s: invalid input: %w", t.Name(), err)
	}
	if input.Query == "" {
		return "", fmt.Errorf("%s: query is required", t.Name())
	}
	topK := input.TopK
	if topK <= 0 {
		topK = defaultSearchTopK
	}

	embeddings, err := t.embedder.Embed(ctx, []string{input.Query})
	if err != nil {
		return "", fmt.Errorf("%s: embed query: %w", t.Name(), err)
	}
	if len(embeddings) != 1 {
		return "", fmt.Errorf("%s: expected 1 embedding, got %d", t.Name(), len(embeddings))
	}

	chunks, err := t.index.Search(ctx, embeddings[0], topK)
	if err != nil {
		return "", fmt.Errorf("%s: search: %w", t.Name(), err)
	}
	if len(chunks) == 0 {
		return "No relevant passages found in this document.", nil
	}

	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n\n"), nil
}

// SummarizeTool is an Eino tool that answers holistic questions about a
// single document from its full content.
type SummarizeTool struct {
	// docID identifies the document this tool summarizes.
	docID string
	// title is the human-readable document title, used in the description.
	title string
	// summary is the per-document summary index.
	summary summarizer
}

// summarizeInput is the JSON-serialisable input schema for SummarizeTool.
type summarizeInput struct {
	// Question is the holistic question to answer about the document.
	Question string `json:"question"`
}

// NewSummarizeTool constructs a SummarizeTool for one document.
func NewSummarizeTool(docID, title string, summary summarizer) (*SummarizeTool, error) {
	if docID == "" {
		return nil, fmt.Errorf("docagent: docID must not be empty")
	}
	if summary == nil {
		return nil, fmt.Errorf("docagent: summary must not be nil")
	}
	return &SummarizeTool{docID: docID, title: title, summary: summary}, nil
}

// Name returns the tool name registered with the agent.
func (t *SummarizeTool) Name() string { return "summarize_" + t.docID }

// Description returns the LLM-facing description of this tool.
func (t *SummarizeTool) Description() string {
	return fmt.Sprintf("Answers holistic questions about %q from its full content. "+
		"Use this for overviews, themes, or questions spanning the whole document.", t.title)
}

// Info returns the Eino tool metadata including the JSON input schema.
func (t *SummarizeTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.Name(),
		Desc: t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"question": {
				Type:     schema.String,
				Desc:     "The holistic question to answer about the document.",
				Required: true,
			},
		}),
	}, nil
}

// InvokableRun answers the question from the document's summary index.
func (t *SummarizeTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var input summarizeInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("%s: invalid input: %w", t.Name(), err)
	}
	if input.Question == "" {
		return "", fmt.Errorf("%s: question is required", t.Name())
	}
	answer, err := t.summary.Query(ctx, input.Question)
	if err != nil {
		return "", fmt.Errorf("%s: summarize: %w", t.Name(), err)
	}
	return answer, nil
}
