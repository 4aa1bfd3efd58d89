package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docmind-go/internal/budget"
	"github.com/54b3r/docmind-go/internal/rag"
)

// generator is the narrow slice of an eino chat model the summary index
// needs. Any model.BaseChatModel satisfies it; tests inject a fake.
type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// SummaryIndex answers summarization queries over one document's chunks with
// an LLM tree-reduce: chunks are grouped into windows that fit the token
// budget, each window is summarized, and the window summaries are combined
// into the final answer. It holds no persistent state and is rebuilt on
// every run.
type SummaryIndex struct {
	// title is the document title included in every prompt.
	title string

	// texts holds the document's chunk texts in order.
	texts []string

	// gen produces summaries.
	gen generator

	// maxWindowTokens is the estimated token budget per reduce window.
	maxWindowTokens int
}

// NewSummaryIndex constructs a SummaryIndex over the given chunks.
// maxWindowTokens defaults to the shared context budget if zero.
func NewSummaryIndex(title string, chunks []rag.Chunk, gen generator, maxWindowTokens int) (*SummaryIndex, error) {
	if gen == nil {
		return nil, fmt.Errorf("index: summary generator must not be nil")
	}
	if maxWindowTokens <= 0 {
		maxWindowTokens = budget.DefaultMaxContextTokens
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	return &SummaryIndex{
		title:           title,
		texts:           texts,
		gen:             gen,
		maxWindowTokens: maxWindowTokens,
	}, nil
}

// Query answers a summarization request against the full document.
// A single window is answered with one LLM call; larger documents reduce
// window summaries in a second pass.
func (s *SummaryIndex) Query(ctx context.Context, question string) (string, error) {
	if len(s.texts) == 0 {
		return "", fmt.Errorf("index: summary index for %q holds no content", s.title)
	}

	windows := budget.SplitByBudget(s.texts, s.maxWindowTokens)

	if len(windows) == 1 {
		return s.summarize(ctx, question, strings.Join(windows[0], "\n\n"))
	}

	partials := make([]string, 0, len(windows))
	for i, w := range windows {
		part, err := s.summarize(ctx, question, strings.Join(w, "\n\n"))
		if err != nil {
			return "", fmt.Errorf("index: summarize window %d/%d: %w", i+1, len(windows), err)
		}
		partials = append(partials, part)
	}

	return s.summarize(ctx, question, strings.Join(partials, "\n\n"))
}

// summarize issues one LLM call answering question over the given content.
func (s *SummaryIndex) summarize(ctx context.Context, question, content string) (string, error) {
	sys := fmt.Sprintf(
		"You are summarizing the document %q. Answer the request using only the provided content. Be concise and factual.",
		s.title,
	)
	user := fmt.Sprintf("Request: %s\n\nContent:\n%s", question, content)

	resp, err := s.gen.Generate(ctx, []*schema.Message{
		schema.SystemMessage(sys),
		schema.UserMessage(user),
	})
	if err != nil {
		return "", fmt.Errorf("index: summary generate: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("index: summary generate returned nil message")
	}
	return strings.TrimSpace(resp.Content), nil
}
