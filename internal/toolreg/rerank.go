package toolreg

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/tool"

	"github.com/54b3r/docmind-go/internal/logging"
	"github.com/54b3r/docmind-go/internal/rerank"
)

// candidateSource is the slice of the Registry the reranker needs.
type candidateSource interface {
	Candidates(ctx context.Context, query string, topK int) ([]ScoredEntry, error)
}

// RerankRetriever retrieves a wide candidate set by embedding similarity and
// narrows it with a second-stage reranker. Reranker failures are non-fatal:
// the similarity order stands in.
type RerankRetriever struct {
	// source supplies scored candidates in similarity order.
	source candidateSource
	// reranker reorders candidates by relevance.
	reranker rerank.Reranker
	// candidateK is the width of the first-stage candidate set.
	candidateK int
}

// NewRerankRetriever constructs a RerankRetriever. candidateK <= 0 defaults
// to 10.
func NewRerankRetriever(source candidateSource, reranker rerank.Reranker, candidateK int) (*RerankRetriever, error) {
	if source == nil {
		return nil, fmt.Errorf("toolreg: candidate source must not be nil")
	}
	if reranker == nil {
		return nil, fmt.Errorf("toolreg: reranker must not be nil")
	}
	if candidateK <= 0 {
		candidateK = 10
	}
	return &RerankRetriever{source: source, reranker: reranker, candidateK: candidateK}, nil
}

// Retrieve returns up to topK tools for the query: candidateK candidates by
// embedding similarity, reranked and truncated to topK. An empty candidate
// set yields an empty result, never an error.
func (r *RerankRetriever) Retrieve(ctx context.Context, query string, topK int) ([]tool.BaseTool, error) {
	candidateK := r.candidateK
	if topK > candidateK {
		candidateK = topK
	}

	candidates, err := r.source.Candidates(ctx, query, candidateK)
	if err != nil {
		return nil, fmt.Errorf("toolreg: candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	if topK <= 0 || topK > len(candidates) {
		topK = len(candidates)
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Name + ": " + c.Description
	}

	results, err := r.reranker.Rerank(ctx, query, docs, topK)
	if err != nil {
		// Rerank failure is non-fatal — fall back to similarity order.
		logging.FromContext(ctx).Warn("rerank failed, using similarity order", slog.Any("error", err))
		tools := make([]tool.BaseTool, 0, topK)
		for _, c := range candidates[:topK] {
			tools = append(tools, c.Tool)
		}
		return tools, nil
	}

	tools := make([]tool.BaseTool, 0, len(results))
	for _, res := range results {
		tools = append(tools, candidates[res.Index].Tool)
	}
	if len(tools) > topK {
		tools = tools[:topK]
	}
	return tools, nil
}
