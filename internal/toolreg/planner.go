package toolreg

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docmind-go/internal/subquestion"
)

// generator is the slice of a chat model the comparison engine needs.
type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// PlanRetriever wraps another retriever and appends a cross-document
// comparison tool to every result. The comparison engine is rebuilt on each
// call over exactly the document tools the inner retriever returned, so it
// can never delegate a sub-question to a document that retrieval excluded.
type PlanRetriever struct {
	// inner supplies the base tool selection.
	inner ToolRetriever
	// gen plans and synthesizes inside the per-query comparison engine.
	gen generator
}

// NewPlanRetriever constructs a PlanRetriever.
func NewPlanRetriever(inner ToolRetriever, gen generator) (*PlanRetriever, error) {
	if inner == nil {
		return nil, fmt.Errorf("toolreg: inner retriever must not be nil")
	}
	if gen == nil {
		return nil, fmt.Errorf("toolreg: generator must not be nil")
	}
	return &PlanRetriever{inner: inner, gen: gen}, nil
}

// Retrieve delegates to the inner retriever, then appends a comparison tool
// scoped to the document tools in the result. Results with no document tools
// (or with a comparison tool already present) pass through unchanged.
func (p *PlanRetriever) Retrieve(ctx context.Context, query string, topK int) ([]tool.BaseTool, error) {
	tools, err := p.inner.Retrieve(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	docTools := make([]subquestion.DocTool, 0, len(tools))
	for _, t := range tools {
		dt, ok := t.(subquestion.DocTool)
		if !ok {
			continue
		}
		if dt.Name() == subquestion.ToolName {
			return tools, nil
		}
		docTools = append(docTools, dt)
	}
	if len(docTools) == 0 {
		return tools, nil
	}

	engine, err := subquestion.NewEngine(p.gen, docTools)
	if err != nil {
		return nil, fmt.Errorf("toolreg: comparison engine: %w", err)
	}
	return append(tools, engine), nil
}
