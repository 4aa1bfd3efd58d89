package subquestion

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// compareInput is the JSON-serialisable input schema for the comparison tool.
type compareInput struct {
	// Question is the cross-document question to answer.
	Question string `json:"question"`
}

// Name returns the tool name registered with the top-level agent.
func (e *Engine) Name() string { return ToolName }

// Description returns the LLM-facing description of the comparison tool.
func (e *Engine) Description() string {
	return "Answers questions that span multiple documents, such as comparisons or aggregations. " +
		"Breaks the question into per-document sub-questions and combines the answers."
}

// Info returns the Eino tool metadata including the JSON input schema.
func (e *Engine) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: e.Name(),
		Desc: e.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"question": {
				Type:     schema.String,
				Desc:     "The cross-document question to answer.",
				Required: true,
			},
		}),
	}, nil
}

// InvokableRun answers a cross-document question via plan, execute, and
// synthesize.
func (e *Engine) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var input compareInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("%s: invalid input: %w", e.Name(), err)
	}
	if input.Question == "" {
		return "", fmt.Errorf("%s: question is required", e.Name())
	}
	return e.Answer(ctx, input.Question)
}
