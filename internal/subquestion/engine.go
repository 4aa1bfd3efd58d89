// Package subquestion decomposes a cross-document question into per-document
// sub-questions, runs each against the matching document tool, and
// synthesizes a combined answer. The engine is itself an Eino tool so the
// top-level agent can invoke it for comparison queries.
package subquestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docmind-go/internal/logging"
)

// ToolName is the registered name of the comparison tool.
const ToolName = "compare_documents"

// generator is the minimal slice of a chat model the engine needs.
type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// DocTool is a document tool the engine can delegate a sub-question to.
// *docagent.Agent satisfies it.
type DocTool interface {
	tool.InvokableTool
	Name() string
	Description() string
}

// SubQuestion is one planned delegation: which tool to ask, and what.
type SubQuestion struct {
	// Tool is the name of the document tool to invoke.
	Tool string `json:"tool"`
	// Question is the sub-question to ask that tool.
	Question string `json:"question"`
}

// plan is the JSON envelope the decomposition prompt asks the model for.
type plan struct {
	SubQuestions []SubQuestion `json:"sub_questions"`
}

// Engine plans and executes sub-questions across a fixed set of document
// tools. Safe for concurrent use.
type Engine struct {
	// gen plans the decomposition and synthesizes the final answer.
	gen generator
	// tools maps tool name to the invokable document tool.
	tools map[string]DocTool
	// order preserves registration order for the planning prompt.
	order []string
}

// NewEngine constructs an Engine over the given document tools.
func NewEngine(gen generator, tools []DocTool) (*Engine, error) {
	if gen == nil {
		return nil, fmt.Errorf("subquestion: generator must not be nil")
	}
	if len(tools) == 0 {
		return nil, fmt.Errorf("subquestion: at least one document tool is required")
	}
	byName := make(map[string]DocTool, len(tools))
	order := make([]string, 0, len(tools))
	for _, t := range tools {
		if _, exists := byName[t.Name()]; exists {
			return nil, fmt.Errorf("subquestion: duplicate tool %q", t.Name())
		}
		byName[t.Name()] = t
		order = append(order, t.Name())
	}
	return &Engine{gen: gen, tools: byName, order: order}, nil
}

// planPromptTemplate asks the model to decompose a question into per-tool
// sub-questions. The response must be the bare JSON envelope.
const planPromptTemplate = `You decompose questions into sub-questions, each answerable by exactly one of the available tools.

Available tools:
%s

Respond with ONLY a JSON object in this exact shape, no markdown fencing:
{"sub_questions": [{"tool": "<tool name>", "question": "<sub-question>"}]}

Use only tool names from the list. Ask each tool only about its own document.`

// Answer decomposes the question, runs each sub-question against its tool,
// and synthesizes a combined answer from the partial results.
func (e *Engine) Answer(ctx context.Context, question string) (string, error) {
	log := logging.FromContext(ctx)

	subs, err := e.decompose(ctx, question)
	if err != nil {
		return "", err
	}
	if len(subs) == 0 {
		return "", fmt.Errorf("subquestion: model produced no sub-questions for %q", question)
	}

	var results strings.Builder
	answered := 0
	for _, sub := range subs {
		t, ok := e.tools[sub.Tool]
		if !ok {
			log.Warn("planned tool not available, skipping sub-question",
				slog.String("tool", sub.Tool), slog.String("question", sub.Question))
			continue
		}
		args, err := json.Marshal(map[string]string{"question": sub.Question})
		if err != nil {
			return "", fmt.Errorf("subquestion: marshal sub-question: %w", err)
		}
		answer, err := t.InvokableRun(ctx, string(args))
		if err != nil {
			// A single failed delegation does not sink the comparison.
			log.Warn("sub-question failed", slog.String("tool", sub.Tool), slog.Any("error", err))
			continue
		}
		fmt.Fprintf(&results, "Sub-question for %s: %s\nAnswer: %s\n\n", sub.Tool, sub.Question, answer)
		answered++
	}
	if answered == 0 {
		return "", fmt.Errorf("subquestion: no sub-question could be answered for %q", question)
	}

	return e.synthesize(ctx, question, results.String())
}

// decompose asks the model for the sub-question plan and parses it.
func (e *Engine) decompose(ctx context.Context, question string) ([]SubQuestion, error) {
	var toolList strings.Builder
	for _, name := range e.order {
		fmt.Fprintf(&toolList, "- %s: %s\n", name, e.tools[name].Description())
	}

	msg, err := e.gen.Generate(ctx, []*schema.Message{
		schema.SystemMessage(fmt.Sprintf(planPromptTemplate, toolList.String())),
		schema.UserMessage(question),
	})
	if err != nil {
		return nil, fmt.Errorf("subquestion: plan generation: %w", err)
	}
	return parsePlan(msg.Content)
}

// synthesize combines the partial answers into one response.
func (e *Engine) synthesize(ctx context.Context, question, results string) (string, error) {
	msg, err := e.gen.Generate(ctx, []*schema.Message{
		schema.SystemMessage("You combine partial answers from multiple documents into one coherent response. " +
			"Answer the original question directly, citing which document each fact came from."),
		schema.UserMessage(fmt.Sprintf("Original question: %s\n\nPartial answers:\n%s", question, results)),
	})
	if err != nil {
		return "", fmt.Errorf("subquestion: synthesis: %w", err)
	}
	return msg.Content, nil
}

// parsePlan extracts the sub-question plan from model output, tolerating
// markdown code fencing around the JSON.
func parsePlan(output string) ([]SubQuestion, error) {
	cleaned := strings.TrimSpace(output)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
		cleaned = strings.TrimSpace(cleaned)
	}

	var p plan
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return nil, fmt.Errorf("subquestion: failed to parse plan: %w", err)
	}
	for i, sub := range p.SubQuestions {
		if sub.Tool == "" || sub.Question == "" {
			return nil, fmt.Errorf("subquestion: plan entry %d is missing tool or question", i)
		}
	}
	return p.SubQuestions, nil
}
