package docagent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docmind-go/internal/rag"
)

// Agent answers questions about a single document. It runs a ReAct loop over
// the document's search and summarize tools and is itself exposed as an Eino
// tool so a top-level agent can delegate to it.
type Agent struct {
	// docID is the stable document identifier.
	docID string
	// title is the human-readable document title.
	title string
	// synopsis is the one-sentence document description used as the tool
	// description for routing.
	synopsis string
	// reactAgent is the underlying Eino ReAct loop over the two doc tools.
	reactAgent *react.Agent
}

// NewAgent constructs the per-document agent from a built DocIndex.
func NewAgent(ctx context.Context, idx *DocIndex, embedder rag.Embedder, chat model.ToolCallingChatModel) (*Agent, error) {
	if idx == nil {
		return nil, fmt.Errorf("docagent: index must not be nil")
	}
	if chat == nil {
		return nil, fmt.Errorf("docagent: chat model must not be nil")
	}

	search, err := NewSearchTool(idx.DocID, idx.Title, embedder, idx.Vector)
	if err != nil {
		return nil, err
	}
	summarize, err := NewSummarizeTool(idx.DocID, idx.Title, idx.Summary)
	if err != nil {
		return nil, err
	}

	reactAgent, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: chat,
		ToolsConfig: compose.ToolsNodeConfig{
			Tools: []tool.BaseTool{search, summarize},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("docagent: failed to create ReAct agent for %s: %w", idx.DocID, err)
	}

	return &Agent{
		docID:      idx.DocID,
		title:      idx.Title,
		synopsis:   idx.Synopsis,
		reactAgent: reactAgent,
	}, nil
}

// docSystemPrompt instructs the per-document agent to answer only from its
// tools, never from prior knowledge.
const docSystemPrompt = `You answer questions about the document %q.
Always use one of your tools to find the answer:
- use the search tool for specific facts, names, dates, or details
- use the summarize tool for overviews, themes, or questions about the whole document
Never answer from prior knowledge. If the tools do not contain the answer, say so.`

// agentInput is the JSON-serialisable input schema for the agent tool.
type agentInput struct {
	// Question is the question to answer about this document.
	Question string `json:"question"`
}

// Name returns the tool name registered with the top-level agent.
func (a *Agent) Name() string { return "doc_" + a.docID }

// Description returns the synopsis so the top-level agent can route questions
// to the right document.
func (a *Agent) Description() string {
	return fmt.Sprintf("Answers questions about %q. %s", a.title, a.synopsis)
}

// Info returns the Eino tool metadata including the JSON input schema.
func (a *Agent) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: a.Name(),
		Desc: a.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"question": {
				Type:     schema.String,
				Desc:     "The question to answer about this document.",
				Required: true,
			},
		}),
	}, nil
}

// InvokableRun runs the document's ReAct loop on the question and returns the
// final answer.
func (a *Agent) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var input agentInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("%s: invalid input: %w", a.Name(), err)
	}
	if input.Question == "" {
		return "", fmt.Errorf("%s: question is required", a.Name())
	}
	return a.Ask(ctx, input.Question)
}

// Ask answers a question about the document directly, bypassing the tool
// envelope. Used by the sub-question engine and by tests.
func (a *Agent) Ask(ctx context.Context, question string) (string, error) {
	msg, err := a.reactAgent.Generate(ctx, []*schema.Message{
		schema.SystemMessage(fmt.Sprintf(docSystemPrompt, a.title)),
		schema.UserMessage(question),
	})
	if err != nil {
		return "", fmt.Errorf("%s: generate: %w", a.Name(), err)
	}
	return msg.Content, nil
}

// DocID returns the stable identifier of the document this agent serves.
func (a *Agent) DocID() string { return a.docID }

// Title returns the human-readable document title.
func (a *Agent) Title() string { return a.title }

// Synopsis returns the one-sentence document description.
func (a *Agent) Synopsis() string { return a.synopsis }
