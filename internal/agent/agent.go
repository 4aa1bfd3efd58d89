// Package agent wires the Eino ReAct loop to the document tool registry to
// form the top-level corpus assistant. For each query it retrieves only the
// document tools relevant to the question, builds a fresh ReAct agent over
// them, and streams the answer.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docmind-go/internal/budget"
	"github.com/54b3r/docmind-go/internal/logging"
	"github.com/54b3r/docmind-go/internal/store"
	"github.com/54b3r/docmind-go/internal/toolreg"
)

// systemPrompt is the base system prompt injected into every conversation.
// The agent must ground every answer in tool output, never prior knowledge.
const systemPrompt = `You are DocMind, an assistant that answers questions about a document corpus.

You have access to tools, one per document, plus a comparison tool for
questions spanning multiple documents. To answer:

- For a question about one document, call that document's tool.
- For comparisons or aggregations across documents, call compare_documents.
- Always use the tools. Never answer from prior knowledge.
- If no tool can answer the question, say so plainly instead of guessing.

Cite which document each fact came from when more than one is involved.`

// Config holds the dependencies required to construct an Agent.
type Config struct {
	// ChatModel is the LLM backend constructed by the provider factory.
	ChatModel model.ToolCallingChatModel

	// ToolRetriever selects the document tools relevant to each query.
	ToolRetriever toolreg.ToolRetriever

	// ToolTopK controls how many document tools are exposed per query.
	// Defaults to 3 if zero.
	ToolTopK int

	// Corpus keys the conversation history thread.
	Corpus string

	// History is the optional conversation store used to persist and replay
	// prior turns. If nil, each query is stateless.
	History store.ConversationStore

	// HistoryDepth is the number of prior turns (user+assistant pairs) to
	// inject per query. Defaults to 10 if zero.
	HistoryDepth int

	// MaxContextTokens is the estimated token budget for the full input
	// context (system prompt + history + user message). History is trimmed
	// oldest-first to fit. Defaults to budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int
}

// Agent answers corpus questions by routing them through retrieved document
// tools.
type Agent struct {
	// chatModel is the LLM backend used for every query.
	chatModel model.ToolCallingChatModel

	// retriever selects the document tools relevant to each query.
	retriever toolreg.ToolRetriever

	// toolTopK is the number of document tools exposed per query.
	toolTopK int

	// corpus keys the conversation history thread.
	corpus string

	// history is the optional conversation store for multi-turn context.
	history store.ConversationStore

	// historyDepth is the number of recent messages to inject per query.
	historyDepth int

	// maxContextTokens is the estimated token budget for the input context.
	maxContextTokens int
}

// New constructs an Agent from the provided Config.
func New(cfg *Config) (*Agent, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("agent: ChatModel must not be nil")
	}
	if cfg.ToolRetriever == nil {
		return nil, fmt.Errorf("agent: ToolRetriever must not be nil")
	}

	topK := cfg.ToolTopK
	if topK <= 0 {
		topK = 3
	}
	depth := cfg.HistoryDepth
	if depth <= 0 {
		depth = 10
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}

	return &Agent{
		chatModel:        cfg.ChatModel,
		retriever:        cfg.ToolRetriever,
		toolTopK:         topK,
		corpus:           cfg.Corpus,
		history:          cfg.History,
		historyDepth:     depth,
		maxContextTokens: maxCtx,
	}, nil
}

// Query answers a question about the corpus and streams the response to the
// provided writer. Tools are retrieved per query so the LLM only sees the
// documents relevant to the question. If a conversation store is configured,
// prior turns are injected and the new turn is persisted after completion.
func (a *Agent) Query(ctx context.Context, question string, w io.Writer) error {
	log := logging.FromContext(ctx)

	tools, err := a.retriever.Retrieve(ctx, question, a.toolTopK)
	if err != nil {
		return fmt.Errorf("agent: tool retrieval: %w", err)
	}
	if len(tools) == 0 {
		return fmt.Errorf("agent: no document tools available — run the build command first")
	}
	log.Debug("retrieved tools for query", slog.Int("count", len(tools)))

	reactAgent, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: a.chatModel,
		ToolsConfig: compose.ToolsNodeConfig{
			Tools: tools,
		},
	})
	if err != nil {
		return fmt.Errorf("agent: failed to create ReAct agent: %w", err)
	}

	messages := a.buildMessages(ctx, question)

	sr, err := reactAgent.Stream(ctx, messages)
	if err != nil {
		return fmt.Errorf("agent: stream failed: %w", err)
	}
	defer sr.Close()

	var msgBuf strings.Builder
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("agent: stream receive error: %w", err)
		}
		if msg != nil && msg.Content != "" {
			if _, err := fmt.Fprint(w, msg.Content); err != nil {
				return fmt.Errorf("agent: write error: %w", err)
			}
			msgBuf.WriteString(msg.Content)
		}
	}

	// Persist the turn to the conversation store (non-fatal on error).
	if a.history != nil {
		if err := a.history.Append(ctx, a.corpus, store.RoleUser, question); err != nil {
			log.Warn("history: failed to persist user message", slog.Any("error", err))
		}
		if err := a.history.Append(ctx, a.corpus, store.RoleAssistant, msgBuf.String()); err != nil {
			log.Warn("history: failed to persist assistant message", slog.Any("error", err))
		}
	}

	return nil
}

// buildMessages constructs the message slice for the agent, injecting recent
// conversation history trimmed oldest-first to fit the token budget.
func (a *Agent) buildMessages(ctx context.Context, question string) []*schema.Message {
	log := logging.FromContext(ctx)

	var historyMsgs []*schema.Message
	if a.history != nil {
		prior, err := a.history.Recent(ctx, a.corpus, a.historyDepth*2)
		if err != nil {
			log.Warn("history: failed to load prior messages", slog.Any("error", err))
		} else {
			for _, m := range prior {
				switch m.Role {
				case store.RoleUser:
					historyMsgs = append(historyMsgs, schema.UserMessage(m.Content))
				case store.RoleAssistant:
					historyMsgs = append(historyMsgs, schema.AssistantMessage(m.Content, nil))
				}
			}
		}
	}

	fixed := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(question),
	}

	before := len(historyMsgs)
	historyMsgs = budget.TrimHistory(fixed, historyMsgs, a.maxContextTokens)
	if dropped := before - len(historyMsgs); dropped > 0 {
		log.Warn("budget: dropped history messages to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(historyMsgs)),
			slog.Int("max_tokens", a.maxContextTokens),
		)
	}

	result := make([]*schema.Message, 0, 2+len(historyMsgs))
	result = append(result, schema.SystemMessage(systemPrompt))
	result = append(result, historyMsgs...)
	result = append(result, schema.UserMessage(question))
	return result
}
