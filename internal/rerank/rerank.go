// Package rerank provides a second-stage relevance filter backed by the
// Cohere rerank REST API. Like the embedder backends, it talks plain HTTP so
// no additional SDK dependency is required.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// defaultModel is the Cohere rerank model used when RERANK_MODEL is unset.
const defaultModel = "rerank-english-v3.0"

// Result is one reranked candidate: its position in the input slice and the
// relevance score assigned by the model.
type Result struct {
	// Index is the zero-based position of the document in the input slice.
	Index int
	// Score is the model-assigned relevance score (higher is more relevant).
	Score float32
}

// Reranker reorders a candidate set by relevance to a query and truncates it.
// Implementations must be safe to call from multiple goroutines.
type Reranker interface {
	// Rerank scores docs against query and returns up to topN results in
	// descending relevance order.
	Rerank(ctx context.Context, query string, docs []string, topN int) ([]Result, error)
}

// Client implements Reranker against the Cohere /v2/rerank endpoint.
// It is safe for concurrent use.
type Client struct {
	// baseURL is the API base (e.g. "https://api.cohere.com").
	baseURL string
	// apiKey is the Bearer token.
	apiKey string
	// model is the rerank model name.
	model string
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// Config holds the settings for constructing a Client.
type Config struct {
	// BaseURL is the API base URL (default: "https://api.cohere.com").
	BaseURL string
	// APIKey is the Cohere API key.
	APIKey string
	// Model is the rerank model name (default: rerank-english-v3.0).
	Model string
}

// NewClient constructs a Client from the given config.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("rerank: API key must not be empty")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.cohere.com"
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// NewFromEnv constructs a Client from COHERE_API_KEY, RERANK_MODEL, and
// RERANK_ENDPOINT. Returns an error when no API key is configured.
func NewFromEnv() (*Client, error) {
	apiKey := os.Getenv("COHERE_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("rerank: COHERE_API_KEY is not set")
	}
	return NewClient(&Config{
		BaseURL: os.Getenv("RERANK_ENDPOINT"),
		APIKey:  apiKey,
		Model:   os.Getenv("RERANK_MODEL"),
	})
}

// rerankRequest is the JSON body sent to the rerank endpoint.
type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

// rerankResponse is the JSON body returned from the rerank endpoint.
type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float32 `json:"relevance_score"`
	} `json:"results"`
	Message string `json:"message,omitempty"`
}

// Rerank scores docs against query and returns up to topN results in
// descending relevance order. An empty candidate set returns an empty result
// without issuing a request.
func (c *Client) Rerank(ctx context.Context, query string, docs []string, topN int) ([]Result, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if topN <= 0 || topN > len(docs) {
		topN = len(docs)
	}

	payload, err := json.Marshal(rerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: docs,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("rerank: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("rerank: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("rerank: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Message != "" {
			msg = result.Message
		}
		return nil, fmt.Errorf("rerank: %s", msg)
	}

	out := make([]Result, 0, len(result.Results))
	for _, r := range result.Results {
		if r.Index < 0 || r.Index >= len(docs) {
			return nil, fmt.Errorf("rerank: index %d out of range [0, %d)", r.Index, len(docs))
		}
		out = append(out, Result{Index: r.Index, Score: r.RelevanceScore})
	}
	if len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}
