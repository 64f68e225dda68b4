// Package query implements question answering over an indexed
// repository: embed the question, search the vector store, assemble a
// context block from the hits, and ask a chat backend to answer from it.
package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/FreddyJ01/CodeSleuth/internal/cserrors"
	"github.com/FreddyJ01/CodeSleuth/internal/models"
)

const systemPrompt = "You are an expert code assistant. Answer the user's question using only " +
	"the provided context. Cite the file and line range you drew from. If the " +
	"context does not contain enough information, say so honestly."

// Embedder is the subset of embeddings.Client's contract QueryEngine
// depends on.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Searcher is the subset of vectorstore.Store's contract QueryEngine
// depends on.
type Searcher interface {
	Search(ctx context.Context, vector []float32, limit int, filter map[string]string) ([]models.Hit, error)
}

// ChatClient sends a two-message chat history to a backend and returns
// its single assistant reply.
type ChatClient interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Engine implements the QueryEngine contract.
type Engine struct {
	embedder Embedder
	searcher Searcher
	chat     ChatClient
}

// New builds a QueryEngine.
func New(embedder Embedder, searcher Searcher, chat ChatClient) *Engine {
	return &Engine{embedder: embedder, searcher: searcher, chat: chat}
}

// Ask implements ask(question, repo_name, max_results=5, ctx) -> QueryResult.
func (e *Engine) Ask(ctx context.Context, question, repoName string, maxResults int) (models.QueryResult, error) {
	start := time.Now()

	if strings.TrimSpace(question) == "" {
		return models.QueryResult{}, cserrors.InvalidArgument("question must not be blank")
	}
	if strings.TrimSpace(repoName) == "" {
		return models.QueryResult{}, cserrors.InvalidArgument("repo_name must not be blank")
	}
	if maxResults <= 0 {
		return models.QueryResult{}, cserrors.InvalidArgument("max_results must be > 0")
	}

	vectors, err := e.embedder.Embed(ctx, []string{question})
	if err != nil {
		return models.QueryResult{}, err
	}

	hits, err := e.searcher.Search(ctx, vectors[0], maxResults, map[string]string{"repo_name": repoName})
	if err != nil {
		return models.QueryResult{}, err
	}

	if len(hits) == 0 {
		return models.QueryResult{
			Answer:     "No relevant context was found in the indexed repository for this question.",
			References: nil,
			Duration:   time.Since(start),
		}, nil
	}

	contextBlock, usable := assembleContext(hits)

	answer, err := e.chat.Chat(ctx, systemPrompt, contextBlock+"\n\nQuestion: "+question)
	if err != nil {
		if ctx.Err() != nil {
			return models.QueryResult{}, ctx.Err()
		}
		return models.QueryResult{
			Answer:     "I wasn't able to reach the chat backend to answer this question. Please try again.",
			References: nil,
			Duration:   time.Since(start),
		}, nil
	}

	return models.QueryResult{
		Answer:     answer,
		References: referencesFrom(usable),
		Duration:   time.Since(start),
	}, nil
}

// assembleContext builds the joined context text and returns the subset
// of hits that carried every required payload key, ordered descending
// by score — the same subset step 7 turns into references.
func assembleContext(hits []models.Hit) (string, []models.Hit) {
	usable := make([]models.Hit, 0, len(hits))
	for _, h := range hits {
		if hasContextKeys(h.Payload) {
			usable = append(usable, h)
		}
	}
	sort.SliceStable(usable, func(i, j int) bool { return usable[i].Score > usable[j].Score })

	blocks := make([]string, 0, len(usable))
	for _, h := range usable {
		blocks = append(blocks, fmt.Sprintf("File: %s (lines %v-%v)\n%v\n",
			h.Payload["file_path"], h.Payload["start_line"], h.Payload["end_line"], h.Payload["content"]))
	}
	return strings.Join(blocks, "\n---\n\n"), usable
}

func hasContextKeys(payload map[string]any) bool {
	for _, k := range []string{"file_path", "start_line", "end_line", "content"} {
		if _, ok := payload[k]; !ok {
			return false
		}
	}
	return true
}

func referencesFrom(hits []models.Hit) []models.Reference {
	refs := make([]models.Reference, 0, len(hits))
	for _, h := range hits {
		refs = append(refs, models.Reference{
			FilePath:  fmt.Sprint(h.Payload["file_path"]),
			StartLine: toInt(h.Payload["start_line"]),
			EndLine:   toInt(h.Payload["end_line"]),
			Score:     h.Score,
		})
	}
	return refs
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// HTTPChatClient implements ChatClient against an HTTP chat backend
// taking a two-message history and returning a single assistant message,
// the same shape the embedding client's managed/direct endpoint split
// uses for authentication.
type HTTPChatClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	model      string
}

// NewHTTPChatClient builds a ChatClient for endpoint using model.
func NewHTTPChatClient(endpoint, apiKey, model string) *HTTPChatClient {
	return &HTTPChatClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func isManagedChatEndpoint(endpoint string) bool {
	u, err := url.Parse(endpoint)
	if err != nil {
		return false
	}
	return strings.Contains(u.Host, "azure.com")
}

// Chat implements ChatClient.
func (c *HTTPChatClient) Chat(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if isManagedChatEndpoint(c.endpoint) {
		req.Header.Set("api-key", c.apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat backend returned %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat backend returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
