// Package gemini adapts the Google Generative AI SDK to the rag
// package's Embedder and Generator interfaces.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/parksight/parksight/internal/rag"
)

const (
	// DefaultEmbeddingModel produces the knowledge base vectors.
	DefaultEmbeddingModel = "text-embedding-004"

	// DefaultChatModel answers retrieval-grounded questions.
	DefaultChatModel = "gemini-1.5-flash"

	// maxAnswerTokens keeps chat replies short; the system prompt
	// asks for a handful of bullets.
	maxAnswerTokens = 200

	retryAttempts = 3
)

// Engine holds one API client serving both embedding and generation.
// The caller owns the lifecycle and must Close it.
type Engine struct {
	client         *genai.Client
	embeddingModel string
	chatModel      string
}

var (
	_ rag.Embedder  = (*Engine)(nil)
	_ rag.Generator = (*Engine)(nil)
)

// New connects to the API with the given key and default model names.
func New(ctx context.Context, apiKey string) (*Engine, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini: API key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	return &Engine{
		client:         client,
		embeddingModel: DefaultEmbeddingModel,
		chatModel:      DefaultChatModel,
	}, nil
}

// Close releases the underlying API client.
func (e *Engine) Close() error {
	return e.client.Close()
}

// Embed returns one vector per input text, in input order.
func (e *Engine) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	em := e.client.EmbeddingModel(e.embeddingModel)

	out := make([][]float32, 0, len(texts))
	for i, text := range texts {
		resp, err := withRetry(ctx, func() (*genai.EmbedContentResponse, error) {
			return em.EmbedContent(ctx, genai.Text(text))
		})
		if err != nil {
			return nil, fmt.Errorf("gemini: failed to embed text %d: %w", i, err)
		}
		if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			return nil, fmt.Errorf("gemini: empty embedding for text %d", i)
		}
		out = append(out, resp.Embedding.Values)
	}
	return out, nil
}

// Generate sends the conversation to the chat model and returns the
// reply text.
func (e *Engine) Generate(ctx context.Context, system string, history []rag.Message, user string) (string, error) {
	m := e.client.GenerativeModel(e.chatModel)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:     ptrFloat32(0),
		MaxOutputTokens: ptrInt32(maxAnswerTokens),
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}

	cs := m.StartChat()
	cs.History = toContents(history)

	resp, err := withRetry(ctx, func() (*genai.GenerateContentResponse, error) {
		return cs.SendMessage(ctx, genai.Text(user))
	})
	if err != nil {
		return "", fmt.Errorf("gemini: generation failed: %w", err)
	}
	txt := firstText(resp)
	if txt == "" {
		return "", errors.New("gemini: empty response")
	}
	return strings.TrimSpace(txt), nil
}

// toContents maps conversation turns onto the API's role names; the
// assistant side is called "model" there.
func toContents(history []rag.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := "user"
		if msg.Role == rag.RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return out
}

// withRetry runs call up to retryAttempts times with a linear backoff,
// for transient API failures.
func withRetry[T any](ctx context.Context, call func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		resp, err := call()
		if err == nil {
			return resp, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
		}
	}
	return zero, lastErr
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
func ptrInt32(v int32) *int32       { return &v }
