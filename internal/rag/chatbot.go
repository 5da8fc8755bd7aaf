package rag

import (
	"context"
	"fmt"
	"strings"
)

// systemPrompt steers the model toward short, parking-grounded
// answers. Numbers must come from the retrieved context, never from
// the model's own estimates.
const systemPrompt = `You are an Atlanta business location advisor. Give SHORT, concise answers.

FORMAT:
- Use bullet points
- Maximum 3-4 bullets per response
- Each bullet: 1 short sentence
- Recommend 1-2 neighborhoods max
- ALWAYS include a dedicated parking bullet with SPECIFIC NUMBERS

PARKING DATA REQUIRED:
- Every response MUST have one bullet with exact parking counts
- Use format: "850 parking spaces across 12 lots"
- Never say "ample" or "good", give actual numbers from the context

STYLE:
- Direct and actionable
- No long explanations
- Focus on key facts only`

// defaultTopK is how many chunks back each answer.
const defaultTopK = 5

// Role labels one side of the conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Generator produces an assistant reply from a system prompt and a
// conversation ending in the latest user message.
type Generator interface {
	Generate(ctx context.Context, system string, history []Message, user string) (string, error)
}

// Chatbot answers questions grounded in the knowledge base. Each turn
// retrieves context for the user's message, prepends it to the message
// and hands the conversation to the generator. The chatbot keeps its
// own history; one Chatbot is one conversation.
type Chatbot struct {
	retriever *Retriever
	generator Generator
	history   []Message
}

// NewChatbot builds a conversation over the given retriever and
// generator.
func NewChatbot(retriever *Retriever, generator Generator) *Chatbot {
	return &Chatbot{retriever: retriever, generator: generator}
}

// Reply answers one user message and records the exchange in the
// conversation history. Retrieved context is injected only into the
// current turn; history keeps the raw user messages.
func (c *Chatbot) Reply(ctx context.Context, userMessage string) (string, error) {
	docs, err := c.retriever.Retrieve(ctx, userMessage, defaultTopK)
	if err != nil {
		return "", err
	}

	answer, err := c.generator.Generate(ctx, systemPrompt, c.history, promptWithContext(userMessage, docs))
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}

	c.history = append(c.history,
		Message{Role: RoleUser, Content: userMessage},
		Message{Role: RoleAssistant, Content: answer},
	)
	return answer, nil
}

// History returns a copy of the conversation so far.
func (c *Chatbot) History() []Message {
	out := make([]Message, len(c.history))
	copy(out, c.history)
	return out
}

// promptWithContext formats retrieved chunks as numbered blocks ahead
// of the user's question.
func promptWithContext(userMessage string, docs []string) string {
	var b strings.Builder
	b.WriteString("Context from the parking knowledge base:\n\n")
	for i, doc := range docs {
		fmt.Fprintf(&b, "[Context %d]\n%s\n\n", i+1, doc)
	}
	b.WriteString("---\n\nUser question: ")
	b.WriteString(userMessage)
	return b.String()
}
