// Package zoning delegates zoning-code questions from the voice session to
// a separate text-based Gemini agent. The voice model calls the
// ask_zoning_expert function; this agent answers with the grounded text
// model rather than the realtime one.
package zoning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel   = "gemini-2.0-flash"
	defaultTimeout = 20 * time.Second

	systemPrompt = "You are a Milwaukee zoning-code expert. Answer questions " +
		"about zoning districts, permitted uses, setbacks, and the city code " +
		"concisely and cite the relevant code section when you know it. If a " +
		"question is outside Milwaukee zoning, say so."
)

// Agent answers zoning questions through the Gemini text API.
type Agent struct {
	client  *genai.Client
	logger  *zap.Logger
	model   string
	timeout time.Duration
}

// Option tweaks an Agent.
type Option func(*Agent)

// WithModel overrides the text model id.
func WithModel(model string) Option {
	return func(a *Agent) {
		if strings.TrimSpace(model) != "" {
			a.model = model
		}
	}
}

// WithTimeout bounds a single answer. Handlers must keep latency bounded,
// so the default is deliberately short.
func WithTimeout(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// NewAgent builds an Agent from an API key.
func NewAgent(ctx context.Context, apiKey string, logger *zap.Logger, opts ...Option) (*Agent, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("zoning: api key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("zoning: create gemini client: %w", err)
	}
	a := &Agent{client: client, logger: logger, model: defaultModel, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Ask answers one zoning question.
func (a *Agent) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("zoning: question must not be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText(question, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(float32(0.2)),
	}

	started := time.Now()
	response, err := a.client.Models.GenerateContent(ctx, a.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("zoning: generate answer: %w", err)
	}
	answer := strings.TrimSpace(response.Text())
	if answer == "" {
		return "", fmt.Errorf("zoning: model returned an empty answer")
	}
	a.logger.Debug("zoning answer generated",
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("answer_len", len(answer)))
	return answer, nil
}
