// Package ai turns transaction text into category labels, advice and
// scenario analysis using a text generation model.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"finman/internal/log"
)

var (
	// ErrModelUnavailable means the model could not produce a reply.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrMalformedResponse means the reply did not match the expected schema.
	ErrMalformedResponse = errors.New("malformed model response")
)

// Generator produces a JSON reply for a system instruction and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Offline is the generator used when no API key is configured.
type Offline struct{}

func (Offline) Generate(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("%w: no API key configured", ErrModelUnavailable)
}

// GeminiConfig holds Gemini client settings
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	// Backoff is the wait before the single retry.
	Backoff time.Duration
}

// Gemini calls Google's Gemini models through the genai client.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	backoff time.Duration
	logger  *log.Logger
}

func NewGemini(ctx context.Context, cfg GeminiConfig, logger *log.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		backoff: cfg.Backoff,
		logger:  logger.WithComponent(log.ComponentAI),
	}, nil
}

func (g *Gemini) Generate(ctx context.Context, system, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = genai.NewUserContent(genai.Text(system))

	return withRetry(ctx, g.backoff, func(attempt int) (string, error) {
		actx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		resp, err := model.GenerateContent(actx, genai.Text(prompt))
		if err != nil {
			g.logger.WarnContext(ctx, "Gemini request failed",
				log.FieldModel, g.model,
				log.FieldAttempt, attempt,
				log.FieldError, err)
			return "", err
		}
		return responseText(resp)
	})
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

// withRetry runs call once and, after a failure, once more following backoff.
// The final error is wrapped as ErrModelUnavailable.
func withRetry(ctx context.Context, backoff time.Duration, call func(attempt int) (string, error)) (string, error) {
	const attempts = 2

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", fmt.Errorf("%w: %v", ErrModelUnavailable, ctx.Err())
			case <-timer.C:
			}
		}

		text, err := call(attempt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("%w: %v", ErrModelUnavailable, lastErr)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response from Gemini model")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("Gemini response has no text parts")
	}
	return b.String(), nil
}
