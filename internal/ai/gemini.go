// Package ai wraps the Gemini API for drafting Reddit comments.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrEmptyResponse marks a generation call that technically succeeded but
// produced no usable text (blocked or empty output). Distinct from transport
// failures so callers can tell the two apart in logs, though both leave the
// store untouched.
var ErrEmptyResponse = errors.New("empty response from model")

// GenerativeModel is the slice of genai's model we actually use. Tests
// substitute a mock.
type GenerativeModel interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// AIClient wraps the Gemini API.
type AIClient struct {
	client *genai.Client
	model  GenerativeModel
}

// NewAIClient initializes the Gemini client.
func NewAIClient(ctx context.Context, apiKey string) (*AIClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %v", err)
	}

	return &AIClient{
		client: client,
		model:  client.GenerativeModel("gemini-2.5-flash"),
	}, nil
}

// Close closes the underlying client connection.
func (c *AIClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// GenerateComment sends the prompt to Gemini and returns the drafted
// comment text. Returns ErrEmptyResponse when the model produces nothing.
func (c *AIClient) GenerateComment(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	text, err := extractText(resp)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// extractText pulls the first text part out of a generation response.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	part := resp.Candidates[0].Content.Parts[0]
	text, ok := part.(genai.Text)
	if !ok {
		return "", fmt.Errorf("expected text part, got %T", part)
	}
	return string(text), nil
}
