package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Config holds the Gemini connection settings.
type Config struct {
	APIKey     string
	Model      string
	EmbedModel string
	EmbedDim   int
}

// Client wraps the Gemini API for text generation and embeddings.
type Client struct {
	client     *genai.Client
	model      string
	embedModel string
	embedDim   int
}

// NewClient connects to Gemini. A missing API key returns (nil, nil) so
// callers fall back to heuristics without special-casing configuration.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{
		client:     client,
		model:      cfg.Model,
		embedModel: cfg.EmbedModel,
		embedDim:   cfg.EmbedDim,
	}, nil
}

// Generate runs a single prompt and returns the raw text response.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}

// GenerateJSON runs a prompt that must answer with JSON and strips any
// markdown fencing from the reply.
func (c *Client) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	text, err := c.Generate(ctx, system, prompt)
	if err != nil {
		return "", err
	}
	return CleanJSON(text), nil
}

// EmbedTexts embeds a batch of texts, preserving input order.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	config := &genai.EmbedContentConfig{}
	if c.embedDim > 0 {
		config.OutputDimensionality = genai.Ptr(int32(c.embedDim))
	}

	resp, err := c.client.Models.EmbedContent(ctx, c.embedModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, embedding := range resp.Embeddings {
		vectors[i] = embedding.Values
	}
	return vectors, nil
}

// CleanJSON strips markdown code fences the model wraps around JSON.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		} else {
			text = strings.TrimPrefix(text, "```json")
			text = strings.TrimPrefix(text, "```")
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
