package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gai "google.golang.org/genai"
)

// VertexClient implements Generator on the unified google.golang.org/genai SDK.
// With a project set it talks to Vertex AI, otherwise to the Gemini API with the key.
type VertexClient struct {
	client *gai.Client
	config *Config
}

// NewVertexClient creates a new client for ProviderVertex
func NewVertexClient(ctx context.Context, config *Config) (*VertexClient, error) {
	cc := &gai.ClientConfig{}
	if project := strings.TrimSpace(config.Project); project != "" {
		cc.Backend = gai.BackendVertexAI
		cc.Project = project
		cc.Location = config.Location
	} else {
		if strings.TrimSpace(config.APIKey) == "" {
			return nil, errors.New("vertex: project or api key is required")
		}
		cc.Backend = gai.BackendGeminiAPI
		cc.APIKey = config.APIKey
	}

	client, err := gai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &VertexClient{client: client, config: config}, nil
}

// Generate runs one Models.GenerateContent call
func (c *VertexClient) Generate(ctx context.Context, req Request) (string, error) {
	modelName := c.config.GetModel(req.Tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", req.Tier)
	}

	cfg := &gai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = gai.NewContentFromText(req.System, gai.RoleUser)
	}
	if req.Temperature > 0 {
		t := req.Temperature
		cfg.Temperature = &t
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = req.MaxTokens
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, modelName, gai.Text(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || strings.TrimSpace(part.Text) == "" {
				continue
			}
			builder.WriteString(part.Text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("genai returned empty response")
	}
	return output, nil
}

// Provider returns ProviderVertex
func (c *VertexClient) Provider() Provider {
	return ProviderVertex
}

// GetModel returns the model name for a tier
func (c *VertexClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op; the genai client holds no closable resources.
func (c *VertexClient) Close() error {
	return nil
}
