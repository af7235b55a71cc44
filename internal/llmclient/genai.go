package llmclient

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/sockpuppet-cli/api/schemas"
	"github.com/xkilldash9x/sockpuppet-cli/internal/config"
)

// GenAIClient generates text through the official SDK.
type GenAIClient struct {
	client *genai.Client
	model  string
	cfg    config.LLMConfig
	logger *zap.Logger
}

var _ schemas.LLMClient = (*GenAIClient)(nil)

// NewGenAIClient creates the SDK-backed client.
func NewGenAIClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("genai API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GenAIClient{
		client: client,
		model:  model,
		cfg:    cfg,
		logger: logger.Named("llm_client.genai"),
	}, nil
}

// Generate produces a completion for the request.
func (c *GenAIClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(req.UserPrompt, genai.RoleUser),
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Options.Temperature)),
	}
	if req.SystemPrompt != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if topP := c.topP(req); topP > 0 {
		genCfg.TopP = genai.Ptr(topP)
	}
	if topK := c.topK(req); topK > 0 {
		genCfg.TopK = genai.Ptr(float32(topK))
	}
	if maxTokens := c.maxTokens(req); maxTokens > 0 {
		genCfg.MaxOutputTokens = int32(maxTokens)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("genai generation failed: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("genai returned an empty completion")
	}

	c.logger.Info("LLM generation complete (genai)", zap.String("model", c.model))
	return text, nil
}

// Close is a no-op: the SDK client is plain HTTP and holds no connection
// state of its own.
func (c *GenAIClient) Close() error {
	return nil
}

func (c *GenAIClient) topP(req schemas.GenerationRequest) float32 {
	if req.Options.TopP > 0 {
		return float32(req.Options.TopP)
	}
	return c.cfg.TopP
}

func (c *GenAIClient) topK(req schemas.GenerationRequest) int {
	if req.Options.TopK > 0 {
		return req.Options.TopK
	}
	return c.cfg.TopK
}

func (c *GenAIClient) maxTokens(req schemas.GenerationRequest) int {
	if req.Options.MaxTokens > 0 {
		return req.Options.MaxTokens
	}
	return c.cfg.MaxTokens
}
