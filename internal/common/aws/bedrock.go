package aws

import (
	"context"
	"encoding/json"
	"fmt"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"reasoncare-orchestrator/internal/common/errors"
	"reasoncare-orchestrator/internal/common/logger"
)

const bedrockService = "bedrock"

// BedrockRuntimeAPI is the subset of the Bedrock runtime client in use.
type BedrockRuntimeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type BedrockConfig struct {
	AnthropicVersion string
	MaxTokens        int
}

func DefaultBedrockConfig() BedrockConfig {
	return BedrockConfig{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        4000,
	}
}

// BedrockClient generates text with Anthropic models hosted on Bedrock.
type BedrockClient struct {
	api    BedrockRuntimeAPI
	config BedrockConfig
	logger logger.Logger
}

func NewBedrockClient(ctx context.Context, region string, cfg BedrockConfig, log logger.Logger) (*BedrockClient, error) {
	awsCfg, err := LoadConfig(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewBedrockClientWithAPI(bedrockruntime.NewFromConfig(awsCfg), cfg, log), nil
}

func NewBedrockClientWithAPI(api BedrockRuntimeAPI, cfg BedrockConfig, log logger.Logger) *BedrockClient {
	defaults := DefaultBedrockConfig()
	if cfg.AnthropicVersion == "" {
		cfg.AnthropicVersion = defaults.AnthropicVersion
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	return &BedrockClient{api: api, config: cfg, logger: logger.ForComponent(log, "bedrock")}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string  `json:"type"`
		Text *string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Generate sends prompt as a single user message and returns content[0].text.
func (c *BedrockClient) Generate(ctx context.Context, modelID, prompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}
	body, err := json.Marshal(anthropicRequest{
		AnthropicVersion: c.config.AnthropicVersion,
		MaxTokens:        maxTokens,
		Messages:         []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", errors.NewInternalError(fmt.Errorf("encode bedrock request: %w", err))
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     awsv2.String(modelID),
		Body:        body,
		ContentType: awsv2.String("application/json"),
		Accept:      awsv2.String("application/json"),
	})
	if err != nil {
		return "", errors.NewExternalCallError(bedrockService, err)
	}
	if out == nil {
		return "", errors.NewMalformedResponseError(bedrockService, "empty response")
	}

	var resp anthropicResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", errors.NewMalformedResponseError(bedrockService, fmt.Sprintf("decode body: %v", err))
	}
	if len(resp.Content) == 0 || resp.Content[0].Text == nil {
		return "", errors.NewMalformedResponseError(bedrockService, "missing content[0].text")
	}

	c.logger.Debug("bedrock usage", map[string]interface{}{
		"modelId":      modelID,
		"inputTokens":  resp.Usage.InputTokens,
		"outputTokens": resp.Usage.OutputTokens,
		"stopReason":   resp.StopReason,
	})

	return *resp.Content[0].Text, nil
}
