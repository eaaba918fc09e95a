package normalizer

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/brendanmarry/withwilma-sub001/internal/models"
	"github.com/brendanmarry/withwilma-sub001/internal/prompts"
)

// AnthropicNormalizer implements Normalizer using the Claude messages API.
type AnthropicNormalizer struct {
	client    anthropic.Client
	prompts   *prompts.Store
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
}

// AnthropicConfig configures the Claude-backed normalizer.
type AnthropicConfig struct {
	Model     string
	APIKeyEnv string
	MaxTokens int
	Timeout   time.Duration
}

// NewAnthropicNormalizer creates a Claude-backed normalizer. The API key is
// read from the environment variable named by cfg.APIKeyEnv; the prompt
// template comes from the injected prompt store.
func NewAnthropicNormalizer(cfg AnthropicConfig, store *prompts.Store, logger *zap.Logger) (*AnthropicNormalizer, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &AnthropicNormalizer{
		client:    anthropic.NewClient(option.WithAPIKey(key)),
		prompts:   store,
		model:     cfg.Model,
		maxTokens: maxTokens,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// Normalize sends rawText to the oracle and returns the validated record.
func (n *AnthropicNormalizer) Normalize(ctx context.Context, rawText string) (*models.NormalisedJob, error) {
	template, err := n.prompts.Load(prompts.PromptJobNormalize)
	if err != nil {
		return nil, fmt.Errorf("%w: load prompt: %v", ErrOracle, err)
	}
	prompt := fmt.Sprintf(template, rawText)

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	resp, err := n.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(n.model),
		MaxTokens: int64(n.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOracle, err)
	}

	var reply strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	if reply.Len() == 0 {
		return nil, fmt.Errorf("%w: empty reply", ErrOracle)
	}

	record, err := parseResponse(reply.String())
	if err != nil {
		if n.logger != nil {
			n.logger.Warn("normalization reply rejected", zap.Error(err))
		}
		return nil, fmt.Errorf("%w: %v", ErrOracle, err)
	}
	return record, nil
}
