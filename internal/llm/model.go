package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/txplain/tradeintent/internal/config"
)

// providerBaseURLs maps the OpenAI-API-compatible providers this service
// recognizes to their chat-completions base URL. anthropic is handled
// separately below since it is not OpenAI-API-compatible; openai itself
// needs no override.
var providerBaseURLs = map[string]string{
	"deepseek":  "https://api.deepseek.com/v1",
	"dashscope": "https://dashscope.aliyuncs.com/compatible-mode/v1",
}

// NewModel builds the llms.Model this process drives, exactly as the
// teacher's agent.go builds its openai.New(...) client — generalized here
// to any OpenAI-API-compatible provider via WithBaseURL, since deepseek
// and dashscope both expose that surface.
func NewModel(cfg *config.Config) (llms.Model, error) {
	if cfg.ModelProvider == "anthropic" {
		opts := []anthropic.Option{anthropic.WithToken(cfg.ModelAPIKey)}
		if cfg.ModelName != "" {
			opts = append(opts, anthropic.WithModel(cfg.ModelName))
		}
		model, err := anthropic.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to construct anthropic model client: %w", err)
		}
		return model, nil
	}

	opts := []openai.Option{
		openai.WithToken(cfg.ModelAPIKey),
	}
	if cfg.ModelName != "" {
		opts = append(opts, openai.WithModel(cfg.ModelName))
	}
	if baseURL, ok := providerBaseURLs[cfg.ModelProvider]; ok {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to construct %s model client: %w", cfg.ModelProvider, err)
	}
	return model, nil
}
