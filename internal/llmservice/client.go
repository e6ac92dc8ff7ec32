package llmservice

import (
	"context"
	"strings"

	"support-agent/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Client talks to the hosted model through an OpenAI-compatible endpoint.
// It is the production implementation of the agent's ContentGenerator.
type Client struct {
	llm         *openai.LLM
	temperature float64
}

func NewClient(llmConfig *config.LLMConfig) (*Client, error) {
	llm, err := openai.New(
		openai.WithBaseURL(llmConfig.BaseURL),
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, err
	}
	return &Client{llm: llm, temperature: llmConfig.TemperatureOrDefault()}, nil
}

// GenerateContent sends the full history plus tool schemas to the model.
func (c *Client) GenerateContent(ctx context.Context, messages []llms.MessageContent, tools []llms.Tool) (*llms.ContentResponse, error) {
	log.Debug().Int("messages", len(messages)).Int("tools", len(tools)).Msg("Generating content")

	opts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools))
	}
	return c.llm.GenerateContent(ctx, messages, opts...)
}
