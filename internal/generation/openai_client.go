package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"spystory-server/internal/interfaces"
	"spystory-server/internal/models"
)

// ErrGenerationFailed wraps backend transport and API errors.
var ErrGenerationFailed = errors.New("generation request failed")

type openAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

var _ interfaces.Generator = (*openAIGenerator)(nil)

// NewOpenAIGenerator builds a Generator backed by an OpenAI-compatible API.
// baseURL overrides the default endpoint when set.
func NewOpenAIGenerator(apiKey, model, baseURL string, timeout time.Duration, logger *zap.Logger) interfaces.Generator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openAIGenerator{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
		logger:  logger.Named("OpenAIGenerator"),
	}
}

func (g *openAIGenerator) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
	system, user := buildMessages(req)
	genPromptTokens.WithLabelValues("openai", g.model).Observe(float64(CountTokens(g.model, system+user)))

	requestCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(requestCtx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.8,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	duration := time.Since(start)
	genRequestDuration.WithLabelValues("openai", g.model).Observe(duration.Seconds())

	if err != nil {
		genRequestsTotal.WithLabelValues("openai", g.model, "error").Inc()
		g.logger.Error("Chat completion request failed",
			zap.Duration("duration", duration), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		genRequestsTotal.WithLabelValues("openai", g.model, "error").Inc()
		return nil, fmt.Errorf("%w: response contained no choices", ErrGenerationFailed)
	}

	content := resp.Choices[0].Message.Content
	genCompletionTokens.WithLabelValues("openai", g.model).Observe(float64(resp.Usage.CompletionTokens))

	result, err := parseResult(content)
	if err != nil {
		genRequestsTotal.WithLabelValues("openai", g.model, "invalid").Inc()
		g.logger.Warn("Discarding malformed generation response",
			zap.Int("rawLength", len(content)), zap.Error(err))
		return nil, err
	}

	genRequestsTotal.WithLabelValues("openai", g.model, "success").Inc()
	g.logger.Debug("Generation completed",
		zap.Duration("duration", duration),
		zap.Int("choices", len(result.Choices)),
		zap.Bool("isEndpoint", result.IsEndpoint))
	return result, nil
}
