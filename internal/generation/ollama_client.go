package generation

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"spystory-server/internal/interfaces"
	"spystory-server/internal/models"
)

type ollamaGenerator struct {
	client  *api.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

var _ interfaces.Generator = (*ollamaGenerator)(nil)

// NewOllamaGenerator builds a Generator backed by a local ollama instance.
func NewOllamaGenerator(host, model string, timeout time.Duration, logger *zap.Logger) (interfaces.Generator, error) {
	parsedURL, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	return &ollamaGenerator{
		client:  api.NewClient(parsedURL, http.DefaultClient),
		model:   model,
		timeout: timeout,
		logger:  logger.Named("OllamaGenerator"),
	}, nil
}

func (g *ollamaGenerator) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
	system, user := buildMessages(req)
	genPromptTokens.WithLabelValues("ollama", g.model).Observe(float64(CountTokens(g.model, system+user)))

	requestCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	stream := false
	chatReq := &api.ChatRequest{
		Model: g.model,
		Messages: []api.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream: &stream,
		Format: []byte(`"json"`),
		Options: map[string]interface{}{
			"temperature": 0.8,
		},
	}

	var finalResp api.ChatResponse
	start := time.Now()
	err := g.client.Chat(requestCtx, chatReq, func(resp api.ChatResponse) error {
		finalResp = resp
		return nil
	})
	duration := time.Since(start)
	genRequestDuration.WithLabelValues("ollama", g.model).Observe(duration.Seconds())

	if err != nil {
		genRequestsTotal.WithLabelValues("ollama", g.model, "error").Inc()
		g.logger.Error("Chat request failed",
			zap.Duration("duration", duration), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	content := finalResp.Message.Content
	genCompletionTokens.WithLabelValues("ollama", g.model).Observe(float64(finalResp.EvalCount))

	result, err := parseResult(content)
	if err != nil {
		genRequestsTotal.WithLabelValues("ollama", g.model, "invalid").Inc()
		g.logger.Warn("Discarding malformed generation response",
			zap.Int("rawLength", len(content)), zap.Error(err))
		return nil, err
	}

	genRequestsTotal.WithLabelValues("ollama", g.model, "success").Inc()
	g.logger.Debug("Generation completed",
		zap.Duration("duration", duration),
		zap.Int("choices", len(result.Choices)),
		zap.Bool("isEndpoint", result.IsEndpoint))
	return result, nil
}
