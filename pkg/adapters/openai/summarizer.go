// Package openai implements a model-backed conversation summarizer on any
// OpenAI-compatible chat completion API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/newcast-health/intakeflow/internal/logging"
	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/ports"
	"github.com/sashabaranov/go-openai"
)

const (
	DefaultModel   = openai.GPT4oMini
	DefaultTimeout = 20 * time.Second

	summaryMaxTokens   = 400
	summaryTemperature = 0.2
)

// ErrEmptySummary is returned when the model answers without content.
var ErrEmptySummary = errors.New("empty summary from model")

// Config holds the client settings.
type Config struct {
	APIKey string
	// BaseURL targets an OpenAI-compatible endpoint. Empty means api.openai.com.
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Summarizer implements ports.Summarizer with a chat completion call.
type Summarizer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a summarizer.
func New(cfg Config) *Summarizer {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	s := &Summarizer{
		client:  openai.NewClientWithConfig(config),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
	if s.model == "" {
		s.model = DefaultModel
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	return s
}

// Summarize implements ports.Summarizer. The strategy's summary prompt is the
// system instruction and the transcript is the user message.
func (s *Summarizer) Summarize(ctx context.Context, req ports.SummaryRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := req.Strategy.SummaryPrompt
	if prompt == "" {
		prompt = "Summarize the conversation so far, keeping every fact the patient provided."
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   summaryMaxTokens,
		Temperature: summaryTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: Transcript(req.Messages)},
		},
	})
	if err != nil {
		s.logger.Warn("Summary request failed",
			"node_id", req.NodeID,
			"model", s.model,
			"err", err,
			"latency_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("summary request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptySummary
	}
	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		return "", ErrEmptySummary
	}

	s.logger.Debug("Summary generated",
		"node_id", req.NodeID,
		"model", s.model,
		"tokens", resp.Usage.TotalTokens,
		"latency_ms", time.Since(start).Milliseconds())
	return summary, nil
}

// Transcript renders messages as "role: content" lines. Tool results carry
// the function name.
func Transcript(messages []domain.Message) string {
	var b strings.Builder
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		role := m.Role
		if m.Role == domain.RoleTool && m.Name != "" {
			role = m.Role + "(" + m.Name + ")"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return b.String()
}
