package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"

	"github.com/digkill/QuickAI/internal/apperr"
	"github.com/digkill/QuickAI/internal/config"
)

// Client completes prompts against an OpenAI-compatible chat endpoint.
type Client struct {
	client openai.Client
	model  string
	log    *slog.Logger
}

type Settings struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
		Timeout: cfg.RequestTimeout,
	}
}

func NewClient(s Settings, log *slog.Logger) (*Client, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("llm api key missing")
	}
	if s.Model == "" {
		return nil, fmt.Errorf("llm model is required")
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(0),
	}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	return &Client{
		client: openai.NewClient(opts...),
		model:  s.Model,
		log:    log,
	}, nil
}

// textPaths lists the response shapes that may carry the completion text, in order of preference.
var textPaths = []string{
	"choices.0.message.content",
	"choices.0.text",
	"candidates.0.content.parts.0.text",
}

// CompleteText sends a single user prompt and returns the model's text.
// A failed call and a response without usable text are both upstream errors.
func (c *Client) CompleteText(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(temperature),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if c.log != nil {
			c.log.Error("llm completion failed", "model", c.model, "err", err)
		}
		return "", apperr.Upstream("language model request failed", err)
	}

	text := ExtractText(resp.RawJSON())
	if text == "" && len(resp.Choices) > 0 {
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if text == "" {
		if c.log != nil {
			c.log.Error("llm returned no text", "model", c.model, "body", truncate(resp.RawJSON()))
		}
		return "", apperr.Upstream("language model returned no content", nil)
	}
	return text, nil
}

// ExtractText probes the known response shapes and returns the first non-empty text.
func ExtractText(raw string) string {
	if raw == "" || !gjson.Valid(raw) {
		return ""
	}
	for _, path := range textPaths {
		if v := gjson.Get(raw, path); v.Exists() && v.Type == gjson.String {
			if text := strings.TrimSpace(v.String()); text != "" {
				return text
			}
		}
	}
	return ""
}

func truncate(s string) string {
	const limit = 512
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
