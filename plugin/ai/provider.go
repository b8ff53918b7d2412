// Package ai provides the chat-completion client used for entity extraction,
// dynamic question generation, and result summarization.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// ChatOptions controls a single completion request.
type ChatOptions struct {
	MaxTokens   int
	Temperature float32
}

// ChatCompleter is the minimal completion interface consumed by the NLU
// adapter, the question generator, and the synthesizer.
type ChatCompleter interface {
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error)
}

// Config holds the provider configuration.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxRetries int
	Timeout    time.Duration
	// RateLimit bounds upstream requests per second. Zero disables limiting.
	RateLimit float64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://api.openai.com/v1",
		Model:      "gpt-4o-mini",
		MaxRetries: 3,
		Timeout:    15 * time.Second,
		RateLimit:  5,
	}
}

// Provider implements ChatCompleter on top of an OpenAI-compatible API.
type Provider struct {
	client  *openai.Client
	config  *Config
	limiter *rate.Limiter
}

// NewProvider creates a new provider.
func NewProvider(cfg *Config) *Provider {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), int(math.Ceil(cfg.RateLimit)))
	}

	return &Provider{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  cfg,
		limiter: limiter,
	}
}

// Chat performs a chat completion with retry and a bounded timeout.
func (p *Provider) Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	llmMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		llmMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	req := openai.ChatCompletionRequest{
		Model:       p.config.Model,
		Messages:    llmMessages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	var result string
	err := p.doWithRetry(ctx, func() error {
		start := time.Now()
		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty chat response")
		}
		result = resp.Choices[0].Message.Content
		slog.Debug("chat completion finished",
			"model", p.config.Model,
			"latency_ms", time.Since(start).Milliseconds(),
			"tokens", resp.Usage.TotalTokens)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to complete chat: %w", err)
	}

	return result, nil
}

// SystemPrompt creates a system message.
func SystemPrompt(content string) Message {
	return Message{Role: openai.ChatMessageRoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: openai.ChatMessageRoleUser, Content: content}
}

// doWithRetry executes a function with exponential backoff retry.
func (p *Provider) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			if attempt < p.config.MaxRetries-1 {
				waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				slog.Debug("chat request failed, retrying",
					"attempt", attempt+1,
					"wait_time", waitTime,
					"error", err)
				select {
				case <-time.After(waitTime):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	return lastErr
}

var _ ChatCompleter = (*Provider)(nil)
