package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "https://api.openai.com/v1", cfg.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
}

func TestNewProviderAppliesDefaults(t *testing.T) {
	p := NewProvider(&Config{APIKey: "sk-test"})
	assert.Equal(t, 3, p.config.MaxRetries)
	assert.Equal(t, 15*time.Second, p.config.Timeout)
	assert.Equal(t, "gpt-4o-mini", p.config.Model)
	assert.Nil(t, p.limiter)

	limited := NewProvider(&Config{APIKey: "sk-test", RateLimit: 2})
	assert.NotNil(t, limited.limiter)
}

func TestMessageHelpers(t *testing.T) {
	assert.Equal(t, Message{Role: "system", Content: "rules"}, SystemPrompt("rules"))
	assert.Equal(t, Message{Role: "user", Content: "hi"}, UserMessage("hi"))
}
