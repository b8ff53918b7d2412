package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileDefaults(t *testing.T) {
	clearEnv(t)

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "https://api.openai.com/v1", p.NLUBaseURL)
	assert.Equal(t, "gpt-4o-mini", p.NLUModel)
	assert.Equal(t, 15*time.Second, p.NLUTimeout)
	assert.Equal(t, 3, p.NLUMaxRetries)
	assert.Equal(t, "https://api.ydc-index.io/v1", p.SearchBaseURL)
	assert.Equal(t, 10*time.Second, p.SearchTimeout)
	assert.Equal(t, time.Hour, p.SessionTTL)
	assert.False(t, p.DynamicQuestions)
	assert.True(t, p.RetainSlotsAfterComplete)
	assert.False(t, p.IsNLUConfigured())
	assert.False(t, p.IsSearchConfigured())
}

func TestProfileFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("COVERLINE_NLU_API_KEY", "sk-test")
	t.Setenv("COVERLINE_NLU_MODEL", "gpt-4o")
	t.Setenv("COVERLINE_SEARCH_API_KEY", "ydc-test")
	t.Setenv("COVERLINE_SESSION_TTL", "30m")
	t.Setenv("COVERLINE_DYNAMIC_QUESTIONS", "true")
	t.Setenv("COVERLINE_RETAIN_SLOTS_AFTER_COMPLETE", "false")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "sk-test", p.NLUAPIKey)
	assert.Equal(t, "gpt-4o", p.NLUModel)
	assert.True(t, p.IsNLUConfigured())
	assert.True(t, p.IsSearchConfigured())
	assert.Equal(t, 30*time.Minute, p.SessionTTL)
	assert.True(t, p.DynamicQuestions)
	assert.False(t, p.RetainSlotsAfterComplete)
}

func TestProfileValidate(t *testing.T) {
	t.Run("invalid port", func(t *testing.T) {
		p := &Profile{Mode: "dev", Port: 0}
		require.Error(t, p.Validate())
	})

	t.Run("unknown mode falls back to dev", func(t *testing.T) {
		p := &Profile{Mode: "staging", Port: 8080}
		require.NoError(t, p.Validate())
		assert.Equal(t, "dev", p.Mode)
		assert.True(t, p.IsDev())
	})

	t.Run("missing intent config file", func(t *testing.T) {
		p := &Profile{Mode: "dev", Port: 8080, IntentConfigPath: "/nonexistent/intents.json"}
		require.Error(t, p.Validate())
	})

	t.Run("listen addr", func(t *testing.T) {
		p := &Profile{Mode: "prod", Addr: "127.0.0.1", Port: 8080, SessionTTL: time.Hour}
		require.NoError(t, p.Validate())
		assert.Equal(t, "127.0.0.1:8080", p.ListenAddr())
	})
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"COVERLINE_INTENT_CONFIG",
		"COVERLINE_NLU_API_KEY", "COVERLINE_NLU_BASE_URL", "COVERLINE_NLU_MODEL",
		"COVERLINE_NLU_TIMEOUT", "COVERLINE_NLU_MAX_RETRIES", "COVERLINE_NLU_RATE_LIMIT",
		"COVERLINE_SEARCH_API_KEY", "COVERLINE_SEARCH_BASE_URL", "COVERLINE_SEARCH_TIMEOUT",
		"COVERLINE_SESSION_TTL", "COVERLINE_SESSION_SWEEP_INTERVAL",
		"COVERLINE_DYNAMIC_QUESTIONS", "COVERLINE_RETAIN_SLOTS_AFTER_COMPLETE",
	} {
		t.Setenv(key, "")
	}
}
