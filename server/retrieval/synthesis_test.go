package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverline/coverline/plugin/ai"
)

func TestSummarizeProfileTopics(t *testing.T) {
	ctx := context.Background()
	synth := NewSynthesizer(nil)
	hits := []Hit{{Title: "a"}, {Title: "b"}, {Title: "c"}}

	t.Run("full profile line", func(t *testing.T) {
		got := synth.Summarize(ctx, "PlanInfo", "q", hits, map[string]string{
			"age": "43", "income": "50000", "county": "Broward",
		})
		assert.Equal(t, "Based on your profile (Age: 43, Income: $50000, County: Broward), I found 3 insurance options for you:", got)
	})

	t.Run("partial profile", func(t *testing.T) {
		got := synth.Summarize(ctx, "Comparison", "q", hits, map[string]string{"county": "Leon"})
		assert.Equal(t, "Based on your profile (County: Leon), I found 3 insurance options for you:", got)
	})

	t.Run("no demographics", func(t *testing.T) {
		got := synth.Summarize(ctx, "CoverageDetail", "q", hits, map[string]string{"plan_name": "Silver"})
		assert.Equal(t, "I found 3 insurance options for you:", got)
	})
}

func TestSummarizeNarrativeTopics(t *testing.T) {
	ctx := context.Background()
	hits := []Hit{
		{Snippets: []string{"A deductible is what you pay", "before coverage starts."}},
		{Description: "Deductibles explained."},
	}

	t.Run("delegates to the model with the snippets", func(t *testing.T) {
		chat := &ai.MockChatCompleter{Responses: []string{"A deductible is the amount you pay out of pocket."}}
		synth := NewSynthesizer(chat)

		got := synth.Summarize(ctx, "FAQ", "What is a deductible?", hits, nil)
		assert.Equal(t, "A deductible is the amount you pay out of pocket.", got)

		prompt := chat.LastPrompt()
		assert.Contains(t, prompt, "What is a deductible?")
		assert.Contains(t, prompt, "A deductible is what you pay before coverage starts.")
		assert.Contains(t, prompt, "Deductibles explained.")
	})

	t.Run("model failure falls back to raw snippets", func(t *testing.T) {
		chat := &ai.MockChatCompleter{Err: errors.New("rate limited")}
		synth := NewSynthesizer(chat)

		got := synth.Summarize(ctx, "News", "latest medicare news", hits, nil)
		require.NotEmpty(t, got)
		assert.True(t, strings.Contains(got, "A deductible is what you pay before coverage starts."))
		assert.True(t, strings.Contains(got, "Deductibles explained."))
	})

	t.Run("nil model falls back to raw snippets", func(t *testing.T) {
		synth := NewSynthesizer(nil)
		got := synth.Summarize(ctx, "FAQ", "q", hits, nil)
		assert.Contains(t, got, "Deductibles explained.")
	})

	t.Run("no snippets yields a count line", func(t *testing.T) {
		synth := NewSynthesizer(&ai.MockChatCompleter{Responses: []string{"unused"}})
		got := synth.Summarize(ctx, "FAQ", "q", []Hit{{Title: "only title"}}, nil)
		assert.Equal(t, "I found 1 results for you:", got)
	})
}

func TestCollectSnippets(t *testing.T) {
	hits := []Hit{
		{Snippets: []string{"one"}},
		{Snippets: []string{"two", "three"}},
		{Description: "four"},
		{Title: "no text"},
		{Snippets: []string{"five"}},
		{Snippets: []string{"six"}},
		{Snippets: []string{"seven"}},
	}
	got := collectSnippets(hits, 5)
	assert.Equal(t, []string{"one", "two three", "four", "five", "six"}, got)
}
