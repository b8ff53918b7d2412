package nlu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverline/coverline/plugin/ai"
	"github.com/coverline/coverline/plugin/registry"
)

func newTestExtractor(t *testing.T, chat ai.ChatCompleter) *Extractor {
	t.Helper()
	reg, err := registry.Load("")
	require.NoError(t, err)
	return NewExtractor(chat, reg)
}

func TestExtract(t *testing.T) {
	ctx := context.Background()

	t.Run("plain JSON response", func(t *testing.T) {
		chat := &ai.MockChatCompleter{Responses: []string{
			`{"intent": "PlanInfo", "entities": {"plan_name": "Molina Silver plan", "county": "Broward", "age": 43}}`,
		}}
		e := newTestExtractor(t, chat)

		result, err := e.Extract(ctx, "Tell me about Molina Silver plan in Broward county for a 43 year old", TurnContext{})
		require.NoError(t, err)
		assert.Equal(t, "PlanInfo", result.Topic)
		assert.Equal(t, map[string]string{
			"plan_name": "Molina Silver plan",
			"county":    "Broward",
			"age":       "43",
		}, result.Entities)
	})

	t.Run("fenced JSON with language tag", func(t *testing.T) {
		chat := &ai.MockChatCompleter{Responses: []string{
			"```json\n{\"intent\": \"FAQ\", \"entities\": {\"topic\": \"subsidies\"}}\n```",
		}}
		e := newTestExtractor(t, chat)

		result, err := e.Extract(ctx, "what are subsidies", TurnContext{})
		require.NoError(t, err)
		assert.Equal(t, "FAQ", result.Topic)
		assert.Equal(t, "subsidies", result.Entities["topic"])
	})

	t.Run("fenced JSON without language tag", func(t *testing.T) {
		chat := &ai.MockChatCompleter{Responses: []string{
			"```\n{\"intent\": \"News\", \"entities\": {}}\n```",
		}}
		e := newTestExtractor(t, chat)

		result, err := e.Extract(ctx, "any news on Humana", TurnContext{})
		require.NoError(t, err)
		assert.Equal(t, "News", result.Topic)
		assert.Empty(t, result.Entities)
	})

	t.Run("unknown entities are dropped", func(t *testing.T) {
		chat := &ai.MockChatCompleter{Responses: []string{
			`{"intent": "PlanInfo", "entities": {"county": "Leon", "favorite_color": "blue", "age": ""}}`,
		}}
		e := newTestExtractor(t, chat)

		result, err := e.Extract(ctx, "plans in Leon county", TurnContext{})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"county": "Leon"}, result.Entities)
	})

	t.Run("unknown intent falls back to default topic", func(t *testing.T) {
		chat := &ai.MockChatCompleter{Responses: []string{
			`{"intent": "SmallTalk", "entities": {}}`,
		}}
		e := newTestExtractor(t, chat)

		result, err := e.Extract(ctx, "hmm", TurnContext{})
		require.NoError(t, err)
		assert.Equal(t, "FAQ", result.Topic)
	})

	t.Run("unreachable upstream", func(t *testing.T) {
		chat := &ai.MockChatCompleter{Err: assert.AnError}
		e := newTestExtractor(t, chat)

		_, err := e.Extract(ctx, "anything", TurnContext{})
		assert.ErrorIs(t, err, ErrUpstream)
	})

	t.Run("unparseable body", func(t *testing.T) {
		chat := &ai.MockChatCompleter{Responses: []string{"I could not classify that."}}
		e := newTestExtractor(t, chat)

		_, err := e.Extract(ctx, "anything", TurnContext{})
		assert.ErrorIs(t, err, ErrUpstream)
	})
}

func TestExtractPromptContext(t *testing.T) {
	ctx := context.Background()
	chat := &ai.MockChatCompleter{Responses: []string{`{"intent": "PlanInfo", "entities": {}}`}}
	e := newTestExtractor(t, chat)

	_, err := e.Extract(ctx, "43", TurnContext{
		Topic:     "PlanInfo",
		Collected: map[string]string{"county": "Broward"},
		AskingFor: "age",
		History:   []string{"user: plans in Broward", "assistant: your age?"},
	})
	require.NoError(t, err)

	prompt := chat.LastPrompt()
	assert.Contains(t, prompt, `"county":"Broward"`)
	assert.Contains(t, prompt, "Current conversation topic: PlanInfo")
	assert.Contains(t, prompt, `asking the user for their "age"`)
	assert.Contains(t, prompt, "interpret it as the age")
	assert.Contains(t, prompt, "user: plans in Broward")
}

func TestPreClassify(t *testing.T) {
	testCases := []struct {
		utterance string
		want      string
	}{
		{"What are the latest updates for Humana plans", "News"},
		{"Compare Molina Silver and Aetna Gold", "Comparison"},
		{"Is Dr. Smith a doctor in the network", "ProviderNetwork"},
		{"Does it cover dental", "CoverageDetail"},
		// "difference between" wins over the FAQ phrasing.
		{"What is the difference between HMO and PPO", "Comparison"},
		{"Explain open enrollment", "FAQ"},
		{"I am 43 years old", ""},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, preClassify(tc.utterance), "utterance: %q", tc.utterance)
	}
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	assert.Equal(t, "héllo", truncate("héllo", 10))
	assert.Equal(t, "ééé...", truncate("ééééé", 3))
	assert.Equal(t, "ab...", truncate("abcdé", 2))
}
