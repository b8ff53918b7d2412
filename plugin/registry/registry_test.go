package registry

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverline/coverline/plugin/ai"
)

func TestLoadEmbeddedDefault(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	assert.Contains(t, r.Topics(), "PlanInfo")
	assert.Contains(t, r.Topics(), "FAQ")
	assert.Contains(t, r.Slots(), "plan_name")
	assert.Equal(t, "FAQ", r.DefaultTopic())
	assert.True(t, r.KnownSlot("county"))
	assert.False(t, r.KnownSlot("favorite_color"))
}

func TestRequiredSlotOrder(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"plan_name", "insurer", "year", "county", "age"}, r.RequiredSlots("PlanInfo"))
	assert.Equal(t, []string{"topic"}, r.RequiredSlots("FAQ"))
	assert.Empty(t, r.RequiredSlots("NoSuchTopic"))
	assert.Equal(t, []string{"age", "features"}, r.OptionalSlots("Comparison"))
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `{
		"default_topic": "Quote",
		"topics": [
			{"id": "Quote", "required_slots": ["age"], "optional_slots": []}
		],
		"slots": [
			{"id": "age", "question_template": "How old are you?"}
		]
	}`)

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Quote"}, r.Topics())
	assert.Equal(t, "Quote", r.DefaultTopic())
}

func TestLoadRejectsMalformedConfig(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no topics", `{"topics": [], "slots": [{"id": "age"}]}`},
		{"no slots", `{"topics": [{"id": "A", "required_slots": []}], "slots": []}`},
		{"unknown slot reference", `{
			"topics": [{"id": "A", "required_slots": ["missing"]}],
			"slots": [{"id": "age"}]
		}`},
		{"unknown default topic", `{
			"default_topic": "B",
			"topics": [{"id": "A", "required_slots": ["age"]}],
			"slots": [{"id": "age"}]
		}`},
		{"duplicate topic", `{
			"topics": [{"id": "A", "required_slots": []}, {"id": "A", "required_slots": []}],
			"slots": [{"id": "age"}]
		}`},
		{"not json", `topics: []`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestReloadSwapsAtomically(t *testing.T) {
	path := writeConfig(t, `{
		"topics": [{"id": "A", "required_slots": ["age"]}],
		"slots": [{"id": "age"}]
	}`)
	r, err := Load(path)
	require.NoError(t, err)

	// Readers racing a reload must always see a complete snapshot.
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				topics := r.Topics()
				if len(topics) != 1 && len(topics) != 2 {
					t.Errorf("partial snapshot observed: %v", topics)
					return
				}
			}
		}
	}()

	require.NoError(t, os.WriteFile(path, []byte(`{
		"topics": [
			{"id": "A", "required_slots": ["age"]},
			{"id": "B", "required_slots": ["age"]}
		],
		"slots": [{"id": "age"}]
	}`), 0o644))
	require.NoError(t, r.Reload())
	close(stop)
	wg.Wait()

	assert.Equal(t, []string{"A", "B"}, r.Topics())
}

func TestReloadKeepsOldSnapshotOnError(t *testing.T) {
	path := writeConfig(t, `{
		"topics": [{"id": "A", "required_slots": ["age"]}],
		"slots": [{"id": "age"}]
	}`)
	r, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"topics": []}`), 0o644))
	assert.Error(t, r.Reload())
	assert.Equal(t, []string{"A"}, r.Topics())
}

func TestStaticQuestion(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("template with examples capped at three", func(t *testing.T) {
		q := r.Question(ctx, "insurer", QuestionContext{})
		assert.Equal(t, "Which insurance company or insurer are you asking about? (e.g., Molina, Aetna, UnitedHealthcare)", q)
	})

	t.Run("template without examples", func(t *testing.T) {
		q := r.Question(ctx, "zip_code", QuestionContext{})
		assert.Equal(t, "What's your zip code?", q)
	})

	t.Run("unknown slot", func(t *testing.T) {
		q := r.Question(ctx, "shoe_size", QuestionContext{})
		assert.Equal(t, "Could you please provide: shoe_size?", q)
	})
}

func TestDynamicQuestion(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("delegates to model for dynamic slots", func(t *testing.T) {
		chat := &ai.MockChatCompleter{Responses: []string{"And how young are you, if I may ask?"}}
		r.SetQuestionFunc(DynamicQuestion(chat))

		q := r.Question(ctx, "age", QuestionContext{Topic: "PlanInfo", Collected: map[string]string{"county": "Broward"}})
		assert.Equal(t, "And how young are you, if I may ask?", q)
		assert.Contains(t, chat.LastPrompt(), "age")
		assert.Contains(t, chat.LastPrompt(), "Broward")
	})

	t.Run("static slots never hit the model", func(t *testing.T) {
		chat := &ai.MockChatCompleter{Responses: []string{"unused"}}
		r.SetQuestionFunc(DynamicQuestion(chat))

		q := r.Question(ctx, "year", QuestionContext{})
		assert.Equal(t, "Which year are you interested in? (e.g., 2024, 2025)", q)
		assert.Zero(t, chat.Calls())
	})

	t.Run("falls back to template on model failure", func(t *testing.T) {
		chat := &ai.MockChatCompleter{Err: assert.AnError}
		r.SetQuestionFunc(DynamicQuestion(chat))

		q := r.Question(ctx, "age", QuestionContext{})
		assert.Equal(t, "To help you find the best insurance options, could you please tell me your age?", q)
	})
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "intents.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
