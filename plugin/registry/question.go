package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coverline/coverline/plugin/ai"
)

// QuestionContext carries the conversational state available to question
// generation: the current topic, collected slots, and recent transcript lines.
type QuestionContext struct {
	Topic     string
	Collected map[string]string
	History   []string
}

// QuestionFunc produces the prompt text asking the user for a slot.
type QuestionFunc func(ctx context.Context, def SlotDefinition, qc QuestionContext) string

// StaticQuestion returns the templated question with up to three appended
// examples.
func StaticQuestion() QuestionFunc {
	return func(_ context.Context, def SlotDefinition, _ QuestionContext) string {
		return staticQuestion(def)
	}
}

func staticQuestion(def SlotDefinition) string {
	question := def.QuestionTemplate
	if question == "" {
		question = fmt.Sprintf("Could you please provide: %s?", def.ID)
	}
	if len(def.Examples) > 0 {
		examples := def.Examples
		if len(examples) > 3 {
			examples = examples[:3]
		}
		question += fmt.Sprintf(" (e.g., %s)", strings.Join(examples, ", "))
	}
	return question
}

// DynamicQuestion delegates question wording to the model for slots that
// enable it, falling back silently to the static template when the model call
// fails or the slot is not marked dynamic. The fallback is only logged.
func DynamicQuestion(chat ai.ChatCompleter) QuestionFunc {
	return func(ctx context.Context, def SlotDefinition, qc QuestionContext) string {
		if !def.DynamicQuestion || chat == nil {
			return staticQuestion(def)
		}

		prompt := buildQuestionPrompt(def, qc)
		text, err := chat.Chat(ctx, []ai.Message{ai.UserMessage(prompt)}, ai.ChatOptions{
			MaxTokens:   128,
			Temperature: 0.7,
		})
		if err != nil {
			slog.Warn("dynamic question generation failed, using template",
				"slot", def.ID,
				"error", err)
			return staticQuestion(def)
		}

		text = strings.TrimSpace(text)
		if text == "" {
			return staticQuestion(def)
		}
		return text
	}
}

func buildQuestionPrompt(def SlotDefinition, qc QuestionContext) string {
	var sb strings.Builder
	sb.WriteString("Generate a natural, conversational question to ask the user for the following information:\n\n")
	fmt.Fprintf(&sb, "Field: %s\n", def.ID)
	fmt.Fprintf(&sb, "Description: %s\n", def.Description)
	if len(def.Examples) > 0 {
		fmt.Fprintf(&sb, "Examples: %s\n", strings.Join(def.Examples, ", "))
	}

	sb.WriteString("\nContext:\n")
	if qc.Topic != "" {
		fmt.Fprintf(&sb, "Topic: %s\n", qc.Topic)
	}
	if len(qc.Collected) > 0 {
		sb.WriteString("Already collected:")
		for key, value := range qc.Collected {
			fmt.Fprintf(&sb, " %s=%s", key, value)
		}
		sb.WriteString("\n")
	}
	if len(qc.History) > 0 {
		recent := qc.History
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		sb.WriteString("Recent conversation:\n")
		for _, line := range recent {
			fmt.Fprintf(&sb, "- %s\n", line)
		}
	}

	sb.WriteString("\nThe question must feel natural given the conversation, clearly ask for the needed information, and be at most two sentences. Return ONLY the question text.")
	return sb.String()
}
