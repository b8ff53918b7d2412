package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coverline/coverline/plugin/ai"
)

// snippetLimit caps how many hits feed the summarization prompt.
const snippetLimit = 5

// narrativeTopics are answered with a synthesized paragraph instead of a
// profile line over a raw result list.
var narrativeTopics = map[string]bool{
	"FAQ":  true,
	"News": true,
}

const summarySystemPrompt = `You are an insurance research assistant. Summarize the provided search snippets into a concise, helpful answer to the user's question. Use only the information in the snippets. Answer in at most two short paragraphs.`

// Synthesizer produces the final answer text from search hits.
type Synthesizer struct {
	chat ai.ChatCompleter
}

// NewSynthesizer creates a synthesizer. chat may be nil, in which case
// narrative topics fall back to raw snippets.
func NewSynthesizer(chat ai.ChatCompleter) *Synthesizer {
	return &Synthesizer{chat: chat}
}

// Summarize builds the answer for a completed search. Narrative topics
// delegate wording to the model and fall back to concatenated snippets when
// that fails; other topics get a profile summary line over the result list.
func (s *Synthesizer) Summarize(ctx context.Context, topic, question string, hits []Hit, slots map[string]string) string {
	if narrativeTopics[topic] {
		return s.narrative(ctx, question, hits)
	}
	return profileSummary(hits, slots)
}

func (s *Synthesizer) narrative(ctx context.Context, question string, hits []Hit) string {
	snippets := collectSnippets(hits, snippetLimit)
	if len(snippets) == 0 {
		return fmt.Sprintf("I found %d results for you:", len(hits))
	}

	if s.chat != nil {
		prompt := buildSummaryPrompt(question, snippets)
		answer, err := s.chat.Chat(ctx, []ai.Message{
			ai.SystemPrompt(summarySystemPrompt),
			ai.UserMessage(prompt),
		}, ai.ChatOptions{MaxTokens: 512, Temperature: 0.3})
		if err == nil && strings.TrimSpace(answer) != "" {
			return strings.TrimSpace(answer)
		}
		if err != nil {
			slog.Warn("summary generation failed, returning raw snippets", "error", err)
		}
	}

	return strings.Join(snippets, "\n\n")
}

func buildSummaryPrompt(question string, snippets []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nSearch snippets:\n", question)
	for i, sn := range snippets {
		fmt.Fprintf(&b, "%d. %s\n", i+1, sn)
	}
	return b.String()
}

func collectSnippets(hits []Hit, limit int) []string {
	var out []string
	for _, hit := range hits {
		if len(out) >= limit {
			break
		}
		if len(hit.Snippets) > 0 {
			out = append(out, strings.Join(hit.Snippets, " "))
		} else if hit.Description != "" {
			out = append(out, hit.Description)
		}
	}
	return out
}

// profileSummary restates the demographics the user supplied so the answer
// reads as personalized rather than generic.
func profileSummary(hits []Hit, slots map[string]string) string {
	var parts []string
	if age := slots["age"]; age != "" {
		parts = append(parts, "Age: "+age)
	}
	if income := slots["income"]; income != "" {
		parts = append(parts, "Income: $"+income)
	}
	if county := slots["county"]; county != "" {
		parts = append(parts, "County: "+county)
	}
	if len(parts) > 0 {
		return fmt.Sprintf("Based on your profile (%s), I found %d insurance options for you:", strings.Join(parts, ", "), len(hits))
	}
	return fmt.Sprintf("I found %d insurance options for you:", len(hits))
}
