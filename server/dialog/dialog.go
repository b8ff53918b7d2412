// Package dialog implements the per-turn dialogue state machine: guardrail
// check, extraction, topic reconciliation, slot merging, prompting, and
// hand-off to retrieval once all required slots are collected.
package dialog

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/coverline/coverline/plugin/nlu"
	"github.com/coverline/coverline/plugin/registry"
	"github.com/coverline/coverline/server/retrieval"
	"github.com/coverline/coverline/server/session"
)

const (
	roleUser      = "user"
	roleAssistant = "assistant"

	// historyWindow bounds how many transcript lines feed extraction and
	// question generation.
	historyWindow = 6
)

const (
	offTopicReply = "I'm here to help with health insurance questions. " +
		"You can ask me about insurance plans, coverage details, providers, or comparisons."
	extractionFailedReply = "I'm having trouble understanding that right now. " +
		"Could you try rephrasing your question?"
	searchFailedReply = "I encountered an error while searching. " +
		"Your information is saved, so you can simply try again."
)

// Extractor is the NLU boundary the orchestrator consumes.
type Extractor interface {
	Extract(ctx context.Context, utterance string, tc nlu.TurnContext) (nlu.Result, error)
}

// Retriever runs the search-and-synthesize pipeline for a completed topic.
type Retriever interface {
	Run(ctx context.Context, topic, firstUtterance string, slots map[string]string) (string, []retrieval.Hit, error)
}

// Guard filters off-topic utterances before any external call.
type Guard interface {
	IsOnTopic(utterance string) bool
}

// TurnResult is the outcome of one conversation turn.
type TurnResult struct {
	SessionID     string            `json:"session_id"`
	Response      string            `json:"response"`
	RequiresInput bool              `json:"requires_input"`
	NextQuestion  string            `json:"next_question,omitempty"`
	Collected     map[string]string `json:"collected_entities"`
	Results       []retrieval.Hit   `json:"search_results,omitempty"`
	Status        session.Stage     `json:"status"`
}

// Options tunes orchestrator policy.
type Options struct {
	// RetainSlotsAfterComplete keeps collected slots when the user asks a
	// same-topic follow-up after a completed search. When false the follow-up
	// starts from an empty slot map.
	RetainSlotsAfterComplete bool
}

// Orchestrator drives the dialogue state machine for each turn.
type Orchestrator struct {
	guard     Guard
	extractor Extractor
	store     session.Store
	registry  *registry.Registry
	retriever Retriever
	opts      Options
}

// NewOrchestrator wires the orchestrator's collaborators.
func NewOrchestrator(guard Guard, extractor Extractor, store session.Store, reg *registry.Registry, retriever Retriever, opts Options) *Orchestrator {
	return &Orchestrator{
		guard:     guard,
		extractor: extractor,
		store:     store,
		registry:  reg,
		retriever: retriever,
		opts:      opts,
	}
}

func appendMessage(sess *session.Session, role, content string, results []session.SearchResult) {
	sess.History = append(sess.History, session.Message{
		UID:       shortuuid.New(),
		Role:      role,
		Content:   content,
		CreatedTs: time.Now().Unix(),
		Results:   results,
	})
}

// historyLines renders the most recent transcript lines for prompt context.
func historyLines(sess *session.Session, n int) []string {
	msgs := sess.History
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, m.Role+": "+m.Content)
	}
	return lines
}

// firstUserUtterance returns the opening user message, which anchors the
// retrieval query.
func firstUserUtterance(sess *session.Session) string {
	for _, m := range sess.History {
		if m.Role == roleUser {
			return m.Content
		}
	}
	return ""
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
