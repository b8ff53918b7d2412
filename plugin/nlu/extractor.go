// Package nlu adapts the external text-completion service into structured
// (topic, entities) extraction for the dialogue orchestrator.
package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/coverline/coverline/plugin/ai"
	"github.com/coverline/coverline/plugin/registry"
)

// ErrUpstream indicates the NLU service was unreachable or returned content
// that could not be parsed as the expected structured shape.
var ErrUpstream = errors.New("nlu upstream error")

// Result is the transient per-turn extraction output.
type Result struct {
	// Topic is the detected topic, always one of the registry's topics
	// (unknown detections fall back to the default topic).
	Topic string
	// Entities maps slot id to raw extracted value. Only known slot ids.
	Entities map[string]string
}

// TurnContext carries the session state that biases extraction.
type TurnContext struct {
	// Topic is the session's current topic, "" if none.
	Topic string
	// Collected are the slots gathered so far.
	Collected map[string]string
	// AskingFor is the slot the conversation is currently collecting, "" if
	// none. A bare numeric or short reply is interpreted as this slot's value.
	AskingFor string
	// History holds recent transcript lines ("user: ...", "assistant: ...").
	History []string
}

// Extractor invokes the completion service and parses its response.
type Extractor struct {
	chat     ai.ChatCompleter
	registry *registry.Registry
}

// NewExtractor creates an extractor.
func NewExtractor(chat ai.ChatCompleter, reg *registry.Registry) *Extractor {
	return &Extractor{chat: chat, registry: reg}
}

var fenceRegexp = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// Extract runs one extraction call for the utterance.
func (e *Extractor) Extract(ctx context.Context, utterance string, tc TurnContext) (Result, error) {
	prompt := buildExtractionPrompt(e.registry, utterance, tc, preClassify(utterance))

	start := time.Now()
	content, err := e.chat.Chat(ctx, []ai.Message{
		ai.SystemPrompt(extractionSystemPrompt),
		ai.UserMessage(prompt),
	}, ai.ChatOptions{
		MaxTokens:   512,
		Temperature: 0.1,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	raw, err := parseResponse(content)
	if err != nil {
		slog.Warn("failed to parse extraction response",
			"content", truncate(content, 200),
			"error", err)
		return Result{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	result := Result{
		Topic:    e.resolveTopic(raw.Intent),
		Entities: e.filterEntities(raw.Entities),
	}

	slog.Debug("extraction completed",
		"utterance", truncate(utterance, 50),
		"topic", result.Topic,
		"entities", len(result.Entities),
		"latency_ms", time.Since(start).Milliseconds())

	return result, nil
}

// resolveTopic validates the detected topic against the registry. An unknown
// topic is a recoverable extraction failure: fall back to the default topic.
func (e *Extractor) resolveTopic(intent string) string {
	intent = strings.TrimSpace(intent)
	if e.registry.KnownTopic(intent) {
		return intent
	}
	slog.Warn("unknown topic from extraction, using default",
		"raw_topic", intent,
		"default", e.registry.DefaultTopic())
	return e.registry.DefaultTopic()
}

// filterEntities keeps only known slot ids with non-empty values. Unknown
// keys are silently dropped.
func (e *Extractor) filterEntities(entities map[string]any) map[string]string {
	out := make(map[string]string, len(entities))
	for key, value := range entities {
		if !e.registry.KnownSlot(key) {
			continue
		}
		text := stringify(value)
		if text == "" {
			continue
		}
		out[key] = text
	}
	return out
}

type rawExtraction struct {
	Intent   string         `json:"intent"`
	Entities map[string]any `json:"entities"`
}

// parseResponse strips optional markdown fences and unmarshals the JSON body.
func parseResponse(content string) (*rawExtraction, error) {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if matches := fenceRegexp.FindStringSubmatch(content); len(matches) > 1 {
			content = matches[1]
		}
	}
	content = strings.TrimSpace(strings.TrimPrefix(content, "json"))

	var raw rawExtraction
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}
	return &raw, nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// truncate shortens s to at most maxLen runes, never splitting a multibyte
// character.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}
