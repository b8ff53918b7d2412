package dialog

import (
	"fmt"
	"strings"

	"github.com/coverline/coverline/plugin/registry"
)

// affirmatives are replies that accept a pending reconciliation. Anything
// else is an implicit decline.
var affirmatives = map[string]bool{
	"yes":     true,
	"y":       true,
	"yeah":    true,
	"yep":     true,
	"yup":     true,
	"sure":    true,
	"ok":      true,
	"okay":    true,
	"correct": true,
	"right":   true,
	"keep":    true,
}

func isAffirmative(utterance string) bool {
	normalized := strings.ToLower(strings.TrimSpace(utterance))
	normalized = strings.Trim(normalized, ".!?,")
	if normalized == "" {
		return false
	}
	fields := strings.Fields(normalized)
	if len(fields) > 3 {
		return false
	}
	return affirmatives[fields[0]]
}

// reusableSlots intersects the collected slots with the new topic's required
// and optional slots.
func (o *Orchestrator) reusableSlots(newTopic string, collected map[string]string) map[string]string {
	relevant := make(map[string]bool)
	for _, id := range o.registry.RequiredSlots(newTopic) {
		relevant[id] = true
	}
	for _, id := range o.registry.OptionalSlots(newTopic) {
		relevant[id] = true
	}

	reusable := make(map[string]string)
	for id, value := range collected {
		if relevant[id] && value != "" {
			reusable[id] = value
		}
	}
	return reusable
}

// confirmationPrompt lists each reusable slot in the new topic's registry
// order and asks whether to carry it over.
func confirmationPrompt(reg *registry.Registry, newTopic string, reusable map[string]string) string {
	var items []string
	appendKnown := func(ids []string) {
		for _, id := range ids {
			if value, ok := reusable[id]; ok {
				items = append(items, fmt.Sprintf("%s: %s", id, value))
			}
		}
	}
	appendKnown(reg.RequiredSlots(newTopic))
	appendKnown(reg.OptionalSlots(newTopic))

	return fmt.Sprintf(
		"It looks like you're now asking about %s. I already have some details from our conversation: %s. Should I keep using them? (yes/no)",
		newTopic, strings.Join(items, ", "))
}
