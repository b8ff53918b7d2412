package nlu

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coverline/coverline/plugin/registry"
)

const extractionSystemPrompt = `You analyze user messages about health insurance plans. ` +
	`You classify the message into one of the valid intents and extract any entities ` +
	`that are EXPLICITLY mentioned. Return JSON only, no additional text or markdown formatting.`

// buildExtractionPrompt constructs the context-aware extraction prompt: the
// registry's topic and slot catalog, the collected slots so far, a local
// keyword hint, and an instruction for bare replies while mid-collection.
func buildExtractionPrompt(reg *registry.Registry, utterance string, tc TurnContext, hint string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Analyze this user message: %q\n", utterance)

	if len(tc.Collected) > 0 {
		collected, _ := json.Marshal(tc.Collected)
		fmt.Fprintf(&sb, "\nAlready collected information: %s\n", collected)
	}
	if tc.Topic != "" {
		fmt.Fprintf(&sb, "\nCurrent conversation topic: %s\n", tc.Topic)
	}
	if hint != "" {
		fmt.Fprintf(&sb, "\nHINT: This looks like a %s query based on keywords.\n", hint)
	}
	if tc.AskingFor != "" {
		fmt.Fprintf(&sb, "\nIMPORTANT: We are currently asking the user for their %q. "+
			"If the message contains ONLY a number or a simple value, interpret it as the %s.\n",
			tc.AskingFor, tc.AskingFor)
	}
	if len(tc.History) > 0 {
		recent := tc.History
		if len(recent) > 6 {
			recent = recent[len(recent)-6:]
		}
		sb.WriteString("\nRecent conversation:\n")
		for _, line := range recent {
			fmt.Fprintf(&sb, "- %s\n", line)
		}
	}

	sb.WriteString("\nFirst, determine the PRIMARY INTENT:\n")
	for _, topicID := range reg.Topics() {
		def, _ := reg.Topic(topicID)
		fmt.Fprintf(&sb, "- %s: %s\n", def.ID, def.Description)
	}

	sb.WriteString("\nThen extract relevant entities ONLY if they are EXPLICITLY mentioned:\n")
	for _, slotID := range reg.Slots() {
		def, _ := reg.Slot(slotID)
		fmt.Fprintf(&sb, "- %s: %s", def.ID, def.Description)
		if len(def.Examples) > 0 {
			fmt.Fprintf(&sb, " (e.g., %s)", strings.Join(def.Examples, ", "))
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "\nReturn JSON only:\n{\n  \"intent\": \"one of: %s\",\n  \"entities\": {\"slot_id\": \"value\"}\n}",
		strings.Join(reg.Topics(), ", "))

	return sb.String()
}

// preClassify makes a cheap keyword-based topic guess without any network
// call. The guess biases the model, it never decides on its own.
func preClassify(utterance string) string {
	lower := strings.ToLower(utterance)

	contains := func(phrases ...string) bool {
		for _, phrase := range phrases {
			if strings.Contains(lower, phrase) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("news", "latest", "update", "recent", "what's new", "breaking"):
		return "News"
	case contains("compare", " vs ", "versus", "difference between"):
		return "Comparison"
	case contains("doctor", "hospital", "physician", "in-network", "in network"):
		return "ProviderNetwork"
	case contains("does it cover", "coverage for", "cover ", "included", "benefits"):
		return "CoverageDetail"
	case contains("what is", "explain", "define", "how does", "tell me about", "what are"):
		return "FAQ"
	default:
		return ""
	}
}
