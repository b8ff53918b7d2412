package dialog

import "fmt"

// ackVariants holds canned acknowledgment templates keyed by slot id. The
// orchestrator cycles through a slot's variants by collected-slot count so
// consecutive turns don't repeat the same phrasing.
var ackVariants = map[string][]string{
	"age": {
		"Thank you! I found quite a few insurance options for someone who is %s years old.",
		"Excellent! There are several plans available for your age group (%s).",
	},
	"income": {
		"Perfect! Based on an income of $%s, I can see there are multiple affordable options.",
		"Great! With that income level ($%s), you may qualify for some excellent plans.",
	},
	"county": {
		"Wonderful! %s county has many insurance providers to choose from.",
		"Thanks! There are several quality insurance plans available in %s county.",
	},
	"plan_name": {
		"Got it! Looking into %s for you.",
		"Perfect! Let me find details about %s.",
	},
	"insurer": {
		"Great! I'll search for plans from %s.",
		"Understood! Looking at %s's offerings.",
	},
	"year": {
		"Perfect! I'll focus on %s plans.",
		"Got it! Searching for %s coverage options.",
	},
	"provider_name": {
		"Thank you! Looking up information for %s.",
		"Got it! Checking network coverage for %s.",
	},
	"specialty": {
		"Perfect! Searching for %s providers.",
		"Understood! Finding %s specialists for you.",
	},
	"topic": {
		"Great question about %s! Let me help you with that.",
		"I understand you want to know about %s.",
	},
}

// acknowledge returns a short confirmation of the most recently filled slot.
func acknowledge(slotID, value string, collectedCount int) string {
	variants, ok := ackVariants[slotID]
	if !ok {
		return fmt.Sprintf("Got it, %s: %s.", slotID, value)
	}
	return fmt.Sprintf(variants[collectedCount%len(variants)], value)
}
