// Package guardrail provides the local, call-free relevance filter applied to
// every utterance before any model or search call is made.
package guardrail

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Classifier decides whether a raw utterance is plausibly about health
// insurance. It is a pure function of the input: no network calls, no state.
type Classifier struct {
	// strongKeywords are the domain's own vocabulary; a single hit accepts.
	strongKeywords []string

	// weakKeywords accept only in combination with enough words.
	weakKeywords []string

	// offTopicPhrases reject short greeting/small-talk utterances.
	offTopicPhrases []string
}

// NewClassifier creates a classifier with the default insurance vocabulary.
func NewClassifier() *Classifier {
	return &Classifier{
		strongKeywords: []string{
			"insurance", "insurer", "plan", "coverage", "premium", "deductible",
			"copay", "coinsurance", "medicare", "medicaid", "hmo", "ppo", "epo",
			"enroll", "enrollment", "policy", "benefits", "subsidy", "subsidies",
			"network", "claim", "marketplace", "obamacare",
		},
		weakKeywords: []string{
			"cover", "covers", "covered", "doctor", "hospital", "provider",
			"dental", "vision", "prescription", "drug", "specialist", "county",
			"income", "age", "year", "silver", "gold", "bronze", "platinum",
			"compare", "quote", "afford", "health",
		},
		offTopicPhrases: []string{
			"hi", "hello", "hey", "howdy", "good morning", "good afternoon",
			"good evening", "how are you", "what's up", "thanks", "thank you",
			"bye", "goodbye", "weather", "movie", "movies", "music", "song",
			"joke", "sports", "recipe", "game",
		},
	}
}

// IsOnTopic reports whether the utterance should proceed to extraction.
// The rules are ordered; earlier rules win.
func (c *Classifier) IsOnTopic(utterance string) bool {
	trimmed := strings.TrimSpace(utterance)

	// Too short to mean anything.
	if utf8.RuneCountInString(trimmed) < 2 {
		return false
	}

	// Bare numbers are valid slot answers (age, year, income).
	if isNumeric(trimmed) {
		return true
	}

	if utf8.RuneCountInString(trimmed) == 1 {
		return false
	}

	lower := strings.ToLower(trimmed)
	words := strings.Fields(lower)

	hasDomainWord := c.containsAny(lower, c.strongKeywords) || c.containsAny(lower, c.weakKeywords)

	// Short greetings and small talk are rejected, but an off-topic phrase
	// inside a longer utterance that also carries domain vocabulary is fine.
	if c.containsAny(lower, c.offTopicPhrases) {
		if len(words) <= 3 && !hasDomainWord {
			return false
		}
	}

	if c.containsAny(lower, c.strongKeywords) {
		return true
	}

	if c.containsAny(lower, c.weakKeywords) && len(words) >= 3 {
		return true
	}

	// Long utterances get the benefit of the doubt.
	if len(words) >= 5 {
		return true
	}

	if len(words) == 1 {
		return false
	}

	return false
}

func (c *Classifier) containsAny(lower string, keywords []string) bool {
	for _, keyword := range keywords {
		if containsWord(lower, keyword) {
			return true
		}
	}
	return false
}

// containsWord matches keyword on word boundaries so "age" does not fire
// inside "coverage" or "message".
func containsWord(lower, keyword string) bool {
	idx := 0
	for {
		pos := strings.Index(lower[idx:], keyword)
		if pos < 0 {
			return false
		}
		pos += idx

		beforeOK := pos == 0 || !isWordRune(rune(lower[pos-1]))
		end := pos + len(keyword)
		afterOK := end == len(lower) || !isWordRune(rune(lower[end]))
		if beforeOK && afterOK {
			return true
		}
		idx = pos + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}
