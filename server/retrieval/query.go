package retrieval

import (
	"fmt"
	"strings"
)

// QueryStrategy turns the first user utterance and the collected slots into
// the query sent to the search service.
type QueryStrategy func(firstUtterance string, slots map[string]string) string

// queryStrategies keys query construction by topic. Topics absent from the
// table reuse the first utterance as-is. New topics register here instead of
// branching inside the builder.
var queryStrategies = map[string]QueryStrategy{
	"PlanInfo":        withDemographics,
	"Comparison":      withDemographics,
	"ProviderNetwork": withDemographics,
	"News":            newsQuery,
}

// BuildQuery composes the retrieval query for a topic.
func BuildQuery(topic, firstUtterance string, slots map[string]string) string {
	base := strings.TrimSpace(firstUtterance)
	if strategy, ok := queryStrategies[topic]; ok {
		return strategy(base, slots)
	}
	return base
}

// withDemographics appends personal qualifiers to the utterance. Only topics
// where a user profile narrows the results carry them; asking a general FAQ
// "for a 43 year old" would skew the hits.
func withDemographics(base string, slots map[string]string) string {
	var b strings.Builder
	b.WriteString(base)
	if age := slots["age"]; age != "" {
		fmt.Fprintf(&b, " for %s year old", age)
	}
	if income := slots["income"]; income != "" {
		fmt.Fprintf(&b, " with annual income $%s", income)
	}
	if county := slots["county"]; county != "" {
		fmt.Fprintf(&b, " in %s county", county)
	}
	return b.String()
}

func newsQuery(base string, slots map[string]string) string {
	var b strings.Builder
	b.WriteString(base)
	if insurer := slots["insurer"]; insurer != "" {
		b.WriteString(" " + insurer)
	}
	if year := slots["year"]; year != "" {
		b.WriteString(" " + year)
	}
	b.WriteString(" latest news")
	return b.String()
}
