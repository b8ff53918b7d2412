package dialog

import (
	"context"

	"github.com/coverline/coverline/plugin/nlu"
	"github.com/coverline/coverline/server/retrieval"
)

// MockExtractor is a test double for Extractor. Results are consumed in
// order; the last one repeats.
type MockExtractor struct {
	Results    []nlu.Result
	Err        error
	Utterances []string
	Contexts   []nlu.TurnContext

	next int
}

func (m *MockExtractor) Extract(_ context.Context, utterance string, tc nlu.TurnContext) (nlu.Result, error) {
	m.Utterances = append(m.Utterances, utterance)
	m.Contexts = append(m.Contexts, tc)
	if m.Err != nil {
		return nlu.Result{}, m.Err
	}
	if len(m.Results) == 0 {
		return nlu.Result{}, nil
	}
	idx := m.next
	if idx >= len(m.Results) {
		idx = len(m.Results) - 1
	}
	m.next++
	return m.Results[idx], nil
}

// RetrieverCall records one retrieval invocation.
type RetrieverCall struct {
	Topic          string
	FirstUtterance string
	Slots          map[string]string
}

// MockRetriever is a test double for Retriever.
type MockRetriever struct {
	Summary string
	Hits    []retrieval.Hit
	Err     error
	Calls   []RetrieverCall
}

func (m *MockRetriever) Run(_ context.Context, topic, firstUtterance string, slots map[string]string) (string, []retrieval.Hit, error) {
	m.Calls = append(m.Calls, RetrieverCall{
		Topic:          topic,
		FirstUtterance: firstUtterance,
		Slots:          copyMap(slots),
	})
	if m.Err != nil {
		return "", nil, m.Err
	}
	return m.Summary, m.Hits, nil
}

// allowAllGuard accepts every utterance.
type allowAllGuard struct{}

func (allowAllGuard) IsOnTopic(string) bool { return true }

var (
	_ Extractor = (*MockExtractor)(nil)
	_ Retriever = (*MockRetriever)(nil)
	_ Guard     = allowAllGuard{}
)
