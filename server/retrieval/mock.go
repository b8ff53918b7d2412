package retrieval

import "context"

// MockSearcher is a test double for Searcher.
type MockSearcher struct {
	Hits    []Hit
	Err     error
	Queries []string
}

func (m *MockSearcher) Search(_ context.Context, query string, _ int) ([]Hit, error) {
	m.Queries = append(m.Queries, query)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Hits, nil
}

var _ Searcher = (*MockSearcher)(nil)
