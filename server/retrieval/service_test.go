package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceRun(t *testing.T) {
	ctx := context.Background()

	t.Run("builds the query and returns summary with hits", func(t *testing.T) {
		search := &MockSearcher{Hits: []Hit{{Title: "Molina Silver"}, {Title: "Aetna Bronze"}}}
		svc := NewService(search, nil, 2)

		summary, hits, err := svc.Run(ctx, "PlanInfo", "Tell me about Molina Silver plan", map[string]string{
			"age": "43", "county": "Broward",
		})
		require.NoError(t, err)
		assert.Len(t, hits, 2)
		assert.Equal(t, "Based on your profile (Age: 43, County: Broward), I found 2 insurance options for you:", summary)

		require.Len(t, search.Queries, 1)
		assert.Equal(t, "Tell me about Molina Silver plan for 43 year old in Broward county", search.Queries[0])
	})

	t.Run("search failure propagates", func(t *testing.T) {
		search := &MockSearcher{Err: ErrUpstream}
		svc := NewService(search, nil, 0)

		_, _, err := svc.Run(ctx, "FAQ", "what is a copay", nil)
		assert.ErrorIs(t, err, ErrUpstream)
	})

	t.Run("cancelled context aborts before searching", func(t *testing.T) {
		search := &MockSearcher{Hits: []Hit{{Title: "x"}}}
		svc := NewService(search, nil, 1)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, _, err := svc.Run(cancelled, "FAQ", "q", nil)
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrUpstream))
		assert.Empty(t, search.Queries)
	})
}
