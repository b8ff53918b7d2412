package retrieval

import (
	"context"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/coverline/coverline/plugin/ai"
)

// DefaultMaxConcurrent bounds how many searches run at once across all
// sessions.
const DefaultMaxConcurrent = 8

// Service runs the full retrieval pipeline for a completed topic: query
// construction, search, and answer synthesis.
type Service struct {
	search Searcher
	synth  *Synthesizer
	sem    *semaphore.Weighted
}

// NewService creates a retrieval service. A non-positive maxConcurrent uses
// the default.
func NewService(search Searcher, chat ai.ChatCompleter, maxConcurrent int64) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Service{
		search: search,
		synth:  NewSynthesizer(chat),
		sem:    semaphore.NewWeighted(maxConcurrent),
	}
}

// Run searches for the given topic and collected slots and returns the
// synthesized answer with the raw hits. The first utterance anchors the
// query; slots refine it.
func (s *Service) Run(ctx context.Context, topic, firstUtterance string, slots map[string]string) (string, []Hit, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", nil, err
	}
	defer s.sem.Release(1)

	query := BuildQuery(topic, firstUtterance, slots)
	slog.Info("running retrieval", "topic", topic, "query", truncate(query, 120))

	hits, err := s.search.Search(ctx, query, maxResults)
	if err != nil {
		return "", nil, err
	}

	summary := s.synth.Summarize(ctx, topic, firstUtterance, hits, slots)
	return summary, hits, nil
}
