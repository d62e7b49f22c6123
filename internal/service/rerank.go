package service

import (
	"context"
	"sort"
	"sync"

	"github.com/cloo-solutions/infofinder/internal/domain"
)

// RelevanceScorer computes an independent pairwise relevance score between
// the query text and a chunk text. Higher means more relevant; any monotone
// scorer conforms. Implementations may block on external models; the
// orchestrator treats them as opaque asynchronous operations.
type RelevanceScorer interface {
	ScoreRelevance(ctx context.Context, query, text string) (float64, error)
}

const maxConcurrentScores = 8

// rerank scores every fused candidate against the query and re-sorts by
// score descending. The sort is stable, so candidates with equal scores keep
// the incoming fusion order. It never introduces a candidate not present in
// its input. All scores are collected before sorting; any scorer error fails
// the whole pass so the caller can bypass reranking instead of reordering on
// partial scores.
func rerank(ctx context.Context, scorer RelevanceScorer, query string, entries []domain.RankedEntry, texts []string) ([]domain.RankedEntry, error) {
	if len(entries) == 0 {
		return entries, nil
	}

	scores := make([]float64, len(entries))
	errs := make([]error, len(entries))

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrentScores)
	for i := range entries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return
			}
			defer func() { <-sem }()
			scores[i], errs[i] = scorer.ScoreRelevance(ctx, query, texts[i])
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	reranked := make([]domain.RankedEntry, len(entries))
	copy(reranked, entries)
	for i := range reranked {
		score := scores[i]
		reranked[i].RerankScore = &score
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return *reranked[i].RerankScore > *reranked[j].RerankScore
	})
	return reranked, nil
}
