package progress

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"geolearn-service/internal/domain"
)

// LeaderboardRanker serves the ranked top-N view. Read-only; the entries
// themselves are maintained by ProgressStore.
type LeaderboardRanker struct {
	store Store
	log   *zap.Logger
}

func NewLeaderboardRanker(store Store, log *zap.Logger) *LeaderboardRanker {
	if log == nil {
		log = zap.NewNop()
	}
	return &LeaderboardRanker{store: store, log: log}
}

// GetTopN returns at most n entries ordered by bestScore descending.
// Ties keep the store's order, which is stable but not contractual.
func (r *LeaderboardRanker) GetTopN(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	var entries []domain.LeaderboardEntry
	if err := r.store.TopN(ctx, CollectionLeaderboard, "bestScore", n, &entries); err != nil {
		r.log.Error("leaderboard read failed", zap.Int("limit", n), zap.Error(err))
		return nil, fmt.Errorf("leaderboard top %d: %w", n, err)
	}
	return entries, nil
}
