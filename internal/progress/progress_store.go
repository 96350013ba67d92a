// Package progress merges quiz outcomes and study activity into per-user
// history documents and mirrors a denormalized leaderboard for ranked reads.
package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"geolearn-service/internal/domain"
)

// ProgressStore owns all writes to the users and leaderboard collections.
type ProgressStore struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

func NewProgressStore(store Store, log *zap.Logger) *ProgressStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProgressStore{store: store, log: log, now: time.Now}
}

// NewProgressStoreWithClock is test-only for deterministic timestamps.
func NewProgressStoreWithClock(store Store, log *zap.Logger, now func() time.Time) *ProgressStore {
	p := NewProgressStore(store, log)
	p.now = now
	return p
}

// RecordQuizResult appends the result to the user's history, refreshes the
// derived stats, and mirrors the leaderboard entry. Each call counts as one
// attempt; callers own at-most-once delivery. The two document writes are
// each atomic, so concurrent calls for the same user never lose an attempt.
func (p *ProgressStore) RecordQuizResult(ctx context.Context, userID string, result domain.QuizResult) error {
	if err := p.mergeUser(ctx, userID, result); err != nil {
		p.log.Error("record quiz result: user merge failed",
			zap.String("userId", userID), zap.Error(err))
		return fmt.Errorf("record quiz result: %w", err)
	}
	if err := p.mergeLeaderboard(ctx, userID, result); err != nil {
		p.log.Error("record quiz result: leaderboard merge failed",
			zap.String("userId", userID), zap.Error(err))
		return fmt.Errorf("record quiz result: %w", err)
	}
	return nil
}

// mergeUser takes one of two explicit transitions: absent → initialize,
// present → merge. The create can race another initializer; losing that
// race falls through to the merge path.
func (p *ProgressStore) mergeUser(ctx context.Context, userID string, result domain.QuizResult) error {
	now := p.now()
	err := p.store.Update(ctx, CollectionUsers, userID,
		AppendField("quizHistory", result),
		IncField("stats.totalQuizzes", 1),
		MaxField("stats.bestScore", result.Score),
		IncField("stats.studyTime", float64(result.DurationSeconds)),
		SetField("email", result.UserEmail),
		SetField("displayName", domain.DisplayNameFromEmail(result.UserEmail)),
		SetField("lastUpdated", now),
	)
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	createErr := p.store.Create(ctx, CollectionUsers, userID, initialProgress(userID, result, now))
	if errors.Is(createErr, domain.ErrConflict) {
		// Lost the initialize race; the document exists now.
		return p.mergeUser(ctx, userID, result)
	}
	return createErr
}

func (p *ProgressStore) mergeLeaderboard(ctx context.Context, userID string, result domain.QuizResult) error {
	now := p.now()
	err := p.store.Update(ctx, CollectionLeaderboard, userID,
		MaxField("bestScore", result.Score),
		IncField("totalQuizzes", 1),
		SetField("displayName", domain.DisplayNameFromEmail(result.UserEmail)),
		SetField("email", result.UserEmail),
		SetField("lastUpdated", now),
	)
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	entry := domain.LeaderboardEntry{
		UserID:       userID,
		DisplayName:  domain.DisplayNameFromEmail(result.UserEmail),
		Email:        result.UserEmail,
		BestScore:    result.Score,
		TotalQuizzes: 1,
		LastUpdated:  now,
	}
	createErr := p.store.Create(ctx, CollectionLeaderboard, userID, entry)
	if errors.Is(createErr, domain.ErrConflict) {
		return p.mergeLeaderboard(ctx, userID, result)
	}
	return createErr
}

// RecordActivity merges a non-quiz signal into the user's stats. Each kind
// touches only its own stat; unknown kinds are no-ops.
func (p *ProgressStore) RecordActivity(ctx context.Context, userID string, kind domain.ActivityKind, payload domain.ActivityPayload) error {
	now := p.now()

	var ops []FieldOp
	switch kind {
	case domain.ActivityLogin:
		start := payload.StudyTimeStart
		if start == "" {
			start = now.UTC().Format(time.RFC3339)
		}
		ops = []FieldOp{SetField("stats.studyTimeStart", start)}
	case domain.ActivityLogout, domain.ActivityStudy:
		ops = []FieldOp{IncField("stats.studyTime", float64(payload.DurationSeconds))}
	case domain.ActivityExplore:
		ops = []FieldOp{MaxField("stats.shapesExplored", float64(payload.ShapesCount))}
	default:
		return nil
	}
	ops = append(ops, SetField("lastUpdated", now))

	err := p.store.Update(ctx, CollectionUsers, userID, ops...)
	if errors.Is(err, domain.ErrNotFound) {
		createErr := p.store.Create(ctx, CollectionUsers, userID, initialActivityProgress(userID, kind, payload, now))
		if errors.Is(createErr, domain.ErrConflict) {
			return p.RecordActivity(ctx, userID, kind, payload)
		}
		err = createErr
	}
	if err != nil {
		p.log.Error("record activity failed",
			zap.String("userId", userID), zap.String("kind", string(kind)), zap.Error(err))
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// GetProgress returns the full UserProgress, or domain.ErrNotFound.
func (p *ProgressStore) GetProgress(ctx context.Context, userID string) (domain.UserProgress, error) {
	var up domain.UserProgress
	if err := p.store.Get(ctx, CollectionUsers, userID, &up); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			p.log.Error("get progress failed", zap.String("userId", userID), zap.Error(err))
		}
		return domain.UserProgress{}, err
	}
	return up, nil
}

func initialProgress(userID string, result domain.QuizResult, now time.Time) domain.UserProgress {
	return domain.UserProgress{
		ID:          userID,
		Email:       result.UserEmail,
		DisplayName: domain.DisplayNameFromEmail(result.UserEmail),
		CreatedAt:   now,
		LastUpdated: now,
		QuizHistory: []domain.QuizResult{result},
		Stats: domain.Stats{
			TotalQuizzes: 1,
			BestScore:    result.Score,
			StudyTime:    result.DurationSeconds,
		},
	}
}

func initialActivityProgress(userID string, kind domain.ActivityKind, payload domain.ActivityPayload, now time.Time) domain.UserProgress {
	up := domain.UserProgress{
		ID:          userID,
		CreatedAt:   now,
		LastUpdated: now,
		QuizHistory: []domain.QuizResult{},
	}
	switch kind {
	case domain.ActivityLogin:
		start := payload.StudyTimeStart
		if start == "" {
			start = now.UTC().Format(time.RFC3339)
		}
		up.Stats.StudyTimeStart = start
	case domain.ActivityLogout, domain.ActivityStudy:
		up.Stats.StudyTime = payload.DurationSeconds
	case domain.ActivityExplore:
		up.Stats.ShapesExplored = payload.ShapesCount
	}
	return up
}
