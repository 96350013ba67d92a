package progress_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geolearn-service/internal/domain"
	"geolearn-service/internal/infra/memory"
	"geolearn-service/internal/progress"
)

func TestRecordFirstQuizResultInitializes(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocStore()
	ps := progress.NewProgressStore(store, nil)

	result := quizResult(80, 120)
	require.NoError(t, ps.RecordQuizResult(ctx, "u1", result))

	up, err := ps.GetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", up.ID)
	assert.Equal(t, "alice@example.com", up.Email)
	assert.Equal(t, "alice", up.DisplayName)
	assert.Equal(t, 1, up.Stats.TotalQuizzes)
	assert.Equal(t, 80.0, up.Stats.BestScore)
	assert.Equal(t, int64(120), up.Stats.StudyTime)
	require.Len(t, up.QuizHistory, 1)
	assert.Equal(t, 80.0, up.QuizHistory[0].Score)

	var entry domain.LeaderboardEntry
	require.NoError(t, store.Get(ctx, progress.CollectionLeaderboard, "u1", &entry))
	assert.Equal(t, 80.0, entry.BestScore)
	assert.Equal(t, 1, entry.TotalQuizzes)
	assert.Equal(t, "alice", entry.DisplayName)
}

func TestLowerScoreKeepsBestScore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocStore()
	ps := progress.NewProgressStore(store, nil)

	require.NoError(t, ps.RecordQuizResult(ctx, "u1", quizResult(80, 60)))
	require.NoError(t, ps.RecordQuizResult(ctx, "u1", quizResult(40, 30)))

	up, err := ps.GetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, up.Stats.TotalQuizzes)
	assert.Equal(t, 80.0, up.Stats.BestScore)
	assert.Len(t, up.QuizHistory, 2, "history grows regardless of score")
	assert.Equal(t, int64(90), up.Stats.StudyTime)

	var entry domain.LeaderboardEntry
	require.NoError(t, store.Get(ctx, progress.CollectionLeaderboard, "u1", &entry))
	assert.Equal(t, 80.0, entry.BestScore, "leaderboard best untouched by lower score")
	assert.Equal(t, 2, entry.TotalQuizzes)
}

func TestHigherScoreRaisesBestScore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocStore()
	ps := progress.NewProgressStore(store, nil)

	require.NoError(t, ps.RecordQuizResult(ctx, "u1", quizResult(40, 60)))
	require.NoError(t, ps.RecordQuizResult(ctx, "u1", quizResult(95, 60)))

	up, err := ps.GetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 95.0, up.Stats.BestScore)

	var entry domain.LeaderboardEntry
	require.NoError(t, store.Get(ctx, progress.CollectionLeaderboard, "u1", &entry))
	assert.Equal(t, 95.0, entry.BestScore)
}

func TestConcurrentRecordsBothLand(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocStore()
	ps := progress.NewProgressStore(store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(score float64) {
			defer wg.Done()
			_ = ps.RecordQuizResult(ctx, "u1", quizResult(score, 30))
		}(60 + float64(i)*10)
	}
	wg.Wait()

	up, err := ps.GetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, up.Stats.TotalQuizzes, "no attempt may be lost to a race")
	assert.Len(t, up.QuizHistory, 2)
	assert.Equal(t, 70.0, up.Stats.BestScore)
}

func TestRecordActivityTouchesOnlyItsStat(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocStore()
	ps := progress.NewProgressStore(store, nil)

	require.NoError(t, ps.RecordQuizResult(ctx, "u1", quizResult(50, 0)))

	require.NoError(t, ps.RecordActivity(ctx, "u1", domain.ActivityStudy, domain.ActivityPayload{DurationSeconds: 300}))
	require.NoError(t, ps.RecordActivity(ctx, "u1", domain.ActivityLogout, domain.ActivityPayload{DurationSeconds: 100}))
	require.NoError(t, ps.RecordActivity(ctx, "u1", domain.ActivityExplore, domain.ActivityPayload{ShapesCount: 3}))
	require.NoError(t, ps.RecordActivity(ctx, "u1", domain.ActivityExplore, domain.ActivityPayload{ShapesCount: 2}))
	require.NoError(t, ps.RecordActivity(ctx, "u1", domain.ActivityLogin, domain.ActivityPayload{StudyTimeStart: "2025-08-11T10:00:00Z"}))

	up, err := ps.GetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(400), up.Stats.StudyTime)
	assert.Equal(t, 3, up.Stats.ShapesExplored, "explore keeps the larger count")
	assert.Equal(t, "2025-08-11T10:00:00Z", up.Stats.StudyTimeStart)
	assert.Equal(t, 1, up.Stats.TotalQuizzes, "quiz stats untouched by activity")
	assert.Equal(t, 50.0, up.Stats.BestScore)
}

func TestUnknownActivityKindIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocStore()
	ps := progress.NewProgressStore(store, nil)

	require.NoError(t, ps.RecordActivity(ctx, "u1", "teleport", domain.ActivityPayload{DurationSeconds: 999}))

	_, err := ps.GetProgress(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound, "no document should be created for unknown kinds")
}

func TestActivityCreatesProgressWhenAbsent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocStore()
	ps := progress.NewProgressStore(store, nil)

	require.NoError(t, ps.RecordActivity(ctx, "u1", domain.ActivityStudy, domain.ActivityPayload{DurationSeconds: 45}))

	up, err := ps.GetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(45), up.Stats.StudyTime)
	assert.Equal(t, 0, up.Stats.TotalQuizzes)
	assert.Empty(t, up.QuizHistory)
}

func TestGetProgressNotFound(t *testing.T) {
	ps := progress.NewProgressStore(memory.NewDocStore(), nil)
	_, err := ps.GetProgress(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func quizResult(score float64, duration int64) domain.QuizResult {
	return domain.QuizResult{
		Score:           score,
		TotalQuestions:  5,
		CorrectAnswers:  int(score / 20),
		UserEmail:       "alice@example.com",
		Timestamp:       time.Date(2025, 8, 11, 9, 30, 0, 0, time.UTC),
		DurationSeconds: duration,
	}
}
