package app_test

import (
	"context"
	"testing"
	"time"

	"geolearn-service/internal/app"
	"geolearn-service/internal/domain"
	"geolearn-service/internal/infra/memory"
	"geolearn-service/internal/progress"
)

func TestCompletedQuizIsRecorded(t *testing.T) {
	ctx := context.Background()
	flow, ps := newTestFlow()

	view, err := flow.Start(ctx, "s1", "alice@example.com", "bank-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.TotalQuestions != 2 || view.Index != 0 {
		t.Fatalf("unexpected initial view %+v", view)
	}

	if _, err := flow.Answer(ctx, "s1", 0, "8"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, completion, err := flow.Next(ctx, "s1", "u1"); err != nil || completion != nil {
		t.Fatalf("expected plain advance, got completion=%v err=%v", completion, err)
	}
	if _, err := flow.Answer(ctx, "s1", 1, "54"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	_, completion, err := flow.Next(ctx, "s1", "u1")
	if err != nil {
		t.Fatalf("final next: %v", err)
	}
	if completion == nil || !completion.Recorded {
		t.Fatalf("expected recorded completion, got %+v", completion)
	}
	if completion.Result.Score != 100.0 {
		t.Fatalf("expected perfect score, got %v", completion.Result.Score)
	}
	if len(completion.Leaderboard) != 1 || completion.Leaderboard[0].BestScore != 100.0 {
		t.Fatalf("expected leaderboard refresh, got %+v", completion.Leaderboard)
	}

	up, err := ps.GetProgress(ctx, "u1")
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if up.Stats.TotalQuizzes != 1 || up.Stats.BestScore != 100.0 {
		t.Fatalf("unexpected stats %+v", up.Stats)
	}
}

func TestAnonymousAttemptNotPersisted(t *testing.T) {
	ctx := context.Background()
	flow, ps := newTestFlow()

	if _, err := flow.Start(ctx, "s1", "", "bank-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := flow.Answer(ctx, "s1", 0, "8"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	flowNext(t, flow, ctx, "s1")

	_, completion, err := flow.Next(ctx, "s1", "")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if completion == nil {
		t.Fatalf("expected completion for feedback")
	}
	if completion.Recorded || completion.Leaderboard != nil {
		t.Fatalf("anonymous result must not persist, got %+v", completion)
	}

	if _, err := ps.GetProgress(ctx, ""); err != domain.ErrNotFound {
		t.Fatalf("expected no progress written, got %v", err)
	}
}

func TestFlowRequiresStart(t *testing.T) {
	ctx := context.Background()
	flow, _ := newTestFlow()

	if _, err := flow.Answer(ctx, "unknown", 0, "8"); err != domain.ErrAttemptNotFound {
		t.Fatalf("expected attempt not found, got %v", err)
	}
	if _, _, err := flow.Next(ctx, "unknown", "u1"); err != domain.ErrAttemptNotFound {
		t.Fatalf("expected attempt not found, got %v", err)
	}
}

func TestStartUnknownBank(t *testing.T) {
	flow, _ := newTestFlow()
	if _, err := flow.Start(context.Background(), "s1", "", "missing"); err == nil {
		t.Fatalf("expected error for unknown bank")
	}
}

func TestRestartAfterCompletion(t *testing.T) {
	ctx := context.Background()
	flow, _ := newTestFlow()

	if _, err := flow.Start(ctx, "s1", "", "bank-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := flow.Restart(ctx, "s1"); err != domain.ErrAttemptInProgress {
		t.Fatalf("expected restart rejected mid-quiz, got %v", err)
	}

	flowNext(t, flow, ctx, "s1")
	flowNext(t, flow, ctx, "s1")

	view, err := flow.Restart(ctx, "s1")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if view.Index != 0 || view.Completed {
		t.Fatalf("expected fresh attempt, got %+v", view)
	}
}

func flowNext(t *testing.T, flow *app.QuizFlow, ctx context.Context, sessionID string) {
	t.Helper()
	if _, _, err := flow.Next(ctx, sessionID, ""); err != nil {
		t.Fatalf("next: %v", err)
	}
}

func newTestFlow() (*app.QuizFlow, *progress.ProgressStore) {
	store := memory.NewDocStore()
	ps := progress.NewProgressStore(store, nil)
	ranker := progress.NewLeaderboardRanker(store, nil)
	banks := memory.NewBankRepository(memory.NewStaticBankLoader(map[string]domain.QuestionBank{
		"bank-1": testBank(),
	}), 5*time.Minute)
	flow := app.NewQuizFlow(memory.NewAttemptStore(), banks, ps, ranker, nil)
	return flow, ps
}

func testBank() domain.QuestionBank {
	return domain.QuestionBank{
		ID: "bank-1",
		Questions: []domain.Question{
			{
				Prompt:        "What is the volume of a cube with side length 2?",
				Options:       []string{"6", "8", "12"},
				CorrectAnswer: "8",
				Shape: domain.ShapeSpec{
					Type:       domain.KindCube,
					Dimensions: map[string]float64{"width": 2},
				},
				Explanation: "Volume of a cube is a^3, so 2^3 = 8.",
			},
			{
				Prompt:        "What is the surface area of a cube with side length 3?",
				Options:       []string{"27", "36", "54"},
				CorrectAnswer: "54",
				Shape: domain.ShapeSpec{
					Type:       domain.KindCube,
					Dimensions: map[string]float64{"width": 3},
				},
				Explanation: "Surface area is 6*a^2, so 6*9 = 54.",
			},
		},
	}
}
