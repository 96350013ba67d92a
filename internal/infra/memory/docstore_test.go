package memory

import (
	"context"
	"testing"

	"geolearn-service/internal/domain"
	"geolearn-service/internal/progress"
)

func TestDocStoreCreateConflict(t *testing.T) {
	ctx := context.Background()
	store := NewDocStore()

	if err := store.Create(ctx, "users", "u1", map[string]any{"email": "a@b.c"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, "users", "u1", map[string]any{"email": "x@y.z"}); err != domain.ErrConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestDocStoreUpdateMissing(t *testing.T) {
	store := NewDocStore()
	err := store.Update(context.Background(), "users", "ghost", progress.IncField("stats.totalQuizzes", 1))
	if err != domain.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDocStoreNestedOps(t *testing.T) {
	ctx := context.Background()
	store := NewDocStore()

	if err := store.Set(ctx, "users", "u1", map[string]any{"stats": map[string]any{"bestScore": 40.0}}); err != nil {
		t.Fatalf("set: %v", err)
	}

	err := store.Update(ctx, "users", "u1",
		progress.IncField("stats.totalQuizzes", 1),
		progress.MaxField("stats.bestScore", 25),
		progress.AppendField("quizHistory", map[string]any{"score": 25.0}),
		progress.SetField("email", "alice@example.com"),
	)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	var doc struct {
		Email       string `json:"email"`
		QuizHistory []struct {
			Score float64 `json:"score"`
		} `json:"quizHistory"`
		Stats struct {
			TotalQuizzes int     `json:"totalQuizzes"`
			BestScore    float64 `json:"bestScore"`
		} `json:"stats"`
	}
	if err := store.Get(ctx, "users", "u1", &doc); err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Stats.TotalQuizzes != 1 {
		t.Fatalf("inc on missing field must start at 0, got %d", doc.Stats.TotalQuizzes)
	}
	if doc.Stats.BestScore != 40.0 {
		t.Fatalf("max must keep the larger stored value, got %v", doc.Stats.BestScore)
	}
	if len(doc.QuizHistory) != 1 || doc.QuizHistory[0].Score != 25.0 {
		t.Fatalf("append must create the array, got %+v", doc.QuizHistory)
	}
	if doc.Email != "alice@example.com" {
		t.Fatalf("set failed, got %q", doc.Email)
	}
}

func TestDocStoreTopNStableTies(t *testing.T) {
	ctx := context.Background()
	store := NewDocStore()

	seed := []struct {
		id    string
		score float64
	}{
		{"a", 50}, {"b", 70}, {"c", 50}, {"d", 90},
	}
	for _, s := range seed {
		if err := store.Set(ctx, "leaderboard", s.id, map[string]any{"userId": s.id, "bestScore": s.score}); err != nil {
			t.Fatalf("set %s: %v", s.id, err)
		}
	}

	var entries []struct {
		UserID    string  `json:"userId"`
		BestScore float64 `json:"bestScore"`
	}
	if err := store.TopN(ctx, "leaderboard", "bestScore", 3, &entries); err != nil {
		t.Fatalf("topN: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].UserID != "d" || entries[1].UserID != "b" {
		t.Fatalf("expected d,b leading, got %+v", entries)
	}
	// a and c tie at 50; insertion order keeps a first.
	if entries[2].UserID != "a" {
		t.Fatalf("expected stable tie order, got %+v", entries)
	}
}
