// Package app wires the quiz attempt state machine to the question bank
// and the progress layer: the use cases behind the websocket transport.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"geolearn-service/internal/domain"
	"geolearn-service/internal/quiz"
)

// leaderboardSize is how many entries ride along with a completion push.
const leaderboardSize = 10

// AttemptRepository stores active quiz attempts keyed by client session.
type AttemptRepository interface {
	GetOrCreate(sessionID string, create func() *quiz.Attempt) *quiz.Attempt
	Get(sessionID string) (*quiz.Attempt, bool)
	Delete(sessionID string)
}

// BankRepository loads question banks (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, bankID string) (domain.QuestionBank, error)
}

// ProgressRecorder persists completed quiz results.
type ProgressRecorder interface {
	RecordQuizResult(ctx context.Context, userID string, result domain.QuizResult) error
}

// LeaderboardReader serves the ranked top-N view.
type LeaderboardReader interface {
	GetTopN(ctx context.Context, n int) ([]domain.LeaderboardEntry, error)
}

// QuizFlow contains the quiz-taking use cases.
type QuizFlow struct {
	attempts    AttemptRepository
	banks       BankRepository
	progress    ProgressRecorder
	leaderboard LeaderboardReader
	log         *zap.Logger
}

func NewQuizFlow(attempts AttemptRepository, banks BankRepository, recorder ProgressRecorder, leaderboard LeaderboardReader, log *zap.Logger) *QuizFlow {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuizFlow{
		attempts:    attempts,
		banks:       banks,
		progress:    recorder,
		leaderboard: leaderboard,
		log:         log,
	}
}

// Completion is returned by Next when the attempt just finished: the
// frozen result plus a fresh leaderboard snapshot when one was recorded.
type Completion struct {
	Result      domain.QuizResult         `json:"result"`
	Recorded    bool                      `json:"recorded"`
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard,omitempty"`
}

// Start loads the bank and creates (or resumes) the attempt for the session.
func (f *QuizFlow) Start(ctx context.Context, sessionID, email, bankID string) (quiz.View, error) {
	bank, err := f.banks.GetBank(ctx, bankID)
	if err != nil {
		return quiz.View{}, fmt.Errorf("start quiz: %w", err)
	}
	if len(bank.Questions) == 0 {
		return quiz.View{}, fmt.Errorf("start quiz: %w", domain.ErrBankNotFound)
	}
	attempt := f.attempts.GetOrCreate(sessionID, func() *quiz.Attempt {
		return quiz.NewAttempt(bank, email)
	})
	return attempt.Snapshot(), nil
}

// Answer selects an option for the question at index. Illegal selections
// leave the attempt unchanged; the returned view reflects whatever held.
func (f *QuizFlow) Answer(_ context.Context, sessionID string, index int, option string) (quiz.View, error) {
	attempt, ok := f.attempts.Get(sessionID)
	if !ok {
		return quiz.View{}, domain.ErrAttemptNotFound
	}
	attempt.SelectAnswer(index, option)
	return attempt.Snapshot(), nil
}

// Next advances the attempt. When the advance completes the quiz, the
// result is returned and, for identified users, recorded to the progress
// layer; anonymous results are computed but not persisted.
func (f *QuizFlow) Next(ctx context.Context, sessionID, userID string) (quiz.View, *Completion, error) {
	attempt, ok := f.attempts.Get(sessionID)
	if !ok {
		return quiz.View{}, nil, domain.ErrAttemptNotFound
	}

	completedNow := attempt.Advance()
	view := attempt.Snapshot()
	if !completedNow {
		return view, nil, nil
	}

	result, _ := attempt.Result()
	completion := &Completion{Result: result}
	if userID == "" {
		return view, completion, nil
	}

	if err := f.progress.RecordQuizResult(ctx, userID, result); err != nil {
		// The attempt still completed; surface the view and result so the
		// client can show feedback, with the store failure attached.
		return view, completion, err
	}
	completion.Recorded = true

	entries, err := f.leaderboard.GetTopN(ctx, leaderboardSize)
	if err != nil {
		f.log.Warn("leaderboard refresh after completion failed",
			zap.String("userId", userID), zap.Error(err))
		return view, completion, nil
	}
	completion.Leaderboard = entries
	return view, completion, nil
}

// Prev moves back one question; no-op at the first question.
func (f *QuizFlow) Prev(_ context.Context, sessionID string) (quiz.View, error) {
	attempt, ok := f.attempts.Get(sessionID)
	if !ok {
		return quiz.View{}, domain.ErrAttemptNotFound
	}
	attempt.Retreat()
	return attempt.Snapshot(), nil
}

// Restart resets a completed attempt back to its first question.
func (f *QuizFlow) Restart(_ context.Context, sessionID string) (quiz.View, error) {
	attempt, ok := f.attempts.Get(sessionID)
	if !ok {
		return quiz.View{}, domain.ErrAttemptNotFound
	}
	if err := attempt.Restart(); err != nil {
		return quiz.View{}, err
	}
	return attempt.Snapshot(), nil
}

// End drops the attempt for a disconnected session.
func (f *QuizFlow) End(_ context.Context, sessionID string) {
	f.attempts.Delete(sessionID)
}
