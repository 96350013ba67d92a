// Package quiz holds the attempt state machine: a fixed question bank
// walked index by index, one answer per index, scored once on completion.
package quiz

import (
	"sync"
	"time"

	"geolearn-service/internal/domain"
)

// Attempt is one user's walk through a question bank. It is in progress
// until Advance is called on the last index, at which point the score is
// computed once and the answers freeze. Safe for concurrent use.
type Attempt struct {
	bank  domain.QuestionBank
	now   func() time.Time
	email string

	mu        sync.RWMutex
	current   int
	answers   map[int]string
	completed bool
	result    domain.QuizResult
	startedAt time.Time
}

// View is a read-only snapshot of the attempt handed to transports.
type View struct {
	Index          int             `json:"index"`
	TotalQuestions int             `json:"totalQuestions"`
	Question       domain.Question `json:"question"`
	Selected       string          `json:"selected,omitempty"`
	Completed      bool            `json:"completed"`
}

// NewAttempt starts an attempt over the bank for the given email (empty
// for anonymous attempts).
func NewAttempt(bank domain.QuestionBank, email string) *Attempt {
	return NewAttemptWithClock(bank, email, time.Now)
}

// NewAttemptWithClock is test-only for deterministic timestamps.
func NewAttemptWithClock(bank domain.QuestionBank, email string, now func() time.Time) *Attempt {
	return &Attempt{
		bank:      bank,
		now:       now,
		email:     email,
		answers:   make(map[int]string),
		startedAt: now(),
	}
}

// SelectAnswer records the option for the question at index, overwriting
// any prior answer there. Illegal selections are ignored: a completed
// attempt, an index out of range, or an option that is not one of that
// question's options all leave the state unchanged.
func (a *Attempt) SelectAnswer(index int, option string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.completed || index < 0 || index >= len(a.bank.Questions) {
		return
	}
	if !a.bank.Questions[index].HasOption(option) {
		return
	}
	a.answers[index] = option
}

// Advance moves to the next question, or on the last index transitions to
// completed and computes the score. Further calls after completion are
// no-ops. Returns true only on the single call that performed the
// transition, so callers can persist the result exactly once.
func (a *Attempt) Advance() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.completed {
		return false
	}
	if a.current < len(a.bank.Questions)-1 {
		a.current++
		return false
	}
	a.complete()
	return true
}

// Retreat moves back one question so a prior answer can be changed.
// No-op at index 0 or after completion.
func (a *Attempt) Retreat() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.completed || a.current == 0 {
		return
	}
	a.current--
}

// Restart resets to the initial in-progress state with empty answers.
// Only legal from the completed state.
func (a *Attempt) Restart() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.completed {
		return domain.ErrAttemptInProgress
	}
	a.current = 0
	a.answers = make(map[int]string)
	a.completed = false
	a.result = domain.QuizResult{}
	a.startedAt = a.now()
	return nil
}

// Result returns the frozen result and true once the attempt completed.
func (a *Attempt) Result() (domain.QuizResult, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.result, a.completed
}

// Snapshot returns the current question view.
func (a *Attempt) Snapshot() View {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return View{
		Index:          a.current,
		TotalQuestions: len(a.bank.Questions),
		Question:       a.bank.Questions[a.current],
		Selected:       a.answers[a.current],
		Completed:      a.completed,
	}
}

// complete scores the attempt. Caller holds the write lock.
func (a *Attempt) complete() {
	correct := 0
	for i, q := range a.bank.Questions {
		if answer, ok := a.answers[i]; ok && answer == q.CorrectAnswer {
			correct++
		}
	}
	total := len(a.bank.Questions)
	score := 0.0
	if total > 0 {
		score = 100 * float64(correct) / float64(total)
	}

	now := a.now()
	a.completed = true
	a.result = domain.QuizResult{
		Score:           score,
		TotalQuestions:  total,
		CorrectAnswers:  correct,
		UserEmail:       a.email,
		Timestamp:       now,
		DurationSeconds: int64(now.Sub(a.startedAt) / time.Second),
	}
}
