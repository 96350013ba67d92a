package domain

import (
	"strings"
	"time"
)

// ShapeKind enumerates the supported solid primitives.
type ShapeKind string

const (
	KindCube     ShapeKind = "cube"
	KindSphere   ShapeKind = "sphere"
	KindCylinder ShapeKind = "cylinder"
	KindCone     ShapeKind = "cone"
)

// ShapeSpec is the wire form of a shape attached to a question or a
// calculator request. "width" is the edge length for a cube and the
// diameter for round shapes; "height" applies to cylinders and cones.
type ShapeSpec struct {
	Type       ShapeKind          `json:"type"`
	Dimensions map[string]float64 `json:"dimensions"`
	Color      string             `json:"color,omitempty"`
}

// Question is one multiple-choice question with an attached shape used
// by the client as a rendering hint. Options are ordered and unique.
type Question struct {
	Prompt        string    `json:"question"`
	Options       []string  `json:"options"`
	CorrectAnswer string    `json:"correctAnswer"`
	Shape         ShapeSpec `json:"shape"`
	Explanation   string    `json:"explanation"`
}

// HasOption reports whether the option text is one of the question's options.
func (q Question) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

// QuestionBank is a fixed ordered sequence of questions. Its length
// defines the quiz length. Read-only at runtime.
type QuestionBank struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// QuizResult records one completed quiz attempt. Immutable once created;
// appended to a user's history, never mutated or deleted.
type QuizResult struct {
	Score           float64   `json:"score"`
	TotalQuestions  int       `json:"totalQuestions"`
	CorrectAnswers  int       `json:"correctAnswers"`
	UserEmail       string    `json:"userEmail"`
	Timestamp       time.Time `json:"timestamp"`
	DurationSeconds int64     `json:"durationSeconds"`
}

// Stats are the derived counters kept on a UserProgress document.
type Stats struct {
	TotalQuizzes   int     `json:"totalQuizzes"`
	BestScore      float64 `json:"bestScore"`
	StudyTime      int64   `json:"studyTime"` // seconds
	ShapesExplored int     `json:"shapesExplored"`
	StudyTimeStart string  `json:"studyTimeStart,omitempty"`
}

// UserProgress is the per-user aggregate of quiz history and stats.
// Invariants: TotalQuizzes == len(QuizHistory) and BestScore is the max
// score over the history (0 when empty).
type UserProgress struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	DisplayName string       `json:"displayName"`
	CreatedAt   time.Time    `json:"createdAt"`
	LastUpdated time.Time    `json:"lastUpdated"`
	QuizHistory []QuizResult `json:"quizHistory"`
	Stats       Stats        `json:"stats"`
}

// LeaderboardEntry is the denormalized per-user ranking record. BestScore
// is monotonically non-decreasing over the entry's lifetime.
type LeaderboardEntry struct {
	UserID       string    `json:"userId"`
	DisplayName  string    `json:"displayName"`
	Email        string    `json:"email"`
	BestScore    float64   `json:"bestScore"`
	TotalQuizzes int       `json:"totalQuizzes"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// ActivityKind tags a non-quiz progress signal from the UI.
type ActivityKind string

const (
	ActivityLogin   ActivityKind = "login"
	ActivityLogout  ActivityKind = "logout"
	ActivityStudy   ActivityKind = "study"
	ActivityExplore ActivityKind = "explore"
)

// ActivityPayload carries the data for a progress signal. Only the field
// matching the kind is consulted.
type ActivityPayload struct {
	DurationSeconds int64  `json:"durationSeconds,omitempty"`
	ShapesCount     int    `json:"shapesCount,omitempty"`
	StudyTimeStart  string `json:"studyTimeStart,omitempty"`
}

// DisplayNameFromEmail derives the display name shown on the leaderboard:
// the local part of the email before '@'.
func DisplayNameFromEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
