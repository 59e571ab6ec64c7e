package domain

import "time"

// SurveyKind distinguishes graded quizzes from ungraded polls.
type SurveyKind string

const (
	KindQuiz SurveyKind = "quiz"
	KindPoll SurveyKind = "poll"
)

// QuestionType enumerates the four answer shapes the engine grades.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeText           QuestionType = "text"
	TypeNumber         QuestionType = "number"
	TypeRating         QuestionType = "rating"
)

// Question models a single survey question. Options is populated only for
// multiple_choice; Correct is nil for rating and for pure poll questions.
type Question struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Type     QuestionType   `json:"type"`
	Options  []string       `json:"options,omitempty"`
	Points   int            `json:"points"`
	Required bool           `json:"required"`
	Correct  *CorrectAnswer `json:"correctAnswer,omitempty"`
}

// Survey is an ordered questionnaire with an availability window.
// DurationMinutes of zero means the survey has no per-participant countdown.
type Survey struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Kind            SurveyKind `json:"kind"`
	Active          bool       `json:"active"`
	StartsAt        time.Time  `json:"startsAt"`
	EndsAt          *time.Time `json:"endsAt,omitempty"`
	DurationMinutes int        `json:"durationMinutes,omitempty"`
	MaxAttempts     int        `json:"maxAttempts,omitempty"`
	Questions       []Question `json:"questions"`
}

// Timed reports whether participants race a per-attempt countdown.
func (s Survey) Timed() bool {
	return s.Kind == KindQuiz && s.DurationMinutes > 0
}

// Question returns the question with the given ID.
func (s Survey) Question(id string) (Question, bool) {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return s.Questions[i], true
		}
	}
	return Question{}, false
}

// MaxPoints sums the points of every scoreable question. Poll surveys and
// questions without a correct answer never award, so they contribute nothing.
func (s Survey) MaxPoints() int {
	if s.Kind != KindQuiz {
		return 0
	}
	total := 0
	for _, q := range s.Questions {
		if q.Correct != nil && q.Type != TypeRating {
			total += q.Points
		}
	}
	return total
}

// AttemptStatus tracks an attempt through its lifecycle.
type AttemptStatus string

const (
	StatusInProgress AttemptStatus = "in_progress"
	StatusSubmitted  AttemptStatus = "submitted"
	StatusExpired    AttemptStatus = "expired"
)

// SubmittedAnswer pairs a question with the raw value a participant sent.
type SubmittedAnswer struct {
	QuestionID string      `json:"questionId"`
	Value      AnswerValue `json:"value"`
}

// Attempt is one participant's interaction with a survey. Immutable once
// its status reaches submitted.
type Attempt struct {
	ID            string            `json:"id"`
	SurveyID      string            `json:"surveyId"`
	ParticipantID string            `json:"participantId"`
	Status        AttemptStatus     `json:"status"`
	StartedAt     time.Time         `json:"startedAt"`
	ExpiresAt     *time.Time        `json:"expiresAt,omitempty"`
	SubmittedAt   *time.Time        `json:"submittedAt,omitempty"`
	Answers       []SubmittedAnswer `json:"answers,omitempty"`
}

// GradedAnswer is the outcome of grading one submitted value.
type GradedAnswer struct {
	Correct bool `json:"correct"`
	Awarded int  `json:"awarded"`
}

// QuestionScore records the graded outcome per question inside a ScoreResult.
type QuestionScore struct {
	QuestionID    string `json:"questionId"`
	Correct       bool   `json:"correct"`
	AwardedPoints int    `json:"awardedPoints"`
}

// ScoreResult is the single authoritative grading outcome for one
// participant on one survey.
type ScoreResult struct {
	SurveyID             string          `json:"surveyId"`
	ParticipantID        string          `json:"participantId"`
	TotalScore           int             `json:"totalScore"`
	MaxPossibleScore     int             `json:"maxPossibleScore"`
	CorrectCount         int             `json:"correctCount"`
	TotalGradedQuestions int             `json:"totalGradedQuestions"`
	Questions            []QuestionScore `json:"questions"`
}

// Profile carries the demographic attributes the statistics view buckets by.
// Profiles are owned by the portal's user store; the engine only reads them.
type Profile struct {
	ParticipantID string `json:"participantId"`
	Gender        string `json:"gender"`
	Region        string `json:"region"`
}

// OptionCount is one histogram bar of a multiple-choice breakdown.
type OptionCount struct {
	OptionIndex int     `json:"optionIndex"`
	Label       string  `json:"label"`
	Count       int     `json:"count"`
	Percent     float64 `json:"percent"`
}

// QuestionStats aggregates every answer to a single question.
type QuestionStats struct {
	QuestionID     string        `json:"questionId"`
	Type           QuestionType  `json:"type"`
	AnswerCount    int           `json:"answerCount"`
	NoAnswerCount  int           `json:"noAnswerCount"`
	Options        []OptionCount `json:"options,omitempty"`
	Average        float64       `json:"average,omitempty"`
	CorrectCount   int           `json:"correctCount,omitempty"`
	CorrectPercent float64       `json:"correctPercent,omitempty"`
}

// RegionBucket is one demographic count, largest regions first.
type RegionBucket struct {
	Region string `json:"region"`
	Count  int    `json:"count"`
}

// SurveyStatistics is the cross-participant reporting view. It is derived
// data, recomputed from submitted attempts on demand and never mutated.
type SurveyStatistics struct {
	SurveyID               string          `json:"surveyId"`
	TotalParticipants      int             `json:"totalParticipants"`
	Questions              []QuestionStats `json:"questions"`
	Gender                 map[string]int  `json:"gender"`
	Regions                []RegionBucket  `json:"regions"`
	Passed                 int             `json:"passed"`
	Failed                 int             `json:"failed"`
	AverageScore           float64         `json:"averageScore"`
	AverageDurationSeconds float64         `json:"averageDurationSeconds"`
	ComputedAt             time.Time       `json:"computedAt"`
}
