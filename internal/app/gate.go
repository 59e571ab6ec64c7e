package app

import (
	"time"

	"club-survey-engine/internal/domain"
)

// Authorize runs the submission eligibility checks in order: survey
// availability, attempt uniqueness, deadline, required answers. It is a pure
// predicate; the caller persists the attempt transition after it passes.
//
// A forced submit is the explicit auto-submit-at-expiry path: it skips the
// deadline and required-answer checks but still honors availability and the
// single-attempt rule. Late regular submissions are rejected with
// ErrDeadlineExceeded, never silently truncated or graded as zero.
func Authorize(survey domain.Survey, stamp ExpiryStamp, alreadySubmitted bool, answers []domain.SubmittedAnswer, now time.Time, forced bool) error {
	if !SurveyOpen(survey, now) {
		return domain.ErrSurveyUnavailable
	}
	if alreadySubmitted {
		return domain.ErrAlreadySubmitted
	}
	if forced {
		return nil
	}
	if stamp.Expired(now) {
		return domain.ErrDeadlineExceeded
	}
	answered := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		answered[a.QuestionID] = struct{}{}
	}
	for _, q := range survey.Questions {
		if !q.Required {
			continue
		}
		if _, ok := answered[q.ID]; !ok {
			return &domain.MissingRequiredAnswerError{QuestionID: q.ID}
		}
	}
	return nil
}

// ValidateAnswers shape-checks a submission against the survey definition
// before any grading: unknown questions, duplicate answers, and values whose
// JSON shape disagrees with the question type are all validation failures,
// never silent coercions.
func ValidateAnswers(survey domain.Survey, answers []domain.SubmittedAnswer) error {
	seen := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		q, ok := survey.Question(a.QuestionID)
		if !ok {
			return domain.NewValidationError(a.QuestionID, "unknown question")
		}
		if _, dup := seen[a.QuestionID]; dup {
			return domain.NewValidationError(a.QuestionID, "duplicate answer")
		}
		seen[a.QuestionID] = struct{}{}
		if !a.Value.MatchesType(q.Type) {
			return domain.NewValidationError(a.QuestionID, "value does not match question type "+string(q.Type))
		}
	}
	return nil
}
