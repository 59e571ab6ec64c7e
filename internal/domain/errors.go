package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSurveyNotFound indicates the survey definition could not be loaded.
	ErrSurveyNotFound = errors.New("survey not found")
	// ErrSurveyUnavailable is returned when a survey is inactive, not yet
	// started, or already ended.
	ErrSurveyUnavailable = errors.New("survey unavailable")
	// ErrAlreadySubmitted signals the participant's single scored attempt
	// already exists; callers should treat it as "nothing to do".
	ErrAlreadySubmitted = errors.New("attempt already submitted")
	// ErrDeadlineExceeded is returned when the server-side clock says the
	// attempt's countdown ran out, regardless of what the client reported.
	ErrDeadlineExceeded = errors.New("attempt deadline exceeded")
	// ErrAttemptNotFound is returned when no attempt exists for the pair.
	ErrAttemptNotFound = errors.New("attempt not found")
)

// ValidationError rejects a malformed submission before any grading runs.
type ValidationError struct {
	QuestionID string
	Reason     string
}

func (e *ValidationError) Error() string {
	if e.QuestionID == "" {
		return "invalid submission: " + e.Reason
	}
	return fmt.Sprintf("invalid submission for question %s: %s", e.QuestionID, e.Reason)
}

// NewValidationError builds a ValidationError scoped to one question.
func NewValidationError(questionID, reason string) *ValidationError {
	return &ValidationError{QuestionID: questionID, Reason: reason}
}

// MissingRequiredAnswerError names the required question a submission left
// unanswered so the client can re-prompt for it.
type MissingRequiredAnswerError struct {
	QuestionID string
}

func (e *MissingRequiredAnswerError) Error() string {
	return "missing required answer for question " + e.QuestionID
}
