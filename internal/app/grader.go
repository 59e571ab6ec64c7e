package app

import (
	"strings"

	"club-survey-engine/internal/domain"
)

// Grade compares one submitted value against the question's answer key and
// returns correctness plus awarded points. It is a pure function: no I/O,
// no clock, no state.
//
// Questions without an answer key (pure poll content, ratings) are never
// correct and never award, whatever their points field says. A missing
// answer grades incorrect with zero points so totals stay comparable across
// participants after a forced submit.
func Grade(q domain.Question, value *domain.AnswerValue) domain.GradedAnswer {
	if value != nil && !value.MatchesType(q.Type) {
		return domain.GradedAnswer{}
	}
	correct := isCorrect(q, value)
	awarded := 0
	if correct {
		awarded = q.Points
	}
	return domain.GradedAnswer{Correct: correct, Awarded: awarded}
}

func isCorrect(q domain.Question, value *domain.AnswerValue) bool {
	if q.Correct == nil || q.Type == domain.TypeRating || value == nil {
		return false
	}
	switch q.Type {
	case domain.TypeMultipleChoice:
		return value.Choice == q.Correct.SelectedOption
	case domain.TypeText:
		return textMatches(q.Correct.Text, value.Text)
	case domain.TypeNumber:
		if !value.Numeric {
			return false
		}
		return q.Correct.Min <= value.Number && value.Number <= q.Correct.Max
	default:
		return false
	}
}

// textMatches compares free-text answers ignoring surrounding whitespace and
// letter case. TrimSpace and EqualFold are Unicode-aware, which matters for
// the right-to-left content this portal serves.
func textMatches(reference, submitted string) bool {
	return strings.EqualFold(strings.TrimSpace(reference), strings.TrimSpace(submitted))
}
