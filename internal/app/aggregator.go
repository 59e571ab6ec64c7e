package app

import (
	"github.com/samber/lo"

	"club-survey-engine/internal/domain"
)

// Aggregate grades every question of the survey against the submitted
// answers and folds the outcomes into a ScoreResult. Questions the
// submission skipped are graded incorrect with zero points rather than
// dropped, so TotalGradedQuestions is identical for every participant.
//
// Aggregate is a pure function; running it twice on the same input yields
// the same result. Running it at most once per attempt is the caller's job,
// enforced through the submission gate and the attempt store.
func Aggregate(survey domain.Survey, participantID string, answers []domain.SubmittedAnswer) domain.ScoreResult {
	submitted := lo.Associate(answers, func(a domain.SubmittedAnswer) (string, domain.AnswerValue) {
		return a.QuestionID, a.Value
	})

	scores := make([]domain.QuestionScore, 0, len(survey.Questions))
	for _, q := range survey.Questions {
		var value *domain.AnswerValue
		if v, ok := submitted[q.ID]; ok {
			value = &v
		}
		graded := Grade(q, value)
		if survey.Kind != domain.KindQuiz {
			// polls record correctness at most; they never pay out
			graded.Awarded = 0
		}
		scores = append(scores, domain.QuestionScore{
			QuestionID:    q.ID,
			Correct:       graded.Correct,
			AwardedPoints: graded.Awarded,
		})
	}

	return domain.ScoreResult{
		SurveyID:             survey.ID,
		ParticipantID:        participantID,
		TotalScore:           lo.SumBy(scores, func(s domain.QuestionScore) int { return s.AwardedPoints }),
		MaxPossibleScore:     survey.MaxPoints(),
		CorrectCount:         lo.CountBy(scores, func(s domain.QuestionScore) bool { return s.Correct }),
		TotalGradedQuestions: len(survey.Questions),
		Questions:            scores,
	}
}
