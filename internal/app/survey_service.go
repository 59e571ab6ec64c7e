package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"club-survey-engine/internal/domain"
)

// SurveyRepository loads survey definitions (from cache/backing store).
type SurveyRepository interface {
	GetSurvey(ctx context.Context, surveyID string) (domain.Survey, error)
}

// AttemptRepository persists attempts and score results. Implementations
// must provide atomic check-then-insert semantics: SaveSubmitted stores the
// attempt transition and the result together, and when a submitted attempt
// already exists for the pair it returns domain.ErrAlreadySubmitted without
// overwriting anything.
type AttemptRepository interface {
	StampStore
	Get(ctx context.Context, surveyID, participantID string) (domain.Attempt, error)
	SaveSubmitted(ctx context.Context, attempt domain.Attempt, result domain.ScoreResult) error
	ExpireOverdue(ctx context.Context, surveyID string, now time.Time) (int, error)
	// Snapshot returns every submitted attempt and its score result in one
	// consistent read; in-flight attempts must never leak into it.
	Snapshot(ctx context.Context, surveyID string) ([]domain.Attempt, []domain.ScoreResult, error)
}

// ProfileRepository reads participant demographics owned by the portal.
type ProfileRepository interface {
	GetProfiles(ctx context.Context, participantIDs []string) (map[string]domain.Profile, error)
}

// SurveyService wires the engine's use cases together: fetch for
// participation, submit, and statistics.
type SurveyService struct {
	surveys  SurveyRepository
	attempts AttemptRepository
	profiles ProfileRepository
	clock    *SessionClock
	feed     *StatsFeed
	log      zerolog.Logger
}

func NewSurveyService(surveys SurveyRepository, attempts AttemptRepository, profiles ProfileRepository, clock *SessionClock, feed *StatsFeed, log zerolog.Logger) *SurveyService {
	return &SurveyService{
		surveys:  surveys,
		attempts: attempts,
		profiles: profiles,
		clock:    clock,
		feed:     feed,
		log:      log,
	}
}

// QuestionView is a question as shown to participants: the answer key never
// leaves the server.
type QuestionView struct {
	ID       string              `json:"id"`
	Text     string              `json:"text"`
	Type     domain.QuestionType `json:"type"`
	Options  []string            `json:"options,omitempty"`
	Points   int                 `json:"points"`
	Required bool                `json:"required"`
}

// ParticipationView is the fetch-for-participation payload.
type ParticipationView struct {
	SurveyID         string            `json:"surveyId"`
	Title            string            `json:"title"`
	Kind             domain.SurveyKind `json:"kind"`
	Questions        []QuestionView    `json:"questions"`
	RemainingSeconds *int64            `json:"remainingSeconds,omitempty"`
}

// FetchForParticipation opens (or reopens) a participant's attempt and
// returns the survey stripped of correct answers plus the authoritative
// remaining time for timed quizzes.
func (s *SurveyService) FetchForParticipation(ctx context.Context, surveyID, participantID string) (ParticipationView, error) {
	survey, err := s.surveys.GetSurvey(ctx, surveyID)
	if err != nil {
		return ParticipationView{}, err
	}

	attempt, err := s.clock.Start(ctx, survey, participantID)
	if err != nil {
		return ParticipationView{}, err
	}

	view := ParticipationView{
		SurveyID: survey.ID,
		Title:    survey.Title,
		Kind:     survey.Kind,
		Questions: lo.Map(survey.Questions, func(q domain.Question, _ int) QuestionView {
			return QuestionView{
				ID:       q.ID,
				Text:     q.Text,
				Type:     q.Type,
				Options:  q.Options,
				Points:   q.Points,
				Required: q.Required,
			}
		}),
	}
	if stamp := StampOf(attempt); stamp.HasExpiry() {
		secs := int64(stamp.Remaining(s.clock.Now()) / time.Second)
		view.RemainingSeconds = &secs
	}
	return view, nil
}

// Submit validates, authorizes, grades, and persists a participant's
// submission as their single scored attempt. The attempt and its score
// result are stored together; a concurrent duplicate observes
// domain.ErrAlreadySubmitted from the store and nothing is overwritten.
func (s *SurveyService) Submit(ctx context.Context, surveyID, participantID string, answers []domain.SubmittedAnswer, forced bool) (domain.ScoreResult, error) {
	survey, err := s.surveys.GetSurvey(ctx, surveyID)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	if err := ValidateAnswers(survey, answers); err != nil {
		return domain.ScoreResult{}, err
	}

	// Get-or-create keeps submit-without-fetch working and pins the stamp.
	attempt, err := s.clock.Start(ctx, survey, participantID)
	if err != nil {
		return domain.ScoreResult{}, err
	}

	now := s.clock.Now()
	alreadySubmitted := attempt.Status == domain.StatusSubmitted
	if err := Authorize(survey, StampOf(attempt), alreadySubmitted, answers, now, forced); err != nil {
		return domain.ScoreResult{}, err
	}

	result := Aggregate(survey, participantID, answers)

	submittedAt := now
	attempt.Status = domain.StatusSubmitted
	attempt.SubmittedAt = &submittedAt
	attempt.Answers = answers
	if err := s.attempts.SaveSubmitted(ctx, attempt, result); err != nil {
		return domain.ScoreResult{}, err
	}

	s.log.Info().
		Str("survey", surveyID).
		Str("participant", participantID).
		Int("score", result.TotalScore).
		Int("max", result.MaxPossibleScore).
		Bool("forced", forced).
		Msg("attempt submitted")

	s.publishStatistics(ctx, surveyID)
	return result, nil
}

// Survey returns the full definition, answer keys included. Server-side
// callers only; participant-facing responses go through ParticipationView.
func (s *SurveyService) Survey(ctx context.Context, surveyID string) (domain.Survey, error) {
	return s.surveys.GetSurvey(ctx, surveyID)
}

// Statistics computes the reporting view from one snapshot of submitted
// attempts. Read-only and safe to call repeatedly.
func (s *SurveyService) Statistics(ctx context.Context, surveyID string) (domain.SurveyStatistics, error) {
	survey, err := s.surveys.GetSurvey(ctx, surveyID)
	if err != nil {
		return domain.SurveyStatistics{}, err
	}

	attempts, results, err := s.attempts.Snapshot(ctx, surveyID)
	if err != nil {
		return domain.SurveyStatistics{}, err
	}

	ids := lo.Uniq(lo.Map(attempts, func(a domain.Attempt, _ int) string { return a.ParticipantID }))
	profiles, err := s.profiles.GetProfiles(ctx, ids)
	if err != nil {
		return domain.SurveyStatistics{}, err
	}

	return ComputeStatistics(survey, results, attempts, profiles, s.clock.Now()), nil
}

// ExpireOverdue marks overdue in-progress attempts expired. Hosts run it
// before a forced-submit sweep so abandoned timed attempts settle.
func (s *SurveyService) ExpireOverdue(ctx context.Context, surveyID string) (int, error) {
	return s.attempts.ExpireOverdue(ctx, surveyID, s.clock.Now())
}

// SubscribeStatistics attaches a live statistics listener for a survey.
func (s *SurveyService) SubscribeStatistics(surveyID string) (<-chan domain.SurveyStatistics, func()) {
	return s.feed.Subscribe(surveyID)
}

func (s *SurveyService) publishStatistics(ctx context.Context, surveyID string) {
	if !s.feed.HasSubscribers(surveyID) {
		return
	}
	stats, err := s.Statistics(ctx, surveyID)
	if err != nil {
		s.log.Warn().Err(err).Str("survey", surveyID).Msg("statistics publish skipped")
		return
	}
	s.feed.Publish(surveyID, stats)
}
