package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"club-survey-engine/internal/domain"
)

// AttemptStore persists attempts and score results. Attempt uniqueness per
// (survey, participant) is a table constraint; the single-submitted rule is
// enforced by a conditional transition plus the score_results primary key,
// so a concurrent duplicate fails in the database, not in process memory.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

// GetOrCreate inserts the fresh attempt unless a row for the pair already
// exists, then returns whichever row won. ON CONFLICT DO NOTHING makes the
// first-open race safe across instances.
func (s *AttemptStore) GetOrCreate(ctx context.Context, fresh domain.Attempt) (domain.Attempt, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO attempts (id, survey_id, participant_id, status, started_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (survey_id, participant_id) DO NOTHING`,
		fresh.ID, fresh.SurveyID, fresh.ParticipantID, string(fresh.Status), fresh.StartedAt, fresh.ExpiresAt)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return s.Get(ctx, fresh.SurveyID, fresh.ParticipantID)
}

func (s *AttemptStore) Get(ctx context.Context, surveyID, participantID string) (domain.Attempt, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, survey_id, participant_id, status, started_at, expires_at, submitted_at, answers
		FROM attempts
		WHERE survey_id=$1 AND participant_id=$2`,
		surveyID, participantID)

	attempt, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	return attempt, nil
}

// SaveSubmitted stores the submitted transition and the score result in one
// transaction. The conditional UPDATE refuses to touch an already-submitted
// row and the score_results primary key backs it up; either rejection maps
// to domain.ErrAlreadySubmitted with nothing committed.
func (s *AttemptStore) SaveSubmitted(ctx context.Context, attempt domain.Attempt, result domain.ScoreResult) error {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	questions, err := json.Marshal(result.Questions)
	if err != nil {
		return fmt.Errorf("encode question scores: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin submit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO attempts (id, survey_id, participant_id, status, started_at, expires_at, submitted_at, answers)
		VALUES ($1, $2, $3, 'submitted', $4, $5, $6, $7)
		ON CONFLICT (survey_id, participant_id) DO UPDATE
		SET status='submitted', submitted_at=EXCLUDED.submitted_at, answers=EXCLUDED.answers
		WHERE attempts.status <> 'submitted'`,
		attempt.ID, attempt.SurveyID, attempt.ParticipantID, attempt.StartedAt, attempt.ExpiresAt, attempt.SubmittedAt, answers)
	if err != nil {
		return fmt.Errorf("submit attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadySubmitted
	}

	tag, err = tx.Exec(ctx, `
		INSERT INTO score_results (survey_id, participant_id, total_score, max_possible_score, correct_count, total_graded_questions, questions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (survey_id, participant_id) DO NOTHING`,
		result.SurveyID, result.ParticipantID, result.TotalScore, result.MaxPossibleScore, result.CorrectCount, result.TotalGradedQuestions, questions)
	if err != nil {
		return fmt.Errorf("insert score result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadySubmitted
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit submit tx: %w", err)
	}
	return nil
}

func (s *AttemptStore) ExpireOverdue(ctx context.Context, surveyID string, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE attempts SET status='expired'
		WHERE survey_id=$1 AND status='in_progress' AND expires_at IS NOT NULL AND expires_at < $2`,
		surveyID, now)
	if err != nil {
		return 0, fmt.Errorf("expire attempts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Snapshot reads submitted attempts joined with their score results in one
// query, so statistics never observe a half-written submission.
func (s *AttemptStore) Snapshot(ctx context.Context, surveyID string) ([]domain.Attempt, []domain.ScoreResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.survey_id, a.participant_id, a.status, a.started_at, a.expires_at, a.submitted_at, a.answers,
		       r.total_score, r.max_possible_score, r.correct_count, r.total_graded_questions, r.questions
		FROM attempts a
		JOIN score_results r ON r.survey_id = a.survey_id AND r.participant_id = a.participant_id
		WHERE a.survey_id=$1 AND a.status='submitted'
		ORDER BY a.submitted_at`,
		surveyID)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot query: %w", err)
	}
	defer rows.Close()

	var attempts []domain.Attempt
	var results []domain.ScoreResult
	for rows.Next() {
		var (
			attempt   domain.Attempt
			status    string
			rawAns    []byte
			result    domain.ScoreResult
			rawScores []byte
		)
		if err := rows.Scan(
			&attempt.ID, &attempt.SurveyID, &attempt.ParticipantID, &status,
			&attempt.StartedAt, &attempt.ExpiresAt, &attempt.SubmittedAt, &rawAns,
			&result.TotalScore, &result.MaxPossibleScore, &result.CorrectCount,
			&result.TotalGradedQuestions, &rawScores,
		); err != nil {
			return nil, nil, fmt.Errorf("snapshot scan: %w", err)
		}
		attempt.Status = domain.AttemptStatus(status)
		if len(rawAns) > 0 {
			if err := json.Unmarshal(rawAns, &attempt.Answers); err != nil {
				return nil, nil, fmt.Errorf("decode answers: %w", err)
			}
		}
		result.SurveyID = attempt.SurveyID
		result.ParticipantID = attempt.ParticipantID
		if err := json.Unmarshal(rawScores, &result.Questions); err != nil {
			return nil, nil, fmt.Errorf("decode question scores: %w", err)
		}
		attempts = append(attempts, attempt)
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("snapshot rows: %w", err)
	}
	return attempts, results, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAttempt(row rowScanner) (domain.Attempt, error) {
	var (
		attempt domain.Attempt
		status  string
		rawAns  []byte
	)
	if err := row.Scan(
		&attempt.ID, &attempt.SurveyID, &attempt.ParticipantID, &status,
		&attempt.StartedAt, &attempt.ExpiresAt, &attempt.SubmittedAt, &rawAns,
	); err != nil {
		return domain.Attempt{}, err
	}
	attempt.Status = domain.AttemptStatus(status)
	if len(rawAns) > 0 {
		if err := json.Unmarshal(rawAns, &attempt.Answers); err != nil {
			return domain.Attempt{}, err
		}
	}
	return attempt, nil
}
