package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"club-survey-engine/internal/domain"
)

// SurveyLoader loads survey definition JSONB from Postgres. The tagged
// correct-answer blobs are validated during decode; a definition whose tag
// disagrees with its shape never reaches the engine.
type SurveyLoader struct {
	pool *pgxpool.Pool
}

func NewSurveyLoader(pool *pgxpool.Pool) *SurveyLoader {
	return &SurveyLoader{pool: pool}
}

func (l *SurveyLoader) LoadSurvey(ctx context.Context, surveyID string) (domain.Survey, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM surveys WHERE id=$1`, surveyID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Survey{}, domain.ErrSurveyNotFound
	}
	if err != nil {
		return domain.Survey{}, fmt.Errorf("load survey: %w", err)
	}
	var survey domain.Survey
	if err := json.Unmarshal(raw, &survey); err != nil {
		return domain.Survey{}, fmt.Errorf("unmarshal survey: %w", err)
	}
	return survey, nil
}
