package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"club-survey-engine/internal/domain"
)

// ProfileStore reads the demographic attributes the portal's sync job keeps
// in the profiles table. The engine never writes here.
type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

func (s *ProfileStore) GetProfiles(ctx context.Context, participantIDs []string) (map[string]domain.Profile, error) {
	out := make(map[string]domain.Profile, len(participantIDs))
	if len(participantIDs) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT participant_id, gender, region
		FROM profiles
		WHERE participant_id = ANY($1)`,
		participantIDs)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.ParticipantID, &p.Gender, &p.Region); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out[p.ParticipantID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profile rows: %w", err)
	}
	return out, nil
}
