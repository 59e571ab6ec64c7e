package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"club-survey-engine/internal/domain"
)

// StampStore keeps attempt expiry stamps in Redis so concurrent first-opens
// across instances resolve to a single clock. SET NX is the atomic
// get-or-insert: exactly one writer wins, everyone reads the winner's stamp.
//
// The stamp TTL should comfortably exceed the longest survey countdown; the
// durable attempt row is written at submit time by the attempt repository,
// so an evicted stamp only ever restarts an abandoned attempt's clock.
type StampStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStampStore(client *redis.Client, ttl time.Duration) *StampStore {
	return &StampStore{client: client, ttl: ttl}
}

func (s *StampStore) GetOrCreate(ctx context.Context, fresh domain.Attempt) (domain.Attempt, error) {
	key := s.stampKey(fresh.SurveyID, fresh.ParticipantID)

	raw, err := json.Marshal(fresh)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("encode attempt stamp: %w", err)
	}

	created, err := s.client.SetNX(ctx, key, raw, s.ttl).Result()
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("stamp setnx: %w", err)
	}
	if created {
		return fresh, nil
	}

	stored, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("stamp get: %w", err)
	}
	var attempt domain.Attempt
	if err := json.Unmarshal(stored, &attempt); err != nil {
		return domain.Attempt{}, fmt.Errorf("decode attempt stamp: %w", err)
	}
	return attempt, nil
}

func (s *StampStore) stampKey(surveyID, participantID string) string {
	return "survey:" + surveyID + ":stamp:" + participantID
}
