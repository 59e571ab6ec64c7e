package memory

import (
	"context"
	"sync"
	"time"

	"club-survey-engine/internal/domain"
)

// AttemptStore is an in-memory app.AttemptRepository. One mutex covers both
// maps so get-or-create and the submitted-uniqueness check stay atomic, the
// same guarantee the postgres store gets from its unique index.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[attemptKey]domain.Attempt
	results  map[attemptKey]domain.ScoreResult
}

type attemptKey struct {
	surveyID      string
	participantID string
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[attemptKey]domain.Attempt),
		results:  make(map[attemptKey]domain.ScoreResult),
	}
}

// GetOrCreate returns the stored attempt for the pair, inserting the fresh
// one only when none exists. Concurrent first-opens observe one stamp.
func (s *AttemptStore) GetOrCreate(_ context.Context, fresh domain.Attempt) (domain.Attempt, error) {
	key := attemptKey{surveyID: fresh.SurveyID, participantID: fresh.ParticipantID}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.attempts[key]; ok {
		return existing, nil
	}
	s.attempts[key] = fresh
	return fresh, nil
}

func (s *AttemptStore) Get(_ context.Context, surveyID, participantID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptKey{surveyID: surveyID, participantID: participantID}]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

// SaveSubmitted finalizes the attempt and stores its score result together.
// The loser of a concurrent submit race observes ErrAlreadySubmitted and
// overwrites nothing.
func (s *AttemptStore) SaveSubmitted(_ context.Context, attempt domain.Attempt, result domain.ScoreResult) error {
	key := attemptKey{surveyID: attempt.SurveyID, participantID: attempt.ParticipantID}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.attempts[key]; ok && existing.Status == domain.StatusSubmitted {
		return domain.ErrAlreadySubmitted
	}
	s.attempts[key] = attempt
	s.results[key] = result
	return nil
}

// ExpireOverdue transitions overdue in-progress attempts to expired and
// reports how many it touched.
func (s *AttemptStore) ExpireOverdue(_ context.Context, surveyID string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expired := 0
	for key, attempt := range s.attempts {
		if key.surveyID != surveyID || attempt.Status != domain.StatusInProgress {
			continue
		}
		if attempt.ExpiresAt != nil && now.After(*attempt.ExpiresAt) {
			attempt.Status = domain.StatusExpired
			s.attempts[key] = attempt
			expired++
		}
	}
	return expired, nil
}

// Snapshot returns submitted attempts and their results under one lock
// acquisition, so a concurrent submit can never half-appear in it.
func (s *AttemptStore) Snapshot(_ context.Context, surveyID string) ([]domain.Attempt, []domain.ScoreResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var attempts []domain.Attempt
	var results []domain.ScoreResult
	for key, attempt := range s.attempts {
		if key.surveyID != surveyID || attempt.Status != domain.StatusSubmitted {
			continue
		}
		attempts = append(attempts, attempt)
		if result, ok := s.results[key]; ok {
			results = append(results, result)
		}
	}
	return attempts, results, nil
}
