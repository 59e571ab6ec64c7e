package memory

import (
	"context"
	"sync"

	"club-survey-engine/internal/domain"
)

// ProfileStore is an in-memory app.ProfileRepository, seeded from whatever
// the host's user store synced over. Unknown participants simply come back
// absent; statistics buckets them as "unknown".
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

func NewProfileStore(profiles map[string]domain.Profile) *ProfileStore {
	if profiles == nil {
		profiles = make(map[string]domain.Profile)
	}
	return &ProfileStore{profiles: profiles}
}

func (s *ProfileStore) GetProfiles(_ context.Context, participantIDs []string) (map[string]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.Profile, len(participantIDs))
	for _, id := range participantIDs {
		if p, ok := s.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// Put upserts one profile (tests and demo seeding).
func (s *ProfileStore) Put(profile domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.ParticipantID] = profile
}
