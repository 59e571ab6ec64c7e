package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"club-survey-engine/internal/domain"
)

// StampStore provides atomic get-or-create of attempt rows keyed by
// (survey, participant). Two concurrent first-opens must observe the same
// stored attempt, never two different clocks.
type StampStore interface {
	GetOrCreate(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error)
}

// ExpiryStamp is the server-side deadline record for one attempt. A nil
// ExpiresAt means the survey has no countdown.
type ExpiryStamp struct {
	StartedAt time.Time
	ExpiresAt *time.Time
}

// SessionClock is the single source of truth for countdown enforcement.
// Client-visible timers are advisory; grading trusts only this clock.
type SessionClock struct {
	stamps StampStore
	now    func() time.Time
}

func NewSessionClock(stamps StampStore) *SessionClock {
	return &SessionClock{stamps: stamps, now: time.Now}
}

// NewSessionClockAt injects a deterministic clock for tests.
func NewSessionClockAt(stamps StampStore, now func() time.Time) *SessionClock {
	return &SessionClock{stamps: stamps, now: now}
}

// Start records now+duration the first time a participant opens a timed
// survey and returns the same attempt on every subsequent open. Reopening a
// tab must not reset the clock.
func (c *SessionClock) Start(ctx context.Context, survey domain.Survey, participantID string) (domain.Attempt, error) {
	now := c.now()
	if !SurveyOpen(survey, now) {
		return domain.Attempt{}, domain.ErrSurveyUnavailable
	}

	fresh := domain.Attempt{
		ID:            uuid.NewString(),
		SurveyID:      survey.ID,
		ParticipantID: participantID,
		Status:        domain.StatusInProgress,
		StartedAt:     now,
	}
	if survey.Timed() {
		expires := now.Add(time.Duration(survey.DurationMinutes) * time.Minute)
		fresh.ExpiresAt = &expires
	}
	return c.stamps.GetOrCreate(ctx, fresh)
}

// Now exposes the clock's time source so callers stay consistent with it.
func (c *SessionClock) Now() time.Time {
	return c.now()
}

// SurveyOpen reports whether the survey accepts interaction at the given
// instant: active and inside its [StartsAt, EndsAt] window.
func SurveyOpen(survey domain.Survey, now time.Time) bool {
	if !survey.Active {
		return false
	}
	if now.Before(survey.StartsAt) {
		return false
	}
	if survey.EndsAt != nil && now.After(*survey.EndsAt) {
		return false
	}
	return true
}

// StampOf extracts the deadline stamp from a stored attempt.
func StampOf(attempt domain.Attempt) ExpiryStamp {
	return ExpiryStamp{StartedAt: attempt.StartedAt, ExpiresAt: attempt.ExpiresAt}
}

// Remaining returns how much countdown is left at now, clamped at zero.
// Untimed stamps always have zero remaining; callers gate on HasExpiry.
func (s ExpiryStamp) Remaining(now time.Time) time.Duration {
	if s.ExpiresAt == nil {
		return 0
	}
	left := s.ExpiresAt.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether the deadline has passed. Untimed stamps never
// expire.
func (s ExpiryStamp) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// HasExpiry reports whether the stamp carries a countdown at all.
func (s ExpiryStamp) HasExpiry() bool {
	return s.ExpiresAt != nil
}
