package app

import (
	"context"
	"testing"
	"time"

	"club-survey-engine/internal/domain"
	"club-survey-engine/internal/infra/memory"
)

func timedQuiz(duration int) domain.Survey {
	return domain.Survey{
		ID:              "survey-1",
		Kind:            domain.KindQuiz,
		Active:          true,
		StartsAt:        time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC),
		DurationMinutes: duration,
	}
}

func TestStartIsIdempotent(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	calls := 0
	clock := NewSessionClockAt(memory.NewAttemptStore(), func() time.Time {
		calls++
		return now.Add(time.Duration(calls) * time.Second)
	})

	first, err := clock.Start(context.Background(), timedQuiz(10), "p1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if first.ExpiresAt == nil {
		t.Fatalf("expected an expiry stamp for a timed quiz")
	}

	// Reopening must return the same stamp, not reset the countdown.
	second, err := clock.Start(context.Background(), timedQuiz(10), "p1")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if !second.ExpiresAt.Equal(*first.ExpiresAt) || !second.StartedAt.Equal(first.StartedAt) {
		t.Fatalf("expected identical stamp, got %+v vs %+v", second, first)
	}
}

func TestStartAfterEndFails(t *testing.T) {
	survey := timedQuiz(10)
	ends := survey.StartsAt.Add(time.Hour)
	survey.EndsAt = &ends

	clock := NewSessionClockAt(memory.NewAttemptStore(), func() time.Time {
		return ends.Add(time.Minute)
	})
	if _, err := clock.Start(context.Background(), survey, "p1"); err != domain.ErrSurveyUnavailable {
		t.Fatalf("expected ErrSurveyUnavailable, got %v", err)
	}
}

func TestStartInactiveFails(t *testing.T) {
	survey := timedQuiz(10)
	survey.Active = false
	clock := NewSessionClockAt(memory.NewAttemptStore(), func() time.Time {
		return survey.StartsAt.Add(time.Minute)
	})
	if _, err := clock.Start(context.Background(), survey, "p1"); err != domain.ErrSurveyUnavailable {
		t.Fatalf("expected ErrSurveyUnavailable, got %v", err)
	}
}

func TestUntimedSurveyHasNoExpiry(t *testing.T) {
	survey := timedQuiz(0)
	clock := NewSessionClockAt(memory.NewAttemptStore(), func() time.Time {
		return survey.StartsAt.Add(time.Minute)
	})
	attempt, err := clock.Start(context.Background(), survey, "p1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	stamp := StampOf(attempt)
	if stamp.HasExpiry() {
		t.Fatalf("untimed survey must not carry an expiry, got %+v", stamp)
	}
	if stamp.Expired(survey.StartsAt.Add(100 * time.Hour)) {
		t.Fatalf("untimed stamp must never expire")
	}
}

func TestRemainingAndExpired(t *testing.T) {
	started := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	expires := started.Add(10 * time.Minute)
	stamp := ExpiryStamp{StartedAt: started, ExpiresAt: &expires}

	if got := stamp.Remaining(started.Add(4 * time.Minute)); got != 6*time.Minute {
		t.Fatalf("expected 6m remaining, got %v", got)
	}
	if got := stamp.Remaining(expires.Add(time.Minute)); got != 0 {
		t.Fatalf("expected zero remaining past expiry, got %v", got)
	}
	if stamp.Expired(expires) {
		t.Fatalf("stamp must not count as expired exactly at the deadline")
	}
	if !stamp.Expired(expires.Add(time.Second)) {
		t.Fatalf("stamp must be expired after the deadline")
	}
}
