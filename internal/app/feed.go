package app

import (
	"sync"

	"club-survey-engine/internal/domain"
)

// StatsFeed fans freshly computed statistics out to subscribers, keyed by
// survey. The websocket transport subscribes here to push a new reporting
// snapshot after each accepted submission.
type StatsFeed struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.SurveyStatistics]struct{}
}

func NewStatsFeed() *StatsFeed {
	return &StatsFeed{subscribers: make(map[string]map[chan domain.SurveyStatistics]struct{})}
}

// Subscribe registers a statistics channel for one survey. The caller must
// invoke the returned cancel function to avoid leaks.
func (f *StatsFeed) Subscribe(surveyID string) (<-chan domain.SurveyStatistics, func()) {
	ch := make(chan domain.SurveyStatistics, 8)

	f.mu.Lock()
	subs, ok := f.subscribers[surveyID]
	if !ok {
		subs = make(map[chan domain.SurveyStatistics]struct{})
		f.subscribers[surveyID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if subs, ok := f.subscribers[surveyID]; ok {
			if _, live := subs[ch]; live {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(f.subscribers, surveyID)
			}
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers stats to every subscriber of the survey. Slow consumers
// lose the stale snapshot instead of blocking the publisher.
func (f *StatsFeed) Publish(surveyID string, stats domain.SurveyStatistics) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[surveyID] {
		select {
		case ch <- stats:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- stats
		}
	}
}

// HasSubscribers reports whether anyone is listening for this survey, so
// publishers can skip a statistics recompute nobody would see.
func (f *StatsFeed) HasSubscribers(surveyID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers[surveyID]) > 0
}
