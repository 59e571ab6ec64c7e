package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"club-survey-engine/internal/domain"
)

// SurveyLoader fetches survey definitions from a backing store.
type SurveyLoader interface {
	LoadSurvey(ctx context.Context, surveyID string) (domain.Survey, error)
}

// SurveyRepository caches the full survey definition blob in Redis and falls
// back to a loader on cache miss. The definition is cached whole (not split
// per question) because grading and the participant view both need complete
// question metadata, answer keys included.
type SurveyRepository struct {
	client *redis.Client
	loader SurveyLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewSurveyRepository(client *redis.Client, loader SurveyLoader, ttl time.Duration) *SurveyRepository {
	return &SurveyRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *SurveyRepository) GetSurvey(ctx context.Context, surveyID string) (domain.Survey, error) {
	key := r.surveyKey(surveyID)

	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
		return decodeSurvey(raw)
	}

	result, err, _ := r.sf.Do(surveyID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
			return decodeSurvey(raw)
		}

		survey, err := r.loader.LoadSurvey(ctx, surveyID)
		if err != nil {
			return domain.Survey{}, err
		}

		if raw, err := json.Marshal(survey); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return survey, nil
	})
	if err != nil {
		return domain.Survey{}, err
	}
	return result.(domain.Survey), nil
}

// Invalidate drops the cached definition, e.g. after the portal's admin
// screens edit a survey.
func (r *SurveyRepository) Invalidate(ctx context.Context, surveyID string) error {
	return r.client.Del(ctx, r.surveyKey(surveyID)).Err()
}

func (r *SurveyRepository) surveyKey(surveyID string) string {
	return "survey:" + surveyID + ":definition"
}

func decodeSurvey(raw []byte) (domain.Survey, error) {
	var survey domain.Survey
	if err := json.Unmarshal(raw, &survey); err != nil {
		return domain.Survey{}, fmt.Errorf("decode cached survey: %w", err)
	}
	return survey, nil
}

func (r *SurveyRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
