package app

import (
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"club-survey-engine/internal/domain"
)

// regionBucketCap limits the region breakdown to the largest buckets so the
// reporting view stays bounded however many cities participants come from.
const regionBucketCap = 10

// unknownBucket collects participants whose profile lacks an attribute.
const unknownBucket = "unknown"

// ComputeStatistics reduces one consistent snapshot of submitted attempts,
// their score results, and participant profiles into the reporting view.
// It is a pure in-memory fold: absent data yields zero-filled statistics,
// never an error. Only submitted attempts may appear in the snapshot.
func ComputeStatistics(survey domain.Survey, results []domain.ScoreResult, attempts []domain.Attempt, profiles map[string]domain.Profile, now time.Time) domain.SurveyStatistics {
	participants := lo.UniqBy(attempts, func(a domain.Attempt) string { return a.ParticipantID })
	total := len(participants)

	stats := domain.SurveyStatistics{
		SurveyID:          survey.ID,
		TotalParticipants: total,
		Questions:         make([]domain.QuestionStats, 0, len(survey.Questions)),
		Gender:            map[string]int{},
		Regions:           []domain.RegionBucket{},
		ComputedAt:        now,
	}

	answersByQuestion := make(map[string][]domain.AnswerValue)
	for _, attempt := range attempts {
		for _, answer := range attempt.Answers {
			answersByQuestion[answer.QuestionID] = append(answersByQuestion[answer.QuestionID], answer.Value)
		}
	}
	for _, q := range survey.Questions {
		stats.Questions = append(stats.Questions, questionStats(q, answersByQuestion[q.ID], total))
	}

	stats.Gender = lo.CountValuesBy(participants, func(a domain.Attempt) string {
		return bucketOf(profiles[a.ParticipantID].Gender)
	})
	stats.Regions = regionBuckets(participants, profiles)

	if survey.Kind == domain.KindQuiz && len(results) > 0 {
		threshold := 0.5 * float64(survey.MaxPoints())
		for _, r := range results {
			if float64(r.TotalScore) >= threshold {
				stats.Passed++
			} else {
				stats.Failed++
			}
		}
		sum := lo.SumBy(results, func(r domain.ScoreResult) int { return r.TotalScore })
		stats.AverageScore = round1(float64(sum) / float64(len(results)))
	}

	stats.AverageDurationSeconds = averageDuration(attempts)
	return stats
}

func questionStats(q domain.Question, values []domain.AnswerValue, totalParticipants int) domain.QuestionStats {
	qs := domain.QuestionStats{
		QuestionID:  q.ID,
		Type:        q.Type,
		AnswerCount: len(values),
	}
	if qs.NoAnswerCount = totalParticipants - len(values); qs.NoAnswerCount < 0 {
		qs.NoAnswerCount = 0
	}

	switch q.Type {
	case domain.TypeMultipleChoice:
		qs.Options = optionHistogram(q, values)
	case domain.TypeNumber, domain.TypeRating:
		qs.Average = numericAverage(values)
	}

	if q.Correct != nil && q.Type != domain.TypeRating {
		for _, v := range values {
			value := v
			if Grade(q, &value).Correct {
				qs.CorrectCount++
			}
		}
		if len(values) > 0 {
			qs.CorrectPercent = round1(float64(qs.CorrectCount) / float64(len(values)) * 100)
		}
	}
	return qs
}

// optionHistogram builds one bar per authored option. Submitted indices
// outside the option list still count as answers but land in no bar.
func optionHistogram(q domain.Question, values []domain.AnswerValue) []domain.OptionCount {
	counts := make([]int, len(q.Options))
	for _, v := range values {
		if v.Kind == domain.ValueChoice && v.Choice >= 0 && v.Choice < len(counts) {
			counts[v.Choice]++
		}
	}
	bars := make([]domain.OptionCount, len(q.Options))
	for i, label := range q.Options {
		bar := domain.OptionCount{OptionIndex: i, Label: label, Count: counts[i]}
		if len(values) > 0 {
			bar.Percent = round1(float64(counts[i]) / float64(len(values)) * 100)
		}
		bars[i] = bar
	}
	return bars
}

func numericAverage(values []domain.AnswerValue) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if v.Kind == domain.ValueNumber && v.Numeric {
			sum += v.Number
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return round2(sum / float64(n))
}

func regionBuckets(participants []domain.Attempt, profiles map[string]domain.Profile) []domain.RegionBucket {
	counts := lo.CountValuesBy(participants, func(a domain.Attempt) string {
		return bucketOf(profiles[a.ParticipantID].Region)
	})
	buckets := make([]domain.RegionBucket, 0, len(counts))
	for region, count := range counts {
		buckets = append(buckets, domain.RegionBucket{Region: region, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Region < buckets[j].Region
	})
	if len(buckets) > regionBucketCap {
		buckets = buckets[:regionBucketCap]
	}
	return buckets
}

func averageDuration(attempts []domain.Attempt) float64 {
	sum, n := 0.0, 0
	for _, a := range attempts {
		if a.SubmittedAt == nil {
			continue
		}
		sum += a.SubmittedAt.Sub(a.StartedAt).Seconds()
		n++
	}
	if n == 0 {
		return 0
	}
	return round1(sum / float64(n))
}

func bucketOf(attr string) string {
	if attr == "" {
		return unknownBucket
	}
	return attr
}

// round1 and round2 round half away from zero at fixed precision, the tie
// convention every consumer of these numbers expects.
func round1(x float64) float64 { return roundTo(x, 10) }
func round2(x float64) float64 { return roundTo(x, 100) }

func roundTo(x, pow float64) float64 {
	return math.Trunc(x*pow+math.Copysign(0.5, x)) / pow
}
