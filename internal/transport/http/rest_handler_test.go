package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"club-survey-engine/internal/app"
	"club-survey-engine/internal/domain"
	"club-survey-engine/internal/infra/memory"
)

type testEnv struct {
	server *httptest.Server
	now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{now: time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)}

	attempts := memory.NewAttemptStore()
	repo := memory.NewSurveyRepository(memory.NewStaticSurveyLoader(map[string]domain.Survey{
		"survey-1": surveyFixture(),
		"closed-1": closedSurveyFixture(),
	}), 5*time.Minute)
	profiles := memory.NewProfileStore(map[string]domain.Profile{
		"p1": {ParticipantID: "p1", Gender: "female", Region: "Tehran"},
	})
	clock := app.NewSessionClockAt(attempts, func() time.Time { return env.now })
	service := app.NewSurveyService(repo, attempts, profiles, clock, app.NewStatsFeed(), zerolog.Nop())

	mux := http.NewServeMux()
	NewRestHandler(service, zerolog.Nop()).Register(mux)
	env.server = httptest.NewServer(mux)
	t.Cleanup(env.server.Close)
	return env
}

func surveyFixture() domain.Survey {
	return domain.Survey{
		ID:              "survey-1",
		Title:           "Club quiz",
		Kind:            domain.KindQuiz,
		Active:          true,
		StartsAt:        time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC),
		DurationMinutes: 10,
		MaxAttempts:     1,
		Questions: []domain.Question{
			{ID: "q1", Text: "Capital of Iran?", Type: domain.TypeMultipleChoice, Options: []string{"Tehran", "Shiraz", "Tabriz"}, Points: 10, Required: true,
				Correct: &domain.CorrectAnswer{Kind: domain.CorrectChoice, SelectedOption: 0}},
			{ID: "q2", Type: domain.TypeNumber, Points: 10,
				Correct: &domain.CorrectAnswer{Kind: domain.CorrectNumber, Min: 10, Max: 20}},
		},
	}
}

func closedSurveyFixture() domain.Survey {
	ends := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return domain.Survey{
		ID:       "closed-1",
		Title:    "Expired poll",
		Kind:     domain.KindPoll,
		Active:   true,
		StartsAt: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC),
		EndsAt:   &ends,
		Questions: []domain.Question{
			{ID: "q1", Type: domain.TypeRating, Points: 0},
		},
	}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, body
}

func (e *testEnv) post(t *testing.T, path string, payload any) (*http.Response, []byte) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, body
}

func TestFetchReturnsParticipantView(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/api/surveys/survey-1?participantId=p1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var view struct {
		SurveyID         string `json:"surveyId"`
		Questions        []map[string]any
		RemainingSeconds *int64 `json:"remainingSeconds"`
	}
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.SurveyID != "survey-1" || len(view.Questions) != 2 {
		t.Fatalf("unexpected view: %s", body)
	}
	if view.RemainingSeconds == nil || *view.RemainingSeconds != 600 {
		t.Fatalf("expected 600 remaining seconds, got %v", view.RemainingSeconds)
	}
	if strings.Contains(strings.ToLower(string(body)), "correct") {
		t.Fatalf("answer key leaked in participant view: %s", body)
	}
}

func TestFetchRequiresParticipantID(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/api/surveys/survey-1")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.StatusCode, body)
	}
}

func TestFetchUnknownSurvey(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/api/surveys/nope?participantId=p1")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", resp.StatusCode, body)
	}
}

func TestSubmitScoresOnceThenConflicts(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]any{
		"participantId": "p1",
		"answers": []map[string]any{
			{"questionId": "q1", "value": 0},
			{"questionId": "q2", "value": 15},
		},
	}

	resp, body := env.post(t, "/api/surveys/survey-1/submit", payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var score struct {
		Score          int `json:"score"`
		MaxScore       int `json:"maxScore"`
		CorrectCount   int `json:"correctCount"`
		TotalQuestions int `json:"totalQuestions"`
	}
	if err := json.Unmarshal(body, &score); err != nil {
		t.Fatalf("decode score: %v", err)
	}
	if score.Score != 20 || score.MaxScore != 20 || score.CorrectCount != 2 || score.TotalQuestions != 2 {
		t.Fatalf("unexpected score %+v", score)
	}

	resp, body = env.post(t, "/api/surveys/survey-1/submit", payload)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on resubmit, got %d: %s", resp.StatusCode, body)
	}
	if kind := errorKind(t, body); kind != "already_submitted" {
		t.Fatalf("expected already_submitted, got %q", kind)
	}
}

func TestSubmitMissingRequiredAnswer(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]any{
		"participantId": "p1",
		"answers": []map[string]any{
			{"questionId": "q2", "value": 15},
		},
	}
	resp, body := env.post(t, "/api/surveys/survey-1/submit", payload)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", resp.StatusCode, body)
	}
	var e struct {
		Kind       string `json:"kind"`
		QuestionID string `json:"questionId"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if e.Kind != "missing_required_answer" || e.QuestionID != "q1" {
		t.Fatalf("unexpected error body %+v", e)
	}
}

func TestSubmitRejectsWrongValueShape(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]any{
		"participantId": "p1",
		"answers": []map[string]any{
			{"questionId": "q1", "value": "Tehran"},
		},
	}
	resp, body := env.post(t, "/api/surveys/survey-1/submit", payload)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.StatusCode, body)
	}
	if kind := errorKind(t, body); kind != "validation" {
		t.Fatalf("expected validation, got %q", kind)
	}
}

func TestSubmitNumberQuestionAcceptsStringValue(t *testing.T) {
	env := newTestEnv(t)

	// A non-numeric string for a number question grades incorrect rather
	// than failing validation.
	payload := map[string]any{
		"participantId": "p1",
		"answers": []map[string]any{
			{"questionId": "q1", "value": 0},
			{"questionId": "q2", "value": "abc"},
		},
	}
	resp, body := env.post(t, "/api/surveys/survey-1/submit", payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var score struct {
		Score int `json:"score"`
	}
	if err := json.Unmarshal(body, &score); err != nil {
		t.Fatalf("decode score: %v", err)
	}
	if score.Score != 10 {
		t.Fatalf("expected 10 points, got %d", score.Score)
	}
}

func TestSubmitAfterDeadline(t *testing.T) {
	env := newTestEnv(t)

	// Open the survey to start the countdown, then submit after it lapsed.
	if resp, body := env.get(t, "/api/surveys/survey-1?participantId=p1"); resp.StatusCode != http.StatusOK {
		t.Fatalf("fetch failed: %d %s", resp.StatusCode, body)
	}
	env.now = env.now.Add(11 * time.Minute)

	payload := map[string]any{
		"participantId": "p1",
		"answers": []map[string]any{
			{"questionId": "q1", "value": 0},
		},
	}
	resp, body := env.post(t, "/api/surveys/survey-1/submit", payload)
	if resp.StatusCode != http.StatusGone {
		t.Fatalf("expected 410, got %d: %s", resp.StatusCode, body)
	}
	if kind := errorKind(t, body); kind != "deadline_exceeded" {
		t.Fatalf("expected deadline_exceeded, got %q", kind)
	}
}

func TestSubmitClosedSurvey(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]any{
		"participantId": "p1",
		"answers":       []map[string]any{{"questionId": "q1", "value": 4}},
	}
	resp, body := env.post(t, "/api/surveys/closed-1/submit", payload)
	if resp.StatusCode != http.StatusGone {
		t.Fatalf("expected 410, got %d: %s", resp.StatusCode, body)
	}
	if kind := errorKind(t, body); kind != "survey_unavailable" {
		t.Fatalf("expected survey_unavailable, got %q", kind)
	}
}

func TestStatisticsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]any{
		"participantId": "p1",
		"answers": []map[string]any{
			{"questionId": "q1", "value": 0},
			{"questionId": "q2", "value": 15},
		},
	}
	if resp, body := env.post(t, "/api/surveys/survey-1/submit", payload); resp.StatusCode != http.StatusOK {
		t.Fatalf("submit failed: %d %s", resp.StatusCode, body)
	}

	resp, body := env.get(t, "/api/surveys/survey-1/statistics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var stats domain.SurveyStatistics
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("decode statistics: %v", err)
	}
	if stats.TotalParticipants != 1 || stats.Passed != 1 {
		t.Fatalf("unexpected statistics %+v", stats)
	}
}

func errorKind(t *testing.T, body []byte) string {
	t.Helper()
	var e struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e.Kind
}
