package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"club-survey-engine/internal/app"
	"club-survey-engine/internal/domain"
)

// RestHandler exposes the engine's three logical operations over JSON.
type RestHandler struct {
	service  *app.SurveyService
	validate *validator.Validate
	log      zerolog.Logger
}

func NewRestHandler(service *app.SurveyService, log zerolog.Logger) *RestHandler {
	return &RestHandler{
		service:  service,
		validate: validator.New(),
		log:      log,
	}
}

// Register mounts the API routes on the mux.
func (h *RestHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/surveys/{id}", h.Fetch)
	mux.HandleFunc("POST /api/surveys/{id}/submit", h.Submit)
	mux.HandleFunc("GET /api/surveys/{id}/statistics", h.Statistics)
}

// Fetch returns the participant view of a survey: questions without answer
// keys and, for timed quizzes, the authoritative remaining seconds.
func (h *RestHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	surveyID := r.PathValue("id")
	participantID := r.URL.Query().Get("participantId")
	if participantID == "" {
		h.writeError(w, domain.NewValidationError("", "participantId is required"))
		return
	}

	view, err := h.service.FetchForParticipation(r.Context(), surveyID, participantID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

type submitRequest struct {
	ParticipantID string         `json:"participantId" validate:"required"`
	Forced        bool           `json:"forced"`
	Answers       []submitAnswer `json:"answers" validate:"dive"`
}

type submitAnswer struct {
	QuestionID string          `json:"questionId" validate:"required"`
	Value      json.RawMessage `json:"value" validate:"required"`
}

type scoreResponse struct {
	Score          int                    `json:"score"`
	MaxScore       int                    `json:"maxScore"`
	CorrectCount   int                    `json:"correctCount"`
	TotalQuestions int                    `json:"totalQuestions"`
	EarnedPoints   []domain.QuestionScore `json:"earnedPoints"`
}

// Submit grades a participant's answers as their single scored attempt.
func (h *RestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	surveyID := r.PathValue("id")

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewValidationError("", "malformed JSON body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, domain.NewValidationError("", err.Error()))
		return
	}

	survey, err := h.service.Survey(r.Context(), surveyID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	answers, err := coerceAnswers(survey, req.Answers)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.service.Submit(r.Context(), surveyID, req.ParticipantID, answers, req.Forced)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, scoreResponse{
		Score:          result.TotalScore,
		MaxScore:       result.MaxPossibleScore,
		CorrectCount:   result.CorrectCount,
		TotalQuestions: result.TotalGradedQuestions,
		EarnedPoints:   result.Questions,
	})
}

// Statistics returns the cross-participant reporting view. Read-only; safe
// to call repeatedly and cache briefly.
func (h *RestHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// coerceAnswers turns raw JSON values into typed answer values using the
// question's declared type. A value of the wrong JSON shape is a validation
// failure, never a silent coercion; the one sanctioned leniency is that a
// number question accepts a string and grades it incorrect if unparseable.
func coerceAnswers(survey domain.Survey, raw []submitAnswer) ([]domain.SubmittedAnswer, error) {
	answers := make([]domain.SubmittedAnswer, 0, len(raw))
	for _, a := range raw {
		q, ok := survey.Question(a.QuestionID)
		if !ok {
			return nil, domain.NewValidationError(a.QuestionID, "unknown question")
		}
		value, err := coerceValue(q, a.Value)
		if err != nil {
			return nil, err
		}
		answers = append(answers, domain.SubmittedAnswer{QuestionID: a.QuestionID, Value: value})
	}
	return answers, nil
}

func coerceValue(q domain.Question, raw json.RawMessage) (domain.AnswerValue, error) {
	switch q.Type {
	case domain.TypeMultipleChoice:
		var idx int
		if err := json.Unmarshal(raw, &idx); err != nil {
			return domain.AnswerValue{}, domain.NewValidationError(q.ID, "expected an option index")
		}
		return domain.ChoiceValue(idx), nil
	case domain.TypeText:
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return domain.AnswerValue{}, domain.NewValidationError(q.ID, "expected a text value")
		}
		return domain.TextValue(text), nil
	case domain.TypeNumber, domain.TypeRating:
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil {
			return domain.NumberValue(n), nil
		}
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			return domain.RawNumberValue(text), nil
		}
		return domain.AnswerValue{}, domain.NewValidationError(q.ID, "expected a numeric value")
	default:
		return domain.AnswerValue{}, domain.NewValidationError(q.ID, "unsupported question type")
	}
}

type errorResponse struct {
	Error      string `json:"error"`
	Kind       string `json:"kind"`
	QuestionID string `json:"questionId,omitempty"`
}

func (h *RestHandler) writeError(w http.ResponseWriter, err error) {
	var (
		vErr *domain.ValidationError
		mErr *domain.MissingRequiredAnswerError
	)
	switch {
	case errors.As(err, &vErr):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: vErr.Error(), Kind: "validation", QuestionID: vErr.QuestionID})
	case errors.As(err, &mErr):
		h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: mErr.Error(), Kind: "missing_required_answer", QuestionID: mErr.QuestionID})
	case errors.Is(err, domain.ErrAlreadySubmitted):
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Kind: "already_submitted"})
	case errors.Is(err, domain.ErrDeadlineExceeded):
		h.writeJSON(w, http.StatusGone, errorResponse{Error: err.Error(), Kind: "deadline_exceeded"})
	case errors.Is(err, domain.ErrSurveyUnavailable):
		h.writeJSON(w, http.StatusGone, errorResponse{Error: err.Error(), Kind: "survey_unavailable"})
	case errors.Is(err, domain.ErrSurveyNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Kind: "not_found"})
	default:
		h.log.Error().Err(err).Msg("request failed")
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", Kind: "internal"})
	}
}

func (h *RestHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error().Err(err).Msg("write response")
	}
}
