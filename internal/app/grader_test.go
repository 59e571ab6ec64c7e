package app

import (
	"testing"

	"club-survey-engine/internal/domain"
)

func TestGradeMultipleChoice(t *testing.T) {
	q := domain.Question{
		ID:      "q1",
		Type:    domain.TypeMultipleChoice,
		Options: []string{"Tehran", "Shiraz", "Tabriz"},
		Points:  10,
		Correct: &domain.CorrectAnswer{Kind: domain.CorrectChoice, SelectedOption: 0},
	}

	right := domain.ChoiceValue(0)
	if g := Grade(q, &right); !g.Correct || g.Awarded != 10 {
		t.Fatalf("expected correct with 10 points, got %+v", g)
	}

	wrong := domain.ChoiceValue(1)
	if g := Grade(q, &wrong); g.Correct || g.Awarded != 0 {
		t.Fatalf("expected incorrect with 0 points, got %+v", g)
	}
}

func TestGradePollNeverAwards(t *testing.T) {
	q := domain.Question{
		ID:      "q1",
		Type:    domain.TypeMultipleChoice,
		Options: []string{"a", "b"},
		Points:  10, // points without an answer key must never pay out
	}
	v := domain.ChoiceValue(0)
	if g := Grade(q, &v); g.Correct || g.Awarded != 0 {
		t.Fatalf("poll question must not award, got %+v", g)
	}
}

func TestGradeTextTrimAndCase(t *testing.T) {
	persian := domain.Question{
		ID:      "q1",
		Type:    domain.TypeText,
		Points:  5,
		Correct: &domain.CorrectAnswer{Kind: domain.CorrectText, Text: "تهران"},
	}
	padded := domain.TextValue(" تهران ")
	if g := Grade(persian, &padded); !g.Correct || g.Awarded != 5 {
		t.Fatalf("expected trimmed match to grade correct, got %+v", g)
	}

	latin := domain.Question{
		ID:      "q2",
		Type:    domain.TypeText,
		Points:  5,
		Correct: &domain.CorrectAnswer{Kind: domain.CorrectText, Text: "Tehran"},
	}
	lower := domain.TextValue("tehran")
	if g := Grade(latin, &lower); !g.Correct {
		t.Fatalf("expected case-insensitive match, got %+v", g)
	}

	other := domain.TextValue("Shiraz")
	if g := Grade(latin, &other); g.Correct {
		t.Fatalf("expected mismatch to grade incorrect, got %+v", g)
	}
}

func TestGradeNumberRange(t *testing.T) {
	q := domain.Question{
		ID:      "q1",
		Type:    domain.TypeNumber,
		Points:  3,
		Correct: &domain.CorrectAnswer{Kind: domain.CorrectNumber, Min: 10, Max: 20},
	}

	for _, tc := range []struct {
		value   float64
		correct bool
	}{
		{10, true},
		{20, true},
		{15, true},
		{21, false},
		{9, false},
	} {
		v := domain.NumberValue(tc.value)
		if g := Grade(q, &v); g.Correct != tc.correct {
			t.Fatalf("value %v: expected correct=%v, got %+v", tc.value, tc.correct, g)
		}
	}

	// Non-numeric submissions grade incorrect, they do not error.
	garbage := domain.RawNumberValue("abc")
	if g := Grade(q, &garbage); g.Correct || g.Awarded != 0 {
		t.Fatalf("expected non-numeric to grade incorrect, got %+v", g)
	}
}

func TestGradeRatingNeverCorrect(t *testing.T) {
	q := domain.Question{ID: "q1", Type: domain.TypeRating, Points: 5}
	v := domain.NumberValue(4)
	if g := Grade(q, &v); g.Correct || g.Awarded != 0 {
		t.Fatalf("rating must never score, got %+v", g)
	}
}

func TestGradeMissingAnswer(t *testing.T) {
	q := domain.Question{
		ID:      "q1",
		Type:    domain.TypeMultipleChoice,
		Options: []string{"a", "b"},
		Points:  10,
		Correct: &domain.CorrectAnswer{Kind: domain.CorrectChoice, SelectedOption: 1},
	}
	if g := Grade(q, nil); g.Correct || g.Awarded != 0 {
		t.Fatalf("missing answer must grade incorrect, got %+v", g)
	}
}

func TestGradeZeroPointQuestionStillGraded(t *testing.T) {
	q := domain.Question{
		ID:      "q1",
		Type:    domain.TypeText,
		Points:  0,
		Correct: &domain.CorrectAnswer{Kind: domain.CorrectText, Text: "yes"},
	}
	v := domain.TextValue("yes")
	g := Grade(q, &v)
	if !g.Correct {
		t.Fatalf("zero-point question should still record correctness, got %+v", g)
	}
	if g.Awarded != 0 {
		t.Fatalf("zero-point question must award nothing, got %+v", g)
	}
}

func TestGradeWrongShapeIncorrect(t *testing.T) {
	q := domain.Question{
		ID:      "q1",
		Type:    domain.TypeNumber,
		Points:  3,
		Correct: &domain.CorrectAnswer{Kind: domain.CorrectNumber, Min: 1, Max: 2},
	}
	v := domain.TextValue("1.5")
	if g := Grade(q, &v); g.Correct {
		t.Fatalf("shape mismatch must not grade correct, got %+v", g)
	}
}
