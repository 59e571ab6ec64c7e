package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// CorrectAnswerKind tags the variants of the author-defined answer key.
type CorrectAnswerKind string

const (
	CorrectChoice CorrectAnswerKind = "choice"
	CorrectText   CorrectAnswerKind = "text"
	CorrectNumber CorrectAnswerKind = "number"
)

// CorrectAnswer is a closed tagged union: exactly the fields of its kind are
// meaningful. The tag is validated when the blob is decoded so grading never
// has to type-sniff.
type CorrectAnswer struct {
	Kind           CorrectAnswerKind
	SelectedOption int
	Text           string
	Min            float64
	Max            float64
}

type correctAnswerJSON struct {
	Kind           CorrectAnswerKind `json:"kind"`
	SelectedOption *int              `json:"selectedOption,omitempty"`
	Text           *string           `json:"text,omitempty"`
	Min            *float64          `json:"min,omitempty"`
	Max            *float64          `json:"max,omitempty"`
}

// MarshalJSON emits only the fields belonging to the tagged variant.
func (c CorrectAnswer) MarshalJSON() ([]byte, error) {
	out := correctAnswerJSON{Kind: c.Kind}
	switch c.Kind {
	case CorrectChoice:
		v := c.SelectedOption
		out.SelectedOption = &v
	case CorrectText:
		v := c.Text
		out.Text = &v
	case CorrectNumber:
		mn, mx := c.Min, c.Max
		out.Min, out.Max = &mn, &mx
	default:
		return nil, fmt.Errorf("marshal correct answer: unknown kind %q", c.Kind)
	}
	return json.Marshal(out)
}

// UnmarshalJSON validates the tag and the variant's required fields. A blob
// whose shape disagrees with its tag is rejected here, at the data boundary.
func (c *CorrectAnswer) UnmarshalJSON(data []byte) error {
	var raw correctAnswerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case CorrectChoice:
		if raw.SelectedOption == nil {
			return fmt.Errorf("correct answer kind %q missing selectedOption", raw.Kind)
		}
		*c = CorrectAnswer{Kind: CorrectChoice, SelectedOption: *raw.SelectedOption}
	case CorrectText:
		if raw.Text == nil {
			return fmt.Errorf("correct answer kind %q missing text", raw.Kind)
		}
		*c = CorrectAnswer{Kind: CorrectText, Text: *raw.Text}
	case CorrectNumber:
		if raw.Min == nil || raw.Max == nil {
			return fmt.Errorf("correct answer kind %q missing min/max", raw.Kind)
		}
		if *raw.Min > *raw.Max {
			return fmt.Errorf("correct answer range inverted: min %v > max %v", *raw.Min, *raw.Max)
		}
		*c = CorrectAnswer{Kind: CorrectNumber, Min: *raw.Min, Max: *raw.Max}
	default:
		return fmt.Errorf("unknown correct answer kind %q", raw.Kind)
	}
	return nil
}

// ValueKind tags the shape of a submitted value.
type ValueKind string

const (
	ValueChoice ValueKind = "choice"
	ValueText   ValueKind = "text"
	ValueNumber ValueKind = "number"
)

// AnswerValue is the shape-checked submitted value for one question.
// Numeric carries whether Number holds a real parsed value; a number-typed
// submission that failed to parse keeps its raw text and grades incorrect.
type AnswerValue struct {
	Kind    ValueKind
	Choice  int
	Text    string
	Number  float64
	Numeric bool
}

// ChoiceValue builds a multiple-choice option index value.
func ChoiceValue(index int) AnswerValue {
	return AnswerValue{Kind: ValueChoice, Choice: index}
}

// TextValue builds a free-text value.
func TextValue(text string) AnswerValue {
	return AnswerValue{Kind: ValueText, Text: text}
}

// NumberValue builds a numeric value.
func NumberValue(n float64) AnswerValue {
	return AnswerValue{Kind: ValueNumber, Number: n, Numeric: true}
}

// RawNumberValue builds a number-typed value from untrusted text. If the
// text does not parse the value is kept as non-numeric so grading can treat
// it as incorrect rather than failing the whole submission.
func RawNumberValue(raw string) AnswerValue {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return NumberValue(n)
	}
	return AnswerValue{Kind: ValueNumber, Text: raw}
}

type answerValueJSON struct {
	Kind    ValueKind `json:"kind"`
	Choice  *int      `json:"choice,omitempty"`
	Text    *string   `json:"text,omitempty"`
	Number  *float64  `json:"number,omitempty"`
	Numeric bool      `json:"numeric,omitempty"`
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	out := answerValueJSON{Kind: v.Kind}
	switch v.Kind {
	case ValueChoice:
		c := v.Choice
		out.Choice = &c
	case ValueText:
		t := v.Text
		out.Text = &t
	case ValueNumber:
		out.Numeric = v.Numeric
		if v.Numeric {
			n := v.Number
			out.Number = &n
		} else {
			t := v.Text
			out.Text = &t
		}
	default:
		return nil, fmt.Errorf("marshal answer value: unknown kind %q", v.Kind)
	}
	return json.Marshal(out)
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	var raw answerValueJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case ValueChoice:
		if raw.Choice == nil {
			return fmt.Errorf("answer value kind %q missing choice", raw.Kind)
		}
		*v = ChoiceValue(*raw.Choice)
	case ValueText:
		if raw.Text == nil {
			return fmt.Errorf("answer value kind %q missing text", raw.Kind)
		}
		*v = TextValue(*raw.Text)
	case ValueNumber:
		if raw.Number != nil {
			*v = NumberValue(*raw.Number)
		} else if raw.Text != nil {
			*v = AnswerValue{Kind: ValueNumber, Text: *raw.Text}
		} else {
			return fmt.Errorf("answer value kind %q missing number", raw.Kind)
		}
	default:
		return fmt.Errorf("unknown answer value kind %q", raw.Kind)
	}
	return nil
}

// MatchesType reports whether the value's shape fits the question's type.
func (v AnswerValue) MatchesType(t QuestionType) bool {
	switch t {
	case TypeMultipleChoice:
		return v.Kind == ValueChoice
	case TypeText:
		return v.Kind == ValueText
	case TypeNumber, TypeRating:
		return v.Kind == ValueNumber
	default:
		return false
	}
}
