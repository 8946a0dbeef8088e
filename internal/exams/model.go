package exams

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// OptionCount is the number of answer options every question carries.
	OptionCount = 4

	MinQuestionChars    = 10
	MinExplanationChars = 15

	DefaultLanguage = "es"
)

// Question is a single multiple-choice item.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// Validate checks the field constraints of a question. Lengths are counted
// in runes on the raw strings, the same rule the response schema applies.
func (q Question) Validate() error {
	if n := utf8.RuneCountInString(q.Question); n < MinQuestionChars {
		return fmt.Errorf("question must have at least %d characters, got %d", MinQuestionChars, n)
	}
	if len(q.Options) != OptionCount {
		return fmt.Errorf("options must have exactly %d entries, got %d", OptionCount, len(q.Options))
	}
	for i, opt := range q.Options {
		if opt == "" {
			return fmt.Errorf("options[%d] must not be empty", i)
		}
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= OptionCount {
		return fmt.Errorf("correct_answer must be between 0 and %d, got %d", OptionCount-1, q.CorrectAnswer)
	}
	if n := utf8.RuneCountInString(q.Explanation); n < MinExplanationChars {
		return fmt.Errorf("explanation must have at least %d characters, got %d", MinExplanationChars, n)
	}
	return nil
}

// Test is a generated exam. Questions are ordered and immutable once stored.
type Test struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	PrimaryDocumentID string     `json:"pdf_id"`
	SourceDocumentIDs []string   `json:"source_document_ids"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Language          string     `json:"language"`
	Questions         []Question `json:"questions"`
	TotalQuestions    int        `json:"total_questions"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Validate checks the invariants a test must hold before it is persisted.
func (t Test) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: id required", ErrInvalidTest)
	}
	if strings.TrimSpace(t.UserID) == "" {
		return fmt.Errorf("%w: user id required", ErrInvalidTest)
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title required", ErrInvalidTest)
	}
	if len(t.Questions) == 0 {
		return fmt.Errorf("%w: at least one question required", ErrInvalidTest)
	}
	if t.TotalQuestions != len(t.Questions) {
		return fmt.Errorf("%w: total_questions %d does not match %d questions", ErrInvalidTest, t.TotalQuestions, len(t.Questions))
	}
	for i, q := range t.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("%w: questions[%d]: %v", ErrInvalidTest, i, err)
		}
	}
	return nil
}

func cloneTest(t Test) Test {
	t.SourceDocumentIDs = append([]string(nil), t.SourceDocumentIDs...)
	questions := make([]Question, len(t.Questions))
	for i, q := range t.Questions {
		q.Options = append([]string(nil), q.Options...)
		questions[i] = q
	}
	t.Questions = questions
	return t
}
