package generation

import "fmt"

const (
	DefaultQuestionCount = 10
	MinQuestionCount     = 1
	MaxQuestionCount     = 50

	// ExcerptChars bounds the text sent to the model. The cut is hard and
	// may split a sentence.
	ExcerptChars = 6000
)

// ResponseShape is the JSON layout the model is asked to answer with.
const ResponseShape = `{"questions":[{"question":"...","options":["A","B","C","D"],"correct_answer":0,"explanation":"..."}]}`

const instructionTemplate = "Genera %d preguntas de opción múltiple en español basadas en este texto académico:\n%s\nFormato JSON exacto: %s"

// Prompt is the instruction sent to the completion service.
type Prompt struct {
	Instruction   string
	Excerpt       string
	QuestionCount int
}

// BuildPrompt renders the instruction for questionCount questions over the
// first ExcerptChars characters of the content.
func BuildPrompt(content AggregatedContent, questionCount int) (Prompt, error) {
	if err := validateQuestionCount(questionCount); err != nil {
		return Prompt{}, err
	}
	excerpt := truncateRunes(content.Text, ExcerptChars)
	return Prompt{
		Instruction:   fmt.Sprintf(instructionTemplate, questionCount, excerpt, ResponseShape),
		Excerpt:       excerpt,
		QuestionCount: questionCount,
	}, nil
}

func validateQuestionCount(n int) error {
	if n < MinQuestionCount || n > MaxQuestionCount {
		return &RequestValidationError{
			Detail: fmt.Sprintf("num_questions must be between %d and %d, got %d", MinQuestionCount, MaxQuestionCount, n),
		}
	}
	return nil
}

func truncateRunes(s string, limit int) string {
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
