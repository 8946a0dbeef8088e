package generation

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"quizgen-backend/internal/exams"
)

const responseSchemaURL = "schema://quizgen/questions.json"

// responseSchema mirrors exams.Question.Validate so that the schema error
// names the offending path.
const responseSchema = `{
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["question", "options", "correct_answer", "explanation"],
        "properties": {
          "question": {"type": "string", "minLength": 10},
          "options": {
            "type": "array",
            "minItems": 4,
            "maxItems": 4,
            "items": {"type": "string", "minLength": 1}
          },
          "correct_answer": {"type": "integer", "minimum": 0, "maximum": 3},
          "explanation": {"type": "string", "minLength": 15}
        }
      }
    }
  }
}`

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		var def any
		if err := json.Unmarshal([]byte(responseSchema), &def); err != nil {
			compileErr = fmt.Errorf("parse response schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(responseSchemaURL, def); err != nil {
			compileErr = fmt.Errorf("add response schema: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(responseSchemaURL)
	})
	return compiledSchema, compileErr
}

type wireQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer float64  `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

type wireResponse struct {
	Questions []wireQuestion `json:"questions"`
}

// Sanitize strips markdown code fences from model output.
func Sanitize(raw string) string {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// Validate parses model output into questions. The batch is accepted or
// rejected as a whole.
func Validate(raw string) ([]exams.Question, error) {
	body := Sanitize(raw)

	var parsed any
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, &ValidationError{Reason: ReasonMalformedJSON, Detail: err.Error()}
	}

	sch, err := schema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(parsed); err != nil {
		return nil, &ValidationError{Reason: ReasonSchemaViolation, Detail: err.Error()}
	}

	var resp wireResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, &ValidationError{Reason: ReasonSchemaViolation, Detail: err.Error()}
	}
	if len(resp.Questions) == 0 {
		return nil, &ValidationError{Reason: ReasonSchemaViolation, Detail: "no questions"}
	}

	questions := make([]exams.Question, 0, len(resp.Questions))
	for i, wq := range resp.Questions {
		if wq.CorrectAnswer != math.Trunc(wq.CorrectAnswer) {
			return nil, &ValidationError{Reason: ReasonSchemaViolation, Detail: fmt.Sprintf("questions[%d]: correct_answer must be an integer", i)}
		}
		q := exams.Question{
			Question:      wq.Question,
			Options:       wq.Options,
			CorrectAnswer: int(wq.CorrectAnswer),
			Explanation:   wq.Explanation,
		}
		if err := q.Validate(); err != nil {
			return nil, &ValidationError{Reason: ReasonSchemaViolation, Detail: fmt.Sprintf("questions[%d]: %v", i, err)}
		}
		questions = append(questions, q)
	}
	return questions, nil
}
