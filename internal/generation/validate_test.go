package generation

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

const fencedResponse = "```json\n" + `{"questions":[{"question":"¿Qué orgánulo produce ATP?","options":["Núcleo","Mitocondria","Ribosoma","Vacuola"],"correct_answer":1,"explanation":"La mitocondria realiza la respiración celular."}]}` + "\n```"

func TestValidateFencedResponse(t *testing.T) {
	questions, err := Validate(fencedResponse)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("expected one question, got %d", len(questions))
	}
	if questions[0].CorrectAnswer != 1 || questions[0].Options[1] != "Mitocondria" {
		t.Fatalf("unexpected question: %+v", questions[0])
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason string
	}{
		{name: "not json", raw: "Lo siento, no puedo ayudar con eso.", reason: ReasonMalformedJSON},
		{name: "truncated", raw: `{"questions":[{"question":`, reason: ReasonMalformedJSON},
		{name: "empty output", raw: "", reason: ReasonMalformedJSON},
		{name: "three options", raw: `{"questions":[{"question":"¿Qué orgánulo produce ATP?","options":["A","B","C"],"correct_answer":1,"explanation":"La mitocondria realiza la respiración."}]}`, reason: ReasonSchemaViolation},
		{name: "answer out of range", raw: `{"questions":[{"question":"¿Qué orgánulo produce ATP?","options":["A","B","C","D"],"correct_answer":4,"explanation":"La mitocondria realiza la respiración."}]}`, reason: ReasonSchemaViolation},
		{name: "fractional answer", raw: `{"questions":[{"question":"¿Qué orgánulo produce ATP?","options":["A","B","C","D"],"correct_answer":1.5,"explanation":"La mitocondria realiza la respiración."}]}`, reason: ReasonSchemaViolation},
		{name: "short explanation", raw: `{"questions":[{"question":"¿Qué orgánulo produce ATP?","options":["A","B","C","D"],"correct_answer":0,"explanation":"Porque sí."}]}`, reason: ReasonSchemaViolation},
		{name: "empty option", raw: `{"questions":[{"question":"¿Qué orgánulo produce ATP?","options":["A","","C","D"],"correct_answer":0,"explanation":"La mitocondria realiza la respiración."}]}`, reason: ReasonSchemaViolation},
		{name: "missing field", raw: `{"questions":[{"question":"¿Qué orgánulo produce ATP?","options":["A","B","C","D"],"correct_answer":0}]}`, reason: ReasonSchemaViolation},
		{name: "empty list", raw: `{"questions":[]}`, reason: ReasonSchemaViolation},
		{name: "wrong top level", raw: `[1,2,3]`, reason: ReasonSchemaViolation},
		{name: "empty object", raw: `{}`, reason: ReasonSchemaViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			questions, err := Validate(tt.raw)
			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if valErr.Reason != tt.reason {
				t.Fatalf("expected reason %s, got %s (%s)", tt.reason, valErr.Reason, valErr.Detail)
			}
			if questions != nil {
				t.Fatalf("expected no questions accepted, got %d", len(questions))
			}
		})
	}
}

func TestValidateRejectsWholeBatch(t *testing.T) {
	raw := `{"questions":[
		{"question":"¿Qué orgánulo produce ATP?","options":["A","B","C","D"],"correct_answer":0,"explanation":"La mitocondria realiza la respiración."},
		{"question":"¿Dónde está el ADN?","options":["A","B","C"],"correct_answer":0,"explanation":"El ADN se encuentra en el núcleo celular."}
	]}`
	questions, err := Validate(raw)
	if err == nil || questions != nil {
		t.Fatalf("expected the whole batch rejected, got %d questions, err %v", len(questions), err)
	}
	if !strings.Contains(err.Error(), "questions/1") && !strings.Contains(err.Error(), "questions[1]") {
		t.Fatalf("expected error to name the second question: %v", err)
	}
}

func TestValidateAllowsExtraFields(t *testing.T) {
	raw := `{"questions":[{"question":"¿Qué orgánulo produce ATP?","options":["A","B","C","D"],"correct_answer":2,"explanation":"La mitocondria realiza la respiración.","difficulty":"media"}],"model":"gpt-4"}`
	questions, err := Validate(raw)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if questions[0].CorrectAnswer != 2 {
		t.Fatalf("unexpected answer %d", questions[0].CorrectAnswer)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	first, err := Validate(fencedResponse)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	encoded, err := json.Marshal(map[string]any{"questions": first})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := Validate(string(encoded))
	if err != nil {
		t.Fatalf("Validate again: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("length changed: %d vs %d", len(second), len(first))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.Question != b.Question || a.CorrectAnswer != b.CorrectAnswer || a.Explanation != b.Explanation || strings.Join(a.Options, "|") != strings.Join(b.Options, "|") {
			t.Fatalf("question %d changed: %+v vs %+v", i, a, b)
		}
	}

	// sanitizing clean input is a no-op
	if Sanitize(string(encoded)) != string(encoded) {
		t.Fatalf("Sanitize changed clean input")
	}
}

func TestValidateCountsRawLengthsLikeSchema(t *testing.T) {
	// 8 runes of text padded to 10, 13 runes padded to 15
	raw := `{"questions":[{"question":"  ¿Qué es?","options":["A"," ","C","D"],"correct_answer":0,"explanation":"  Es la célula."}]}`

	questions, err := Validate(raw)
	if err != nil {
		t.Fatalf("expected schema-accepted output to pass typed checks, got %v", err)
	}
	if len(questions) != 1 || questions[0].Question != "  ¿Qué es?" {
		t.Fatalf("expected question kept verbatim, got %+v", questions)
	}
}
