package generation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"quizgen-backend/internal/exams"
)

// Assemble builds the Test for validated questions.
func Assemble(questions []exams.Question, content AggregatedContent, ownerID string, now time.Time) (exams.Test, error) {
	primary := ""
	if len(content.SourceDocumentIDs) > 0 {
		primary = content.SourceDocumentIDs[0]
	}
	test := exams.Test{
		ID:                uuid.NewString(),
		UserID:            ownerID,
		PrimaryDocumentID: primary,
		SourceDocumentIDs: append([]string(nil), content.SourceDocumentIDs...),
		Title:             "Examen generado (" + strings.Join(content.SourceNames, ", ") + ")",
		Description:       fmt.Sprintf("%d preguntas generadas por IA", len(questions)),
		Language:          exams.DefaultLanguage,
		Questions:         questions,
		TotalQuestions:    len(questions),
		CreatedAt:         now.UTC(),
	}
	if err := test.Validate(); err != nil {
		return exams.Test{}, err
	}
	return test, nil
}
