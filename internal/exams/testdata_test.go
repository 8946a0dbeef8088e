package exams

import (
	"fmt"
	"time"
)

func sampleQuestion(i int) Question {
	return Question{
		Question:      fmt.Sprintf("¿Cuál es la función principal del orgánulo %d?", i),
		Options:       []string{"Respiración", "Fotosíntesis", "Síntesis de proteínas", "Transporte"},
		CorrectAnswer: i % OptionCount,
		Explanation:   "La respuesta correcta se describe en el capítulo dos del texto.",
	}
}

func sampleTest(id, userID string, n int, created time.Time) Test {
	questions := make([]Question, n)
	for i := range questions {
		questions[i] = sampleQuestion(i)
	}
	return Test{
		ID:                id,
		UserID:            userID,
		PrimaryDocumentID: "doc-a",
		SourceDocumentIDs: []string{"doc-a", "doc-b"},
		Title:             "Examen generado (a.pdf, b.pdf)",
		Description:       fmt.Sprintf("%d preguntas generadas por IA", n),
		Language:          DefaultLanguage,
		Questions:         questions,
		TotalQuestions:    n,
		CreatedAt:         created,
	}
}
