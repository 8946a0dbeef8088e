package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"quizgen-backend/internal/documents"
	"quizgen-backend/internal/exams"
	"quizgen-backend/internal/extract"
	"quizgen-backend/internal/extract/pdftest"
	localstore "quizgen-backend/internal/shared/storage/object/local"
)

const (
	cellText    = "La celula es la unidad basica de la vida. Todas las celulas provienen de otras celulas preexistentes y contienen material genetico."
	geneticText = "El ADN se replica de forma semiconservativa antes de la division celular, y cada hebra sirve como molde para una nueva hebra."
)

type fixture struct {
	docs  *documents.Service
	repo  *documents.MemoryRepo
	tests *exams.MemoryRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := documents.NewMemoryRepo()
	return &fixture{
		docs:  &documents.Service{Store: localstore.New(t.TempDir()), Repo: repo},
		repo:  repo,
		tests: exams.NewMemoryRepo(),
	}
}

func (f *fixture) upload(t *testing.T, userID, name string, data []byte) documents.Document {
	t.Helper()
	doc, err := f.docs.Upload(context.Background(), userID, name, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("upload %s: %v", name, err)
	}
	return doc
}

func (f *fixture) aggregator() *Aggregator {
	return &Aggregator{Source: f.docs, Extractor: extract.PDFExtractor{}, Concurrency: 2}
}

// corruptPDF passes the upload sniffing but fails to parse.
func corruptPDF() []byte {
	return []byte("%PDF-1.4\nthis is not really a pdf body, the cross reference table is missing entirely\n%%EOF\n")
}

func questionJSON(i, answer int) map[string]any {
	return map[string]any{
		"question":       fmt.Sprintf("¿Cuál es la afirmación correcta número %d?", i),
		"options":        []string{"Opción uno", "Opción dos", "Opción tres", "Opción cuatro"},
		"correct_answer": answer,
		"explanation":    "La explicación se basa en el texto académico proporcionado.",
	}
}

func questionsPayload(t *testing.T, n int) string {
	t.Helper()
	questions := make([]map[string]any, n)
	for i := range questions {
		questions[i] = questionJSON(i, i%4)
	}
	raw, err := json.Marshal(map[string]any{"questions": questions})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(raw)
}

func pdfWith(pages ...string) []byte {
	return pdftest.Build(pages...)
}
