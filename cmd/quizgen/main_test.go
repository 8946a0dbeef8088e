package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quizgen-backend/internal/exams"
	"quizgen-backend/internal/extract/pdftest"
	"quizgen-backend/internal/llm"
	"quizgen-backend/internal/shared/config"
)

const sampleText = "La fotosintesis convierte la energia luminosa en energia quimica. Ocurre en los cloroplastos de las celulas vegetales y de las algas."

func writePDF(t *testing.T, name string, pages ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, pdftest.Build(pages...), 0o600); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

func TestExtractCommandPrintsPages(t *testing.T) {
	path := writePDF(t, "tema.pdf", "Primera pagina", "Segunda pagina")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"extract", path})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := "--- page 1 ---\nPrimera pagina\n--- page 2 ---\nSegunda pagina\n"
	if out.String() != want {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestExtractCommandRejectsInvalidPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roto.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"extract", path})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRunGeneratePrintsTest(t *testing.T) {
	path := writePDF(t, "fotosintesis.pdf", sampleText)
	client := llm.NewMockClient(llm.MockResponse{Text: `{"questions":[{"question":"¿Dónde ocurre la fotosíntesis?","options":["Núcleo","Cloroplasto","Ribosoma","Vacuola"],"correct_answer":1,"explanation":"La fotosíntesis ocurre en los cloroplastos."}]}`})

	var out bytes.Buffer
	cmd := newGenerateCmd()
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())

	cfg := config.Defaults()
	if err := runGenerate(cmd, cfg, client, []string{path}, 1); err != nil {
		t.Fatalf("runGenerate: %v", err)
	}

	var test exams.Test
	if err := json.Unmarshal(out.Bytes(), &test); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if test.Title != "Examen generado (fotosintesis.pdf)" || test.TotalQuestions != 1 {
		t.Fatalf("unexpected test: %+v", test)
	}
	if !strings.HasPrefix(client.Calls[0].Prompt, "Genera 1 preguntas") {
		t.Fatalf("unexpected prompt %q", client.Calls[0].Prompt)
	}
}
