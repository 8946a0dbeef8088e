package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"quizgen-backend/internal/documents"
	"quizgen-backend/internal/exams"
	"quizgen-backend/internal/llm"
)

func newService(f *fixture, client llm.Client) *Service {
	return &Service{
		Documents:      f.docs,
		Aggregator:     f.aggregator(),
		LLM:            client,
		Tests:          f.tests,
		RepairAttempts: 1,
		MaxBatch:       3,
		Now:            func() time.Time { return time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC) },
	}
}

func intPtr(n int) *int { return &n }

func storedTests(t *testing.T, f *fixture, userID string) []exams.Test {
	t.Helper()
	list, err := f.tests.ListByUser(context.Background(), userID, 0, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	return list
}

func TestGenerateEndToEnd(t *testing.T) {
	f := newFixture(t)
	a := f.upload(t, "user-1", "celula.pdf", pdfWith(cellText))
	b := f.upload(t, "user-1", "adn.pdf", pdfWith(geneticText))
	client := llm.NewMockClient(llm.MockResponse{Text: "```json\n" + questionsPayload(t, 3) + "\n```"})

	test, err := newService(f, client).Generate(context.Background(), "user-1", Request{
		DocumentIDs:  []string{a.ID, b.ID, a.ID},
		NumQuestions: intPtr(3),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if test.TotalQuestions != 3 || test.Title != "Examen generado (celula.pdf, adn.pdf)" {
		t.Fatalf("unexpected test: %+v", test)
	}
	if test.PrimaryDocumentID != a.ID || len(test.SourceDocumentIDs) != 2 {
		t.Fatalf("unexpected sources: %+v", test.SourceDocumentIDs)
	}

	if client.CallCount() != 1 {
		t.Fatalf("expected one completion, got %d", client.CallCount())
	}
	call := client.Calls[0]
	if call.Model != DefaultModel || call.Temperature != DefaultTemperature {
		t.Fatalf("unexpected request settings: %+v", call)
	}
	if !strings.HasPrefix(call.Prompt, "Genera 3 preguntas") || !strings.Contains(call.Prompt, "unidad basica") {
		t.Fatalf("unexpected prompt: %q", call.Prompt)
	}

	stored, err := f.tests.GetByID(context.Background(), "user-1", test.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	for i := range stored.Questions {
		if stored.Questions[i].Question != test.Questions[i].Question {
			t.Fatalf("question order not preserved at %d", i)
		}
	}
}

func TestGenerateDefaultsToTenQuestions(t *testing.T) {
	f := newFixture(t)
	doc := f.upload(t, "user-1", "celula.pdf", pdfWith(cellText))
	client := llm.NewMockClient(llm.MockResponse{Text: questionsPayload(t, 8)})

	test, err := newService(f, client).Generate(context.Background(), "user-1", Request{DocumentIDs: []string{doc.ID}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(client.Calls[0].Prompt, "Genera 10 preguntas") {
		t.Fatalf("expected default of 10 in prompt: %q", client.Calls[0].Prompt)
	}
	// fewer questions than requested are accepted as returned
	if test.TotalQuestions != 8 || test.Description != "8 preguntas generadas por IA" {
		t.Fatalf("unexpected test: %d %q", test.TotalQuestions, test.Description)
	}
}

func TestGenerateRequestValidation(t *testing.T) {
	f := newFixture(t)
	doc := f.upload(t, "user-1", "celula.pdf", pdfWith(cellText))

	tests := []struct {
		name string
		req  Request
	}{
		{name: "no ids", req: Request{}},
		{name: "blank ids", req: Request{DocumentIDs: []string{" ", ""}}},
		{name: "too many", req: Request{DocumentIDs: []string{"a", "b", "c", "d"}}},
		{name: "zero questions", req: Request{DocumentIDs: []string{doc.ID}, NumQuestions: intPtr(0)}},
		{name: "too many questions", req: Request{DocumentIDs: []string{doc.ID}, NumQuestions: intPtr(51)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := llm.NewMockClient()
			_, err := newService(f, client).Generate(context.Background(), "user-1", tt.req)
			var reqErr *RequestValidationError
			if !errors.As(err, &reqErr) {
				t.Fatalf("expected RequestValidationError, got %v", err)
			}
			if client.CallCount() != 0 {
				t.Fatalf("expected no completion calls")
			}
		})
	}

	if _, err := newService(f, llm.NewMockClient()).Generate(context.Background(), "", Request{DocumentIDs: []string{doc.ID}}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestGenerateDocumentOwnershipAborts(t *testing.T) {
	f := newFixture(t)
	mine := f.upload(t, "user-1", "celula.pdf", pdfWith(cellText))
	theirs := f.upload(t, "user-2", "ajeno.pdf", pdfWith(geneticText))

	client := llm.NewMockClient()
	svc := newService(f, client)

	_, err := svc.Generate(context.Background(), "user-1", Request{DocumentIDs: []string{mine.ID, theirs.ID}})
	if !errors.Is(err, documents.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	_, err = svc.Generate(context.Background(), "user-1", Request{DocumentIDs: []string{mine.ID, "missing"}})
	if !errors.Is(err, documents.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if client.CallCount() != 0 || len(storedTests(t, f, "user-1")) != 0 {
		t.Fatalf("expected no work after a rejected document")
	}
}

func TestGenerateSkipsCorruptDocument(t *testing.T) {
	f := newFixture(t)
	bad := f.upload(t, "user-1", "roto.pdf", corruptPDF())
	good := f.upload(t, "user-1", "celula.pdf", pdfWith(cellText))
	client := llm.NewMockClient(llm.MockResponse{Text: questionsPayload(t, 2)})

	test, err := newService(f, client).Generate(context.Background(), "user-1", Request{DocumentIDs: []string{bad.ID, good.ID}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if test.Title != "Examen generado (celula.pdf)" {
		t.Fatalf("expected one source name in title, got %q", test.Title)
	}
	if test.PrimaryDocumentID != good.ID {
		t.Fatalf("expected first contributing document as primary, got %q", test.PrimaryDocumentID)
	}
}

func TestGenerateInsufficientContent(t *testing.T) {
	f := newFixture(t)
	bad := f.upload(t, "user-1", "roto.pdf", corruptPDF())
	client := llm.NewMockClient()

	_, err := newService(f, client).Generate(context.Background(), "user-1", Request{DocumentIDs: []string{bad.ID}})
	var aggErr *AggregationError
	if !errors.As(err, &aggErr) || aggErr.Reason != ReasonInsufficientContent {
		t.Fatalf("expected insufficient-content, got %v", err)
	}
	if client.CallCount() != 0 {
		t.Fatalf("expected no completion calls")
	}
}

func TestGenerateRepairsInvalidOutputOnce(t *testing.T) {
	f := newFixture(t)
	doc := f.upload(t, "user-1", "celula.pdf", pdfWith(cellText))
	client := llm.NewMockClient(
		llm.MockResponse{Text: "Aquí tienes tus preguntas:"},
		llm.MockResponse{Text: questionsPayload(t, 2)},
	)

	test, err := newService(f, client).Generate(context.Background(), "user-1", Request{DocumentIDs: []string{doc.ID}, NumQuestions: intPtr(2)})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if client.CallCount() != 2 || test.TotalQuestions != 2 {
		t.Fatalf("expected repair to succeed on second call, calls=%d", client.CallCount())
	}
	if client.Calls[0].Prompt != client.Calls[1].Prompt {
		t.Fatalf("expected the repair to reuse the prompt")
	}
}

func TestGenerateInvalidOutputAfterRepair(t *testing.T) {
	threeOptions := `{"questions":[{"question":"¿Qué orgánulo produce ATP?","options":["A","B","C"],"correct_answer":1,"explanation":"La mitocondria realiza la respiración."}]}`

	t.Run("repair exhausted", func(t *testing.T) {
		f := newFixture(t)
		doc := f.upload(t, "user-1", "celula.pdf", pdfWith(cellText))
		client := llm.NewMockClient(llm.MockResponse{Text: threeOptions}, llm.MockResponse{Text: threeOptions})

		_, err := newService(f, client).Generate(context.Background(), "user-1", Request{DocumentIDs: []string{doc.ID}})
		var valErr *ValidationError
		if !errors.As(err, &valErr) || valErr.Reason != ReasonSchemaViolation {
			t.Fatalf("expected schema-violation, got %v", err)
		}
		if client.CallCount() != 2 || len(storedTests(t, f, "user-1")) != 0 {
			t.Fatalf("expected two calls and nothing persisted")
		}
	})

	t.Run("repair disabled", func(t *testing.T) {
		f := newFixture(t)
		doc := f.upload(t, "user-1", "celula.pdf", pdfWith(cellText))
		client := llm.NewMockClient(llm.MockResponse{Text: threeOptions})
		svc := newService(f, client)
		svc.RepairAttempts = 0

		if _, err := svc.Generate(context.Background(), "user-1", Request{DocumentIDs: []string{doc.ID}}); err == nil {
			t.Fatalf("expected error")
		}
		if client.CallCount() != 1 {
			t.Fatalf("expected a single call, got %d", client.CallCount())
		}
	})
}

func TestGenerateLLMTimeoutUnderRetry(t *testing.T) {
	f := newFixture(t)
	doc := f.upload(t, "user-1", "celula.pdf", pdfWith(cellText))

	var calls int
	slow := llm.ClientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		calls++
		<-ctx.Done()
		return "", ctx.Err()
	})
	client := llm.WithRetry(slow, "stub", llm.RetryConfig{
		MaxRetries:     2,
		AttemptTimeout: 20 * time.Millisecond,
		InitialWait:    time.Millisecond,
		MaxWait:        2 * time.Millisecond,
		Multiplier:     2,
	})

	_, err := newService(f, client).Generate(context.Background(), "user-1", Request{DocumentIDs: []string{doc.ID}})
	if !llm.IsReason(err, llm.ReasonTimeout) {
		t.Fatalf("expected llm timeout, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if len(storedTests(t, f, "user-1")) != 0 {
		t.Fatalf("expected nothing persisted")
	}
}

func TestGenerateUnauthorizedUpstreamNotRepaired(t *testing.T) {
	f := newFixture(t)
	doc := f.upload(t, "user-1", "celula.pdf", pdfWith(cellText))
	client := llm.NewMockClient(llm.MockResponse{Err: llm.FromStatus("stub", 401, errors.New("bad key"))})

	_, err := newService(f, client).Generate(context.Background(), "user-1", Request{DocumentIDs: []string{doc.ID}})
	if !llm.IsReason(err, llm.ReasonUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if client.CallCount() != 1 {
		t.Fatalf("expected no repair on client errors")
	}
}

type failingTests struct{ exams.Repo }

func (failingTests) Create(context.Context, exams.Test) (exams.Test, error) {
	return exams.Test{}, errors.New("connection reset")
}

func TestGeneratePersistenceError(t *testing.T) {
	f := newFixture(t)
	doc := f.upload(t, "user-1", "celula.pdf", pdfWith(cellText))
	svc := newService(f, llm.NewMockClient(llm.MockResponse{Text: questionsPayload(t, 1)}))
	svc.Tests = failingTests{Repo: f.tests}

	_, err := svc.Generate(context.Background(), "user-1", Request{DocumentIDs: []string{doc.ID}})
	var persErr *PersistenceError
	if !errors.As(err, &persErr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
}

func TestGenerateCancelledBeforePersist(t *testing.T) {
	f := newFixture(t)
	doc := f.upload(t, "user-1", "celula.pdf", pdfWith(cellText))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := llm.ClientFunc(func(context.Context, llm.Request) (string, error) {
		cancel()
		return questionsPayload(t, 1), nil
	})

	_, err := newService(f, client).Generate(ctx, "user-1", Request{DocumentIDs: []string{doc.ID}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(storedTests(t, f, "user-1")) != 0 {
		t.Fatalf("expected nothing persisted after cancellation")
	}
}
