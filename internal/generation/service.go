package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quizgen-backend/internal/documents"
	"quizgen-backend/internal/exams"
	"quizgen-backend/internal/extract"
	"quizgen-backend/internal/llm"
	"quizgen-backend/internal/shared/metrics"
	"quizgen-backend/internal/shared/telemetry"
)

const (
	DefaultModel       = "gpt-4"
	DefaultTemperature = 0.2
	DefaultMaxBatch    = 10
)

// DocumentStore resolves owned documents and their content.
type DocumentStore interface {
	Get(ctx context.Context, userID, documentID string) (documents.Document, error)
	ContentSource
}

// Request is a generate request after decoding.
type Request struct {
	DocumentIDs []string
	// NumQuestions is nil when the caller did not send one.
	NumQuestions *int
}

// Service runs the document-to-test pipeline.
type Service struct {
	Documents  DocumentStore
	Aggregator *Aggregator
	LLM        llm.Client
	Tests      exams.Repo

	Model       string
	Temperature float64
	MaxTokens   int
	// RepairAttempts is how many extra completions are requested after
	// output fails validation.
	RepairAttempts int
	MaxBatch       int
	Timeout        time.Duration
	Now            func() time.Time
}

// Generate turns the requested documents into a persisted test.
func (s *Service) Generate(ctx context.Context, userID string, req Request) (test exams.Test, err error) {
	start := time.Now()
	metrics.IncInFlight()
	defer func() {
		metrics.DecInFlight()
		metrics.ObserveGeneration(outcome(err), time.Since(start))
	}()

	if strings.TrimSpace(userID) == "" {
		return exams.Test{}, ErrUnauthorized
	}
	ids, err := s.normalizeIDs(req.DocumentIDs)
	if err != nil {
		return exams.Test{}, err
	}
	count := DefaultQuestionCount
	if req.NumQuestions != nil {
		count = *req.NumQuestions
	}
	if err := validateQuestionCount(count); err != nil {
		return exams.Test{}, err
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	batch := make([]documents.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := s.Documents.Get(ctx, userID, id)
		if err != nil {
			return exams.Test{}, fmt.Errorf("document %s: %w", id, err)
		}
		batch = append(batch, doc)
	}

	content, err := s.aggregator().Aggregate(ctx, batch)
	if err != nil {
		return exams.Test{}, err
	}
	prompt, err := BuildPrompt(content, count)
	if err != nil {
		return exams.Test{}, err
	}
	questions, err := s.complete(ctx, prompt)
	if err != nil {
		return exams.Test{}, err
	}
	if len(questions) != count {
		telemetry.Info("generation.count_mismatch", map[string]any{
			"requested": count,
			"received":  len(questions),
		})
	}

	test, err = Assemble(questions, content, userID, s.now())
	if err != nil {
		return exams.Test{}, &ValidationError{Reason: ReasonSchemaViolation, Detail: err.Error()}
	}
	if err := ctx.Err(); err != nil {
		return exams.Test{}, fmt.Errorf("abort before persisting: %w", err)
	}
	saved, err := s.Tests.Create(ctx, test)
	if err != nil {
		return exams.Test{}, &PersistenceError{Err: err}
	}

	telemetry.Info("generation.status", map[string]any{
		"test_id":     saved.ID,
		"user_id":     userID,
		"sources":     len(content.SourceDocumentIDs),
		"skipped":     len(batch) - len(content.SourceDocumentIDs),
		"questions":   saved.TotalQuestions,
		"total_chars": content.TotalChars,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return saved, nil
}

// complete asks the model for questions and re-asks once per repair attempt
// when the output does not validate.
func (s *Service) complete(ctx context.Context, prompt Prompt) ([]exams.Question, error) {
	req := llm.Request{
		Model:       s.model(),
		Prompt:      prompt.Instruction,
		Temperature: s.temperature(),
		MaxTokens:   s.MaxTokens,
	}
	attempts := 1 + s.repairAttempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		raw, err := s.LLM.Complete(ctx, req)
		if err != nil {
			return nil, err
		}
		questions, err := Validate(raw)
		if err == nil {
			return questions, nil
		}
		lastErr = err
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return nil, err
		}
		telemetry.Warn("generation.invalid_output", map[string]any{
			"attempt": attempt,
			"reason":  verr.Reason,
			"detail":  verr.Detail,
			"repair":  attempt < attempts,
		})
	}
	return nil, lastErr
}

func (s *Service) normalizeIDs(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, &RequestValidationError{Detail: "pdf_ids must contain at least one document id"}
	}
	if limit := s.maxBatch(); len(ids) > limit {
		return nil, &RequestValidationError{Detail: fmt.Sprintf("pdf_ids may contain at most %d documents, got %d", limit, len(ids))}
	}
	return ids, nil
}

func (s *Service) aggregator() *Aggregator {
	if s.Aggregator != nil {
		return s.Aggregator
	}
	return &Aggregator{Source: s.Documents, Extractor: extract.PDFExtractor{}}
}

func (s *Service) model() string {
	if s.Model != "" {
		return s.Model
	}
	return DefaultModel
}

func (s *Service) temperature() float64 {
	if s.Temperature > 0 {
		return s.Temperature
	}
	return DefaultTemperature
}

func (s *Service) repairAttempts() int {
	if s.RepairAttempts < 0 {
		return 0
	}
	return s.RepairAttempts
}

func (s *Service) maxBatch() int {
	if s.MaxBatch > 0 {
		return s.MaxBatch
	}
	return DefaultMaxBatch
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func outcome(err error) string {
	var (
		reqErr  *RequestValidationError
		aggErr  *AggregationError
		llmErr  *llm.Error
		valErr  *ValidationError
		persErr *PersistenceError
	)
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.As(err, &reqErr):
		return "invalid_request"
	case errors.Is(err, documents.ErrNotFound), errors.Is(err, documents.ErrForbidden):
		return "document_rejected"
	case errors.As(err, &aggErr):
		return "aggregation_error"
	case errors.As(err, &llmErr):
		return "generation_error"
	case errors.As(err, &valErr):
		return "invalid_output"
	case errors.As(err, &persErr):
		return "persistence_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
