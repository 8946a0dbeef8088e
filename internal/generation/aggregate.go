package generation

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"quizgen-backend/internal/documents"
	"quizgen-backend/internal/extract"
	"quizgen-backend/internal/shared/metrics"
	"quizgen-backend/internal/shared/telemetry"
)

const (
	// MinContentChars is the smallest combined text worth prompting with.
	MinContentChars = 100

	documentSeparator  = "\n"
	defaultConcurrency = 4
)

// AggregatedContent is the combined text of the documents that contributed.
// SourceNames and SourceDocumentIDs share batch order.
type AggregatedContent struct {
	Text              string
	SourceNames       []string
	SourceDocumentIDs []string
	TotalChars        int
}

// ContentSource reads document bytes and caches extracted text.
type ContentSource interface {
	ReadContent(ctx context.Context, doc documents.Document) ([]byte, error)
	CacheExtractedText(ctx context.Context, doc documents.Document, text string) error
}

// Extractor turns PDF bytes into page texts.
type Extractor interface {
	Extract(ctx context.Context, data []byte) ([]string, error)
}

// Aggregator extracts and combines the text of a document batch.
type Aggregator struct {
	Source      ContentSource
	Extractor   Extractor
	Concurrency int
}

type docText struct {
	text string
	ok   bool
}

// Aggregate returns the combined text of every document that parses.
// Documents that fail are logged and skipped. Image-only documents still
// contribute their (empty) pages and their name; only an insufficient
// total is an error.
func (a *Aggregator) Aggregate(ctx context.Context, batch []documents.Document) (AggregatedContent, error) {
	results := make([]docText, len(batch))

	var g errgroup.Group
	g.SetLimit(a.concurrency())
	for i, doc := range batch {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, ok := a.documentText(ctx, doc)
			results[i] = docText{text: text, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return AggregatedContent{}, err
	}
	if err := ctx.Err(); err != nil {
		return AggregatedContent{}, err
	}

	var b strings.Builder
	content := AggregatedContent{SourceNames: []string{}, SourceDocumentIDs: []string{}}
	for i, res := range results {
		if !res.ok {
			continue
		}
		b.WriteString(res.text)
		b.WriteString(documentSeparator)
		content.SourceNames = append(content.SourceNames, batch[i].OriginalName)
		content.SourceDocumentIDs = append(content.SourceDocumentIDs, batch[i].ID)
	}
	content.Text = b.String()
	content.TotalChars = utf8.RuneCountInString(content.Text)

	if content.TotalChars < MinContentChars {
		return AggregatedContent{}, &AggregationError{
			Reason: ReasonInsufficientContent,
			Detail: fmt.Sprintf("%d characters extracted from %d of %d documents, need at least %d",
				content.TotalChars, len(content.SourceNames), len(batch), MinContentChars),
		}
	}
	return content, nil
}

func (a *Aggregator) documentText(ctx context.Context, doc documents.Document) (string, bool) {
	if doc.ExtractedText != nil {
		a.record(doc, *doc.ExtractedText, "cached")
		return *doc.ExtractedText, true
	}

	data, err := a.Source.ReadContent(ctx, doc)
	if err != nil {
		a.skipFailed(doc, "fetch", err)
		return "", false
	}
	pages, err := a.Extractor.Extract(ctx, data)
	if err != nil {
		a.skipFailed(doc, "extract", err)
		return "", false
	}
	text := extract.Join(pages)

	if err := a.Source.CacheExtractedText(ctx, doc, text); err != nil {
		telemetry.Warn("document.cache_failed", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}
	a.record(doc, text, "extracted")
	return text, true
}

func (a *Aggregator) skipFailed(doc documents.Document, stage string, err error) {
	metrics.IncExtraction("failed")
	telemetry.Warn("document.extract_failed", map[string]any{
		"document_id": doc.ID,
		"stage":       stage,
		"error":       err.Error(),
	})
}

// record counts how the text was obtained. Blank text from a parsed
// document (scanned pages) is kept but flagged.
func (a *Aggregator) record(doc documents.Document, text, result string) {
	if strings.TrimSpace(text) != "" {
		metrics.IncExtraction(result)
		return
	}
	metrics.IncExtraction("empty")
	telemetry.Warn("document.empty_text", map[string]any{
		"document_id": doc.ID,
		"source":      result,
	})
}

func (a *Aggregator) concurrency() int {
	if a.Concurrency > 0 {
		return a.Concurrency
	}
	return defaultConcurrency
}
