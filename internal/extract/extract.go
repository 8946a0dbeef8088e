// Package extract turns PDF bytes into ordered page text.
// Library used: github.com/ledongthuc/pdf.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxPages bounds the work done for a single document.
const DefaultMaxPages = 500

const (
	ReasonInvalidContainer = "invalid-container"
	ReasonTooLarge         = "too-large"
)

// Error reports why a document could not be read.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract: %s: %v", e.Reason, e.Err)
	}
	return "extract: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// PDFExtractor reads text-showing operators page by page.
type PDFExtractor struct {
	MaxPages int
}

// Extract returns one string per page, in page order. Each page's runs are
// joined by single spaces and terminated by a newline; pages without text
// yield just the newline.
func (x PDFExtractor) Extract(ctx context.Context, data []byte) (pages []string, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &Error{Reason: ReasonInvalidContainer, Err: fmt.Errorf("empty input")}
	}

	// The parser panics on malformed objects and streams.
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = &Error{Reason: ReasonInvalidContainer, Err: fmt.Errorf("parse: %v", rec)}
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &Error{Reason: ReasonInvalidContainer, Err: err}
	}
	if !r.Trailer().Key("Encrypt").IsNull() {
		return nil, &Error{Reason: ReasonInvalidContainer, Err: fmt.Errorf("encrypted document")}
	}

	maxPages := x.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	n := r.NumPage()
	if n > maxPages {
		return nil, &Error{Reason: ReasonTooLarge, Err: fmt.Errorf("%d pages exceeds limit %d", n, maxPages)}
	}

	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages = append(pages, pageText(r.Page(i))+"\n")
	}
	return pages, nil
}

// Join concatenates extracted pages into a single document text.
func Join(pages []string) string {
	return strings.Join(pages, "")
}

func pageText(p pdf.Page) string {
	if p.V.IsNull() {
		return ""
	}

	fonts := make(map[string]*pdf.Font)
	for _, name := range p.Fonts() {
		f := p.Font(name)
		fonts[name] = &f
	}

	var runs []string
	contents := p.V.Key("Contents")
	switch contents.Kind() {
	case pdf.Array:
		for i := 0; i < contents.Len(); i++ {
			runs = appendRuns(runs, contents.Index(i), fonts)
		}
	case pdf.Stream:
		runs = appendRuns(runs, contents, fonts)
	}
	return strings.Join(runs, " ")
}

func appendRuns(runs []string, stream pdf.Value, fonts map[string]*pdf.Font) []string {
	var enc pdf.TextEncoding
	decode := func(v pdf.Value) string {
		raw := v.RawString()
		if enc == nil {
			return raw
		}
		return enc.Decode(raw)
	}

	pdf.Interpret(stream, func(stk *pdf.Stack, op string) {
		n := stk.Len()
		args := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}

		switch op {
		case "Tf":
			if len(args) != 2 {
				return
			}
			if f, ok := fonts[args[0].Name()]; ok {
				enc = f.Encoder()
			} else {
				enc = nil
			}
		case "Tj", "'", "\"":
			if len(args) == 0 {
				return
			}
			if s := decode(args[len(args)-1]); s != "" {
				runs = append(runs, s)
			}
		case "TJ":
			if len(args) != 1 {
				return
			}
			var b strings.Builder
			arr := args[0]
			for i := 0; i < arr.Len(); i++ {
				item := arr.Index(i)
				if item.Kind() == pdf.String {
					b.WriteString(decode(item))
				}
			}
			if b.Len() > 0 {
				runs = append(runs, b.String())
			}
		}
	})
	return runs
}
