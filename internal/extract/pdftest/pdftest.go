// Package pdftest builds small, valid PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Build returns a PDF with one page per entry. Each entry is split on
// newlines and every line is drawn with a separate Tj operator. An empty
// entry produces a page without a content stream.
func Build(pages ...string) []byte {
	contents := make([]string, len(pages))
	for i, p := range pages {
		if p == "" {
			continue
		}
		var b strings.Builder
		b.WriteString("BT /F1 12 Tf 72 720 Td ")
		for j, line := range strings.Split(p, "\n") {
			if j > 0 {
				b.WriteString("0 -14 Td ")
			}
			fmt.Fprintf(&b, "(%s) Tj ", Escape(line))
		}
		b.WriteString("ET")
		contents[i] = b.String()
	}
	return BuildRaw(contents...)
}

// BuildRaw returns a PDF whose pages use the given content streams verbatim.
// An empty stream produces a page without contents.
func BuildRaw(streams ...string) []byte {
	var objs []string
	add := func(body string) int {
		objs = append(objs, body)
		return len(objs)
	}

	catalog := add("")
	pagesObj := add("")
	font := add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var kids []string
	for _, s := range streams {
		page := add("")
		body := fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >>", pagesObj, font)
		if s != "" {
			content := add(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(s), s))
			body += fmt.Sprintf(" /Contents %d 0 R", content)
		}
		objs[page-1] = body + " >>"
		kids = append(kids, fmt.Sprintf("%d 0 R", page))
	}
	objs[catalog-1] = fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesObj)
	objs[pagesObj-1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(streams))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, catalog, xref)
	return buf.Bytes()
}

// Escape quotes a string for use inside a PDF literal string.
func Escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
