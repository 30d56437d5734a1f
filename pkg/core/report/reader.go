// Package report handles acquisition of the weekly market report: reading
// the PDF's text and slicing it into model-sized chunks.
package report

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Reader extracts the raw text of a paginated report document.
// The pipeline depends on this interface so tests can feed synthetic text.
type Reader interface {
	ReadText(path string) (string, error)
}

// PDFReader reads the report with a pure-Go PDF parser.
type PDFReader struct{}

var _ Reader = (*PDFReader)(nil)

// ReadText returns the report's full text as the concatenation of each
// page's extracted text, in page order. Pages that fail to extract are
// skipped; a document that yields no text at all is an error, since a
// scanned/image-only report cannot be processed downstream.
func (r *PDFReader) ReadText(path string) (string, error) {
	f, doc, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("could not read PDF %s: %w", path, err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= doc.NumPage(); i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("no text extracted from %s: document may be scanned or image-based", path)
	}
	return sb.String(), nil
}
