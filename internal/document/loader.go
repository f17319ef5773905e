package document

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page is the extracted plain text of a single PDF page.
type Page struct {
	Number int
	Text   string
}

// Load extracts plain text from the PDF at path, one entry per page.
// Pages with no extractable text are skipped.
func Load(path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	return LoadBytes(data)
}

// LoadBytes extracts pages from in-memory PDF data.
func LoadBytes(data []byte) ([]Page, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("reading pdf: %w", err)
	}
	return extractPages(r)
}

func extractPages(r *pdf.Reader) ([]Page, error) {
	total := r.NumPage()
	var pages []Page
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no extractable text (scanned or empty document)")
	}
	return pages, nil
}

// ValidatePDF rejects files that do not start with the PDF magic header.
func ValidatePDF(data []byte) error {
	if len(data) < 5 || !bytes.HasPrefix(data, []byte("%PDF-")) {
		return fmt.Errorf("not a PDF file")
	}
	return nil
}
