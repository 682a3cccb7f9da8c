package pdfops

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PageTexts extracts plain text page by page. The returned slice is indexed
// by page number minus one. Pages whose text cannot be decoded yield an
// empty string rather than failing the document.
func PageTexts(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s for text extraction: %w", path, err)
	}
	defer f.Close()

	texts := make([]string, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		texts[i-1] = strings.TrimSpace(text)
	}
	return texts, nil
}

// DocumentText extracts the whole document's plain text as one string.
func DocumentText(path string) (string, error) {
	texts, err := PageTexts(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Join(texts, "\n\n")), nil
}
