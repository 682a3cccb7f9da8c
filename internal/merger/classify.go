package merger

import (
	"path/filepath"
	"regexp"
	"strings"
)

// DocCategory is the heuristic classification of an uploaded file.
type DocCategory string

const (
	CategoryTORForm   DocCategory = "tor_form"
	CategoryAdvice    DocCategory = "advice_document"
	CategoryBill      DocCategory = "bill_of_lading"
	CategoryCustomer  DocCategory = "customer_document"
	CategoryEDI       DocCategory = "edi_file"
	CategorySignature DocCategory = "signature"
	CategoryUnknown   DocCategory = "unknown"
)

// customerRefRe matches client references embedded in filenames: digit
// groups separated by "/" or "-".
var customerRefRe = regexp.MustCompile(`\d+[/-]\d+[/-]\d+`)

// ClassifyFile categorizes a file by its name. Filename heuristics only; a
// PDF that matches nothing is CategoryUnknown and callers decide what to do
// with it.
func ClassifyFile(name string) DocCategory {
	lower := strings.ToLower(filepath.Base(name))

	switch {
	case strings.Contains(lower, "tor") || strings.Contains(lower, "declaration"):
		return CategoryTORForm
	case strings.Contains(lower, "advice") || strings.Contains(lower, "arrival"):
		return CategoryAdvice
	case strings.Contains(lower, "bill") || strings.Contains(lower, "lading"):
		return CategoryBill
	case strings.HasSuffix(lower, ".xls") || strings.HasSuffix(lower, ".xlsx"):
		return CategoryEDI
	case customerRefRe.MatchString(lower):
		return CategoryCustomer
	case strings.HasSuffix(lower, ".png") || strings.HasSuffix(lower, ".jpg") ||
		strings.HasSuffix(lower, ".jpeg"):
		return CategorySignature
	}
	return CategoryUnknown
}

// RefFromFilename pulls the client reference out of a customer document's
// filename. The empty string means no reference was found.
func RefFromFilename(name string) string {
	return customerRefRe.FindString(filepath.Base(name))
}
