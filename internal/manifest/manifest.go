// Package manifest loads the client-reference spreadsheet that drives
// per-client merging: one row per consignee, a reference column and a name
// column identified by header.
//
// References are normalized before use as keys, so "123/456/789" and
// "123-456-789" address the same client. The same normalization is applied
// at lookup time.
package manifest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/extrame/xls"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// Header names recognized for the two columns, checked in order. The long
// forms come from the EDI export, the short forms are the fallback pair.
var (
	refHeaders  = []string{"consignees reference", "reference"}
	nameHeaders = []string{"consignees name", "name"}
)

var (
	ErrNoSheet     = errors.New("manifest: spreadsheet has no sheets")
	ErrNoColumns   = errors.New("manifest: reference/name columns not found in header row")
	ErrUnsupported = errors.New("manifest: unsupported file format")
)

var digitsRe = regexp.MustCompile(`\d+`)

// Manifest maps normalized client references to display names.
type Manifest struct {
	entries map[string]string
}

// Len reports the number of loaded entries.
func (m *Manifest) Len() int { return len(m.entries) }

// Lookup returns the display name for a reference in any accepted form.
func (m *Manifest) Lookup(ref string) (string, bool) {
	name, ok := m.entries[NormalizeRef(ref)]
	return name, ok
}

// References returns the normalized references in sorted order.
func (m *Manifest) References() []string {
	refs := make([]string, 0, len(m.entries))
	for ref := range m.entries {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// NormalizeRef canonicalizes a client reference: whitespace trimmed, digit
// groups joined with "/". Values without digit groups are returned trimmed.
func NormalizeRef(ref string) string {
	ref = strings.TrimSpace(ref)
	groups := digitsRe.FindAllString(ref, -1)
	if len(groups) == 0 {
		return ref
	}
	return strings.Join(groups, "/")
}

// Load reads the first sheet of an .xlsx, .xls or .csv manifest into a
// reference→name map. Rows missing either value are skipped.
func Load(path string) (*Manifest, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSX(path)
	case ".xls":
		rows, err = readXLS(path)
	case ".csv":
		rows, err = readCSV(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	return fromRows(rows)
}

// fromRows locates the header columns and builds the map.
func fromRows(rows [][]string) (*Manifest, error) {
	if len(rows) == 0 {
		return nil, ErrNoColumns
	}

	refCol, nameCol := -1, -1
	for i, cell := range rows[0] {
		header := strings.ToLower(strings.TrimSpace(cell))
		if refCol < 0 && matchesHeader(header, refHeaders) {
			refCol = i
		}
		if nameCol < 0 && matchesHeader(header, nameHeaders) {
			nameCol = i
		}
	}
	if refCol < 0 || nameCol < 0 {
		return nil, ErrNoColumns
	}

	m := &Manifest{entries: make(map[string]string)}
	skipped := 0
	for _, row := range rows[1:] {
		ref, name := cellAt(row, refCol), cellAt(row, nameCol)
		if ref == "" || name == "" {
			skipped++
			continue
		}
		m.entries[NormalizeRef(ref)] = name
	}
	if skipped > 0 {
		log.WithField("rows", skipped).Info("skipped incomplete manifest rows")
	}
	return m, nil
}

func matchesHeader(header string, candidates []string) bool {
	for _, c := range candidates {
		if header == c {
			return true
		}
	}
	return false
}

func cellAt(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readXLS(path string) ([][]string, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrNoSheet
	}

	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		var cells []string
		for c := 0; c <= row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return rows, nil
}

// ExportCSV writes the manifest back out as "reference,name" rows for
// auditing.
func (m *Manifest) ExportCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"reference", "name"}); err != nil {
		return err
	}
	for _, ref := range m.References() {
		if err := w.Write([]string{ref, m.entries[ref]}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
