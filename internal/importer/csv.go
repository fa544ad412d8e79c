// Package importer turns bank statement CSV exports into imported rows
// using a column mapping chosen by the user.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/simonvc/propledger/internal/ledger"
)

// Record is one data line of a statement with its 1-based line number in
// the file, so errors can point at it.
type Record struct {
	Line   int
	Fields []string
}

type File struct {
	Headers []string
	Records []Record
	index   map[string]int
}

// Read parses a CSV statement. The first record is the header row. Rows
// may be ragged; blank lines are skipped.
func Read(r io.Reader) (*File, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ledger.Validationf("file is empty")
	}
	if err != nil {
		return nil, ledger.Validationf("reading CSV header: %v", err)
	}

	f := &File{index: make(map[string]int, len(header))}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, ledger.Validationf("column %d has an empty header", i+1)
		}
		if _, dup := f.index[h]; dup {
			return nil, ledger.Validationf("duplicate header %q", h)
		}
		f.index[h] = i
		f.Headers = append(f.Headers, h)
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, ledger.Validationf("reading CSV: %v", err)
		}
		line, _ := cr.FieldPos(0)
		if blank(rec) {
			continue
		}
		f.Records = append(f.Records, Record{Line: line, Fields: rec})
	}
	return f, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Parse applies the mapping to every record. It fails on the first bad
// record so a batch is never half-parsed. Row numbers are 1-based over
// data rows.
func (f *File) Parse(m ledger.ColumnMapping, currency string) ([]ledger.ImportedRow, error) {
	if err := m.Validate(f.Headers); err != nil {
		return nil, err
	}
	rows := make([]ledger.ImportedRow, 0, len(f.Records))
	for i, rec := range f.Records {
		row, err := f.parseRecord(rec, m, currency)
		if err != nil {
			return nil, ledger.Validationf("line %d: %v", rec.Line, err)
		}
		row.RowNo = i + 1
		row.Status = ledger.RowPending
		rows = append(rows, row)
	}
	return rows, nil
}

func (f *File) parseRecord(rec Record, m ledger.ColumnMapping, currency string) (ledger.ImportedRow, error) {
	var row ledger.ImportedRow

	rawDate := f.field(rec, m.DateColumn)
	date, err := ParseDate(rawDate)
	if err != nil {
		return row, err
	}
	row.Date = date

	amount, err := ledger.ToMinorUnits(f.field(rec, m.AmountColumn), currency)
	if err != nil {
		return row, err
	}
	row.Amount = amount

	row.Description = strings.TrimSpace(f.field(rec, m.DescriptionColumn))
	if m.ReferenceColumn != "" {
		row.Reference = strings.TrimSpace(f.field(rec, m.ReferenceColumn))
	}
	return row, nil
}

func (f *File) field(rec Record, column string) string {
	i, ok := f.index[column]
	if !ok || i >= len(rec.Fields) {
		return ""
	}
	return rec.Fields[i]
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"2006/01/02",
}

// ParseDate accepts the date formats banks commonly export.
func ParseDate(s string) (ledger.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ledger.Date{}, fmt.Errorf("date is empty")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return ledger.DateOf(t), nil
		}
	}
	return ledger.Date{}, fmt.Errorf("unrecognised date %q", s)
}
