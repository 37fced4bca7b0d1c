package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
)

var (
	ErrNoHeader        = errors.New("file has no header row")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrColumnMismatch  = errors.New("column count does not match header")
)

// Column aliases, in order of preference. Header names are compared lowercased.
var (
	titleColumns       = []string{"title"}
	descriptionColumns = []string{"description", "variation details"}
	priceColumns       = []string{"start price", "current price"}
	conditionColumns   = []string{"condition"}
	externalIDColumns  = []string{"item number", "ebay item id"}
)

const utf8BOM = "\ufeff"

var validate = validator.New()

// Record is one data line of a sheet before it is mapped onto the header.
// Number counts the header as row 1.
type Record struct {
	Number int
	Fields []string
	Err    error
}

// Sheet is a parsed upload: a normalized header and its data records
type Sheet struct {
	Header  []string
	Records []Record
}

// Row holds the raw values of one input line
type Row struct {
	Number      int               `json:"row"`
	Raw         map[string]string `json:"raw"`
	Title       string            `json:"title" validate:"required"`
	Description string            `json:"description"`
	RawPrice    string            `json:"price"`
	Condition   string            `json:"condition"`
	ExternalID  string            `json:"item_id"`
}

// RowError is a row-level failure reported back to the operator
type RowError struct {
	Row    int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("Row %d: %s", e.Row, e.Reason)
}

// Read parses an uploaded file, choosing the reader from the file extension
func Read(filename string, r io.Reader) (*Sheet, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt", "":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(filename))
	}
}

// ReadCSV reads a CSV export. Syntax errors are attached to the offending record
// and reading continues with the next line.
func ReadCSV(r io.Reader) (*Sheet, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && string(prefix) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	sheet := &Sheet{Header: normalizeHeader(header)}
	if len(sheet.Header) == 0 {
		return nil, ErrNoHeader
	}

	number := 1
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		number++

		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("failed to read row %d: %w", number, err)
			}
			sheet.Records = append(sheet.Records, Record{Number: number, Err: parseErr.Err})
			continue
		}

		sheet.Records = append(sheet.Records, Record{Number: number, Fields: fields})
	}

	return sheet, nil
}

// ReadXLSX reads the first worksheet of a workbook
func ReadXLSX(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeader
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	if len(rows) == 0 || isBlank(rows[0]) {
		return nil, ErrNoHeader
	}

	sheet := &Sheet{Header: normalizeHeader(rows[0])}

	for i, cells := range rows[1:] {
		if isBlank(cells) {
			continue
		}
		// the sheet reader drops trailing empty cells
		for len(cells) < len(sheet.Header) {
			cells = append(cells, "")
		}
		sheet.Records = append(sheet.Records, Record{Number: i + 2, Fields: cells})
	}

	return sheet, nil
}

// ParseRecord maps a record onto the sheet header and extracts the known columns
func (s *Sheet) ParseRecord(rec Record) (*Row, error) {
	if rec.Err != nil {
		return nil, &RowError{Row: rec.Number, Reason: rec.Err.Error()}
	}

	raw, err := MapFields(s.Header, rec.Fields)
	if err != nil {
		return nil, &RowError{Row: rec.Number, Reason: err.Error()}
	}

	row := &Row{
		Number:      rec.Number,
		Raw:         raw,
		Title:       strings.TrimSpace(firstPresent(raw, titleColumns)),
		Description: strings.TrimSpace(firstPresent(raw, descriptionColumns)),
		RawPrice:    strings.TrimSpace(firstPresent(raw, priceColumns)),
		Condition:   strings.TrimSpace(firstPresent(raw, conditionColumns)),
		ExternalID:  strings.TrimSpace(firstPresent(raw, externalIDColumns)),
	}

	if err := validate.Struct(row); err != nil {
		return nil, &RowError{Row: rec.Number, Reason: "missing title"}
	}

	return row, nil
}

// MapFields zips a header and a data row into a column-name to value map
func MapFields(header, fields []string) (map[string]string, error) {
	if len(header) != len(fields) {
		return nil, fmt.Errorf("%w (expected %d, got %d)", ErrColumnMismatch, len(header), len(fields))
	}

	raw := make(map[string]string, len(header))
	for i, name := range header {
		if _, exists := raw[name]; exists {
			continue
		}
		raw[name] = fields[i]
	}
	return raw, nil
}

// RawValues maps whatever fields a record has onto the header, for diagnostics.
// Unlike MapFields it never fails.
func (s *Sheet) RawValues(rec Record) map[string]string {
	raw := make(map[string]string, len(rec.Fields))
	for i, value := range rec.Fields {
		name := fmt.Sprintf("column_%d", i+1)
		if i < len(s.Header) && s.Header[i] != "" {
			name = s.Header[i]
		}
		if _, exists := raw[name]; !exists {
			raw[name] = value
		}
	}
	return raw
}

// firstPresent returns the value of the first alias present in the row, even if it is empty
func firstPresent(raw map[string]string, aliases []string) string {
	for _, alias := range aliases {
		if v, ok := raw[alias]; ok {
			return v
		}
	}
	return ""
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		out[i] = strings.ToLower(strings.TrimSpace(name))
	}
	if isBlank(out) {
		return nil
	}
	return out
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
