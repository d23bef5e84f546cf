// Package csvimport parses and validates uploaded CSV files, such as
// bank statement exports.
package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVParser reads a headered CSV file row by row, mapping each field to
// its column name. Input must be UTF-8; a leading BOM is stripped.
type CSVParser struct {
	trimSpace  bool
	headers    []string
	currentRow int
	reader     *csv.Reader
}

type parserOptions struct {
	delimiter  rune
	lazyQuotes bool
	trimSpace  bool
}

// ParserOption is a functional option for CSVParser configuration.
type ParserOption func(*parserOptions)

// WithDelimiter sets the field delimiter (default is comma).
func WithDelimiter(d rune) ParserOption {
	return func(o *parserOptions) { o.delimiter = d }
}

// WithLazyQuotes enables lazy quote handling.
func WithLazyQuotes(lazy bool) ParserOption {
	return func(o *parserOptions) { o.lazyQuotes = lazy }
}

// WithTrimSpace enables trimming of leading/trailing spaces from fields.
func WithTrimSpace(trim bool) ParserOption {
	return func(o *parserOptions) { o.trimSpace = trim }
}

// NewCSVParser creates a CSV parser over r. The input is sniffed up
// front: empty files and non-UTF-8 encodings are rejected before any
// row is read.
func NewCSVParser(r io.Reader, opts ...ParserOption) (*CSVParser, error) {
	options := parserOptions{
		delimiter:  ',',
		lazyQuotes: true,
		trimSpace:  true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	br := bufio.NewReader(r)
	if err := sniffEncoding(br); err != nil {
		return nil, err
	}

	reader := csv.NewReader(br)
	reader.Comma = options.delimiter
	reader.LazyQuotes = options.lazyQuotes
	reader.TrimLeadingSpace = options.trimSpace
	reader.FieldsPerRecord = -1 // bank exports pad rows inconsistently

	return &CSVParser{trimSpace: options.trimSpace, reader: reader}, nil
}

// ParseFromBytes creates a parser from a byte slice.
func ParseFromBytes(data []byte, opts ...ParserOption) (*CSVParser, error) {
	return NewCSVParser(bytes.NewReader(data), opts...)
}

// sniffEncoding discards a UTF-8 BOM and verifies the leading chunk of
// the file is valid UTF-8.
func sniffEncoding(br *bufio.Reader) error {
	head, err := br.Peek(len(utf8BOM))
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	const sniffSize = 4096
	content, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read file for encoding validation: %w", err)
	}
	switch {
	case len(content) == 0:
		return ErrEmptyFile
	case !utf8.Valid(content):
		return ErrInvalidEncoding
	}
	return nil
}

func (p *CSVParser) clean(s string) string {
	if p.trimSpace {
		return strings.TrimSpace(s)
	}
	return s
}

// ParseHeader reads and parses the header row.
func (p *CSVParser) ParseHeader() error {
	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if len(record) == 0 {
		return ErrMissingHeader
	}

	p.headers = make([]string, len(record))
	for i, h := range record {
		p.headers[i] = p.clean(h)
	}
	p.currentRow = 1 // header occupies line 1

	return nil
}

// Headers returns the parsed header names.
func (p *CSVParser) Headers() []string {
	return p.headers
}

// HasHeader checks if a header exists.
func (p *CSVParser) HasHeader(name string) bool {
	return slices.Contains(p.headers, name)
}

// ValidateHeaders returns the required headers that are absent from the file.
func (p *CSVParser) ValidateHeaders(required []string) []string {
	var missing []string
	for _, h := range required {
		if !p.HasHeader(h) {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row is a parsed CSV row with its data keyed by header name.
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the value for a column by header name.
func (r *Row) Get(header string) string {
	return r.Data[header]
}

// GetOrDefault returns the value for a column, or defaultVal if empty
// or absent.
func (r *Row) GetOrDefault(header, defaultVal string) string {
	if val := r.Get(header); val != "" {
		return val
	}
	return defaultVal
}

// IsEmpty returns true if the row has no non-empty values.
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadRow reads the next row. io.EOF signals the end of the file.
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	p.currentRow++
	if err != nil {
		return nil, fmt.Errorf("error reading row %d: %w", p.currentRow, err)
	}

	// Short rows simply leave their trailing columns out of the map;
	// Get returns "" for those either way.
	data := make(map[string]string, len(p.headers))
	for i, header := range p.headers {
		if i < len(record) {
			data[header] = p.clean(record[i])
		}
	}

	return &Row{LineNumber: p.currentRow, Data: data}, nil
}

// ReadAllRows reads all remaining rows, skipping completely empty ones.
func (p *CSVParser) ReadAllRows() ([]*Row, error) {
	var rows []*Row
	for {
		row, err := p.ReadRow()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		if !row.IsEmpty() {
			rows = append(rows, row)
		}
	}
}
