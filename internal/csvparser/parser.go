// =============================================================================
// Store Sale Reconciliation - CSV Parser Module
// =============================================================================
//
// This module reads the delimited extracts delivered by the processors and the
// ledger export. It handles:
//   - Different delimiters (comma, tab, pipe, semicolon)
//   - A header row that is not the first line (title lines above it)
//   - Legacy encodings (ISO-8859-1, Windows-1252)
//   - Ragged rows and stray quotes
//
// The result is a types.Table; the parser knows nothing about sources.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/config"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/types"
)

// ErrNoHeader is returned when the file ends before the header row.
var ErrNoHeader = errors.New("file ends before the header row")

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a delimited file and returns the parsed table.
//
// PARAMETERS:
//   - filePath: The path to the file.
//   - settings: The CSV settings of the source.
//
// RETURNS:
//   - A pointer to the parsed Table.
//   - An error if the file cannot be opened, decoded or read.
func Parse(filePath string, settings config.CSVSettings) (*types.Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	table, err := Read(file, settings)
	if err != nil {
		return nil, err
	}
	table.SourceFile = filePath
	return table, nil
}

// Read parses delimited data from r.
//
// PARSING PROCESS:
//   1. Decode the byte stream to UTF-8
//   2. Skip the lines above the header row
//   3. Clean the header row
//   4. Convert each non-empty data row to a map of header -> value
func Read(r io.Reader, settings config.CSVSettings) (*types.Table, error) {
	decoder, err := Decoder(settings.Encoding)
	if err != nil {
		return nil, err
	}

	var reader io.Reader = bufio.NewReader(r)
	if decoder != nil {
		reader = transform.NewReader(reader, decoder.NewDecoder())
	}

	csvReader := csv.NewReader(reader)
	configureReader(csvReader, settings)

	headerRow := settings.HeaderRow
	if headerRow < 1 {
		headerRow = 1
	}

	// Lines above the header are titles or report metadata.
	var headers []string
	for i := 1; i <= headerRow; i++ {
		record, err := csvReader.Read()
		if err == io.EOF {
			return nil, ErrNoHeader
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV header: %w", err)
		}
		if i == headerRow {
			headers = cleanHeaders(record)
		}
	}

	table := &types.Table{Headers: headers}

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		if isRowEmpty(record) {
			continue
		}

		line, _ := csvReader.FieldPos(0)
		table.Rows = append(table.Rows, types.Row{
			Number: line,
			Fields: rowFields(headers, record),
		})
	}

	return table, nil
}

// Decoder returns the text encoding for a configured encoding name.
// It returns nil for UTF-8, which needs no decoding.
func Decoder(name string) (encoding.Encoding, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "UTF-8", "UTF8":
		return nil, nil
	case "ISO-8859-1", "ISO8859-1", "LATIN1", "LATIN-1":
		return charmap.ISO8859_1, nil
	case "WINDOWS-1252", "CP1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	reader.Comma = Delimiter(settings.Delimiter)

	// Processor exports are not strict CSV.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	// Trimming would swallow empty fields between tabs.
	reader.TrimLeadingSpace = !unicode.IsSpace(reader.Comma)
}

// Delimiter resolves a configured delimiter or one of its aliases.
func Delimiter(value string) rune {
	switch value {
	case "\t", "\\t", "tab", "TAB":
		return '\t'
	case "|", "pipe", "PIPE":
		return '|'
	case ";", "semicolon":
		return ';'
	case "", ",", "comma":
		return ','
	default:
		return []rune(value)[0]
	}
}

// cleanHeaders trims headers and names blank ones by position.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))

	for i, header := range headers {
		if i == 0 {
			header = strings.TrimPrefix(header, "\ufeff")
		}
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}

	return cleaned
}

// rowFields maps a record onto the headers. Missing trailing cells are blank.
func rowFields(headers, record []string) map[string]string {
	fields := make(map[string]string, len(headers))
	for i, header := range headers {
		if i < len(record) {
			fields[header] = strings.TrimSpace(record[i])
		} else {
			fields[header] = ""
		}
	}
	return fields
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
