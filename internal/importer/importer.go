package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"foodyar/backend/internal/costing"
)

var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// MaxRows bounds the rows forwarded to the advisor.
const MaxRows = 2000

// ToCSV flattens the first sheet of an .xlsx workbook, or a .csv file, into
// CSV text. Blank rows are dropped.
func ToCSV(filename string, r io.Reader) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return xlsxToCSV(r)
	case ".csv":
		return normalizeCSV(r)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

func xlsxToCSV(r io.Reader) (string, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return "", errors.New("workbook has no sheets")
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return writeRows(rows)
}

func normalizeCSV(r io.Reader) (string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("read csv: %w", err)
	}
	return writeRows(rows)
}

func writeRows(rows [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	written := 0
	for _, row := range rows {
		if blank(row) {
			continue
		}
		if written == MaxRows {
			break
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
		written++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	if written == 0 {
		return "", errors.New("spreadsheet is empty")
	}
	return buf.String(), nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// CurrencyFactor converts prices quoted in currency into toman. Unknown
// currencies are treated as toman.
func CurrencyFactor(currency string) float64 {
	switch strings.ToLower(strings.TrimSpace(currency)) {
	case "rial", "irr":
		return 0.1
	default:
		return 1
	}
}

func ApplyCurrency(price float64, factor float64) float64 {
	return costing.Round(price * factor)
}
