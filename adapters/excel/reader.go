package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gocalib/domain/core"
	"gocalib/internal"

	"github.com/xuri/excelize/v2"
)

// Sheet is the worksheet read from and written to in workbooks
const Sheet = "Sheet1"

// Table is a header row plus the raw string cells below it
type Table struct {
	Headers []string
	Rows    [][]string
}

// ObservationReader reads a column of binary outcomes from a CSV or XLSX file
type ObservationReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewObservationReader picks the format from the file extension; anything but .csv is read as a workbook
func NewObservationReader(filePath string) *ObservationReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &ObservationReader{filePath: filePath, fileType: fileType, logger: internal.DefaultLogger}
}

// WithLogger replaces the reader's logger
func (r *ObservationReader) WithLogger(logger *internal.Logger) *ObservationReader {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// ReadObservations parses the named column, or the first column when column is empty.
// Blank cells are skipped.
func (r *ObservationReader) ReadObservations(column string) ([]bool, error) {
	table, err := r.ReadTable()
	if err != nil {
		return nil, err
	}

	idx, err := table.columnIndex(column)
	if err != nil {
		return nil, err
	}

	observations := make([]bool, 0, len(table.Rows))
	for i, row := range table.Rows {
		if idx >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[idx])
		if cell == "" {
			continue
		}
		v, err := ParseOutcome(cell)
		if err != nil {
			// +2: one for the header, one for 1-based rows
			return nil, core.NewValidationError(table.Headers[idx], fmt.Sprintf("row %d: %v", i+2, err))
		}
		observations = append(observations, v)
	}

	if len(observations) == 0 {
		return nil, core.ErrEmptyObservations
	}

	r.logger.Debug("read %d observations from column %q of %s", len(observations), table.Headers[idx], r.filePath)
	return observations, nil
}

// ReadTable reads the raw header and rows
func (r *ObservationReader) ReadTable() (*Table, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, core.NewValidationError("file", fmt.Sprintf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath))
	}

	var (
		rows [][]string
		err  error
	)
	start := time.Now()
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	default:
		rows, err = r.readExcelRows()
	}
	if err != nil {
		return nil, err
	}
	r.logger.Debug("%s file read in %.2fms (%d rows)", strings.ToUpper(r.fileType), float64(time.Since(start).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, core.NewValidationError("file", fmt.Sprintf("%s file must have a header row and at least one data row", strings.ToUpper(r.fileType)))
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	return &Table{Headers: headers, Rows: rows[1:]}, nil
}

func (r *ObservationReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(Sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", Sheet, err)
	}
	return rows, nil
}

func (r *ObservationReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

func (t *Table) columnIndex(column string) (int, error) {
	if len(t.Headers) == 0 {
		return 0, core.NewValidationError("file", "header row is empty")
	}
	if column == "" {
		return 0, nil
	}
	for i, h := range t.Headers {
		if strings.EqualFold(h, strings.TrimSpace(column)) {
			return i, nil
		}
	}
	return 0, core.NewValidationError("column", fmt.Sprintf("%q not found, have %v", column, t.Headers))
}

// ParseOutcome accepts true/false, 1/0, yes/no, t/f and y/n in any case
func ParseOutcome(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y":
		return true, nil
	case "0", "false", "f", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a binary outcome", s)
}
