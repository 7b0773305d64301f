package excel

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// WriteObservations stores outcomes as a single 0/1 column; the format follows the extension
func WriteObservations(path, column string, observations []bool) error {
	if column == "" {
		column = "outcome"
	}
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		return writeCSV(path, column, observations)
	}
	return writeXLSX(path, column, observations)
}

func writeCSV(path, column string, observations []bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{column}); err != nil {
		return err
	}
	for _, ok := range observations {
		if err := w.Write([]string{outcome(ok)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeXLSX(path, column string, observations []bool) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetCellValue(Sheet, "A1", column); err != nil {
		return err
	}
	for i, ok := range observations {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		v := 0
		if ok {
			v = 1
		}
		if err := f.SetCellValue(Sheet, cell, v); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func outcome(ok bool) string {
	if ok {
		return "1"
	}
	return "0"
}
