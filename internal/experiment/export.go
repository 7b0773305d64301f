package experiment

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"
)

var trialHeaders = []string{"size", "true_probability", "emv", "calibrated", "lower_bound", "upper_bound", "confidence", "prior"}

var convergenceHeaders = []string{"size", "emv", "calibrated", "gap"}

func trialRows(records []TrialRecord) [][]string {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			strconv.Itoa(r.Size),
			fToStr(r.TrueProbability, 4),
			fToStr(r.EMV, 6),
			fToStr(r.Calibrated, 6),
			fToStr(r.LowerBound, 6),
			fToStr(r.UpperBound, 6),
			fToStr(r.Confidence, 4),
			r.PriorLabel,
		}
	}
	return rows
}

func convergenceRows(points []ConvergencePoint) [][]string {
	rows := make([][]string, len(points))
	for i, p := range points {
		rows[i] = []string{
			strconv.Itoa(p.Size),
			fToStr(p.EMV, 6),
			fToStr(p.Calibrated, 6),
			fToStr(p.Gap, 6),
		}
	}
	return rows
}

// WriteTrialsCSV writes one row per trial record
func WriteTrialsCSV(path string, records []TrialRecord) error {
	return writeCSVFile(path, trialHeaders, trialRows(records))
}

// WriteConvergenceCSV writes one row per sample size of a convergence sweep
func WriteConvergenceCSV(path string, points []ConvergencePoint) error {
	return writeCSVFile(path, convergenceHeaders, convergenceRows(points))
}

// EncodeTrialsCSV streams trial records as CSV to w
func EncodeTrialsCSV(w io.Writer, records []TrialRecord) error {
	return encodeCSV(w, trialHeaders, trialRows(records))
}

func writeCSVFile(path string, headers []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := encodeCSV(f, headers, rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func encodeCSV(out io.Writer, headers []string, rows [][]string) error {
	w := csv.NewWriter(out)
	if err := w.Write(headers); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteTrialsXLSX writes the trial records to Sheet1 of a new workbook
func WriteTrialsXLSX(path string, records []TrialRecord) error {
	rows := make([][]interface{}, len(records))
	for i, rec := range records {
		rows[i] = []interface{}{
			rec.Size, rec.TrueProbability, rec.EMV, rec.Calibrated,
			rec.LowerBound, rec.UpperBound, rec.Confidence, rec.PriorLabel,
		}
	}
	return writeXLSXFile(path, trialHeaders, rows)
}

// WriteConvergenceXLSX writes a convergence sweep to Sheet1 of a new workbook
func WriteConvergenceXLSX(path string, points []ConvergencePoint) error {
	rows := make([][]interface{}, len(points))
	for i, p := range points {
		rows[i] = []interface{}{p.Size, p.EMV, p.Calibrated, p.Gap}
	}
	return writeXLSXFile(path, convergenceHeaders, rows)
}

// Numeric cells stay numeric so the sheet can be charted directly
func writeXLSXFile(path string, headers []string, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		idx, err := f.NewSheet(sheet)
		if err != nil {
			return err
		}
		f.SetActiveSheet(idx)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for r, values := range rows {
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	return f.SaveAs(path)
}

func fToStr(x float64, decimals int) string {
	p := math.Pow10(decimals)
	x = math.Round(x*p) / p
	return strconv.FormatFloat(x, 'f', decimals, 64)
}
