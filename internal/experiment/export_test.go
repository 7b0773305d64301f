package experiment

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRecords() []TrialRecord {
	return []TrialRecord{
		{Size: 2, TrueProbability: 0.3, EMV: 0.5, Calibrated: 0.5, LowerBound: 0.0943, UpperBound: 0.9057, Confidence: 0.95, PriorLabel: "Jeffreys"},
		{Size: 100, TrueProbability: 0.3, EMV: 0.28, Calibrated: 0.2822, LowerBound: 0.2, UpperBound: 0.37, Confidence: 0.95, PriorLabel: "Jeffreys"},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteTrialsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trials.csv")
	require.NoError(t, WriteTrialsCSV(path, sampleRecords()))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, trialHeaders, rows[0])
	assert.Equal(t, []string{"2", "0.3000", "0.500000", "0.500000", "0.094300", "0.905700", "0.9500", "Jeffreys"}, rows[1])
	assert.Equal(t, "100", rows[2][0])
}

func TestEncodeTrialsCSVMatchesFile(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeTrialsCSV(&buf, sampleRecords()))

	path := filepath.Join(t.TempDir(), "trials.csv")
	require.NoError(t, WriteTrialsCSV(path, sampleRecords()))
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(onDisk), buf.String())
}

func TestWriteConvergenceCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "convergence.csv")
	points := []ConvergencePoint{{Size: 1, EMV: 1, Calibrated: 0.75, Gap: 0.25}}
	require.NoError(t, WriteConvergenceCSV(path, points))

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, convergenceHeaders, rows[0])
	assert.Equal(t, []string{"1", "1.000000", "0.750000", "0.250000"}, rows[1])
}

func TestWriteTrialsXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trials.xlsx")
	require.NoError(t, WriteTrialsXLSX(path, sampleRecords()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, trialHeaders, rows[0])
	assert.Equal(t, "100", rows[2][0])
	assert.Equal(t, "Jeffreys", rows[2][7])
}

func TestWriteTrialsCSVBadPath(t *testing.T) {
	err := WriteTrialsCSV(filepath.Join(t.TempDir(), "missing", "trials.csv"), sampleRecords())
	assert.Error(t, err)
}

func TestWriteCSVReportsFileErrors(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, WriteConvergenceCSV(dir, []ConvergencePoint{{Size: 1}}))

	path := filepath.Join(dir, "convergence.csv")
	require.NoError(t, WriteConvergenceCSV(path, []ConvergencePoint{{Size: 1, EMV: 1, Calibrated: 0.75, Gap: 0.25}}))
	assert.Len(t, readCSV(t, path), 2)
}

func TestWriteConvergenceXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "convergence.xlsx")
	require.NoError(t, WriteConvergenceXLSX(path, []ConvergencePoint{{Size: 1, EMV: 1, Calibrated: 0.75, Gap: 0.25}}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, convergenceHeaders, rows[0])
	assert.Equal(t, []string{"1", "1", "0.75", "0.25"}, rows[1])
}
