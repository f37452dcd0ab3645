package excel

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"taskquest/domain/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleWindows() []metrics.AggregateWindow {
	day := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	return []metrics.AggregateWindow{
		{Start: day, End: day.AddDate(0, 0, 1), Count: 2, Sum: 150, Average: 75,
			Distribution: map[string]int{"complex": 1, "medium": 1}},
		{Start: day.AddDate(0, 0, 1), End: day.AddDate(0, 0, 2), Distribution: map[string]int{}},
	}
}

func TestDailyTable(t *testing.T) {
	table := DailyTable(sampleWindows(), nil)
	require.Len(t, table.Rows, 2)

	assert.Equal(t, "2026-02-02", table.Rows[0]["date"])
	assert.Equal(t, "2", table.Rows[0]["tasks_completed"])
	assert.Equal(t, "150", table.Rows[0]["xp_earned"])
	assert.Equal(t, "75.00", table.Rows[0]["average_xp"])
	assert.Equal(t, "complex", table.Rows[0]["top_category"], "ties resolve alphabetically")

	assert.Equal(t, "0", table.Rows[1]["tasks_completed"])
	assert.Equal(t, "0.00", table.Rows[1]["average_xp"])
	assert.Equal(t, "", table.Rows[1]["top_category"])
}

func TestWriteCSV_QuotesEmbeddedCommas(t *testing.T) {
	table := &Table{
		Headers: []string{"title", "xp"},
		Rows:    []RawRowData{{"title": `Email Ana, Bo and "Cy"`, "xp": "25"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))
	assert.Equal(t, "title,xp\n\"Email Ana, Bo and \"\"Cy\"\"\",25\n", buf.String())
}

func TestCSVRoundTripThroughReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteCSV(f, DailyTable(sampleWindows(), time.UTC)))
	require.NoError(t, f.Close())

	table, err := NewDataReader(path).ReadData()
	require.NoError(t, err)
	assert.Equal(t, DailyHeaders, table.Headers)

	xp, skipped, err := table.Floats("XP_EARNED")
	require.NoError(t, err)
	assert.Equal(t, []float64{150, 0}, xp)
	assert.Zero(t, skipped)
}

func TestWriteXLSX_StoresNumbers(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, DailyTable(sampleWindows(), time.UTC), ""))

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{DailySheet}, wb.GetSheetList())
	header, err := wb.GetCellValue(DailySheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "date", header)

	xp, err := wb.GetCellValue(DailySheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, "150", xp)

	typ, err := wb.GetCellType(DailySheet, "C2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
}

func TestReadData_XLSXFirstSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.xlsx")
	out, err := os.Create(path)
	require.NoError(t, err)
	table := &Table{
		Headers: []string{"user", "score"},
		Rows:    []RawRowData{{"user": "a", "score": "8.5"}, {"user": "b", "score": "n/a"}, {"user": "c", "score": "3"}},
	}
	require.NoError(t, WriteXLSX(out, table, "Scores"))
	require.NoError(t, out.Close())

	read, err := NewDataReader(path).ReadData()
	require.NoError(t, err)
	scores, skipped, err := read.Floats("score")
	require.NoError(t, err)
	assert.Equal(t, []float64{8.5, 3}, scores)
	assert.Equal(t, 1, skipped)

	_, _, err = read.Floats("missing")
	assert.Error(t, err)
}

func TestReadData_MissingFile(t *testing.T) {
	_, err := NewDataReader(filepath.Join(t.TempDir(), "nope.csv")).ReadData()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not found"))
}
