package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"taskquest/domain/metrics"

	"github.com/xuri/excelize/v2"
)

// DailySheet is the sheet name used for exported daily reports
const DailySheet = "Daily"

// DailyHeaders are the columns of an exported daily report
var DailyHeaders = []string{"date", "tasks_completed", "xp_earned", "average_xp", "top_category"}

// DailyTable turns aggregate windows into an exportable table, one row per window
func DailyTable(windows []metrics.AggregateWindow, loc *time.Location) *Table {
	if loc == nil {
		loc = time.UTC
	}
	t := &Table{Headers: DailyHeaders}
	for _, w := range windows {
		t.Rows = append(t.Rows, RawRowData{
			"date":            w.Start.In(loc).Format("2006-01-02"),
			"tasks_completed": strconv.Itoa(w.Count),
			"xp_earned":       strconv.FormatFloat(w.Sum, 'f', -1, 64),
			"average_xp":      strconv.FormatFloat(w.Average, 'f', 2, 64),
			"top_category":    topCategory(w.Distribution),
		})
	}
	return t
}

// topCategory picks the most frequent key, alphabetically first on ties
func topCategory(dist map[string]int) string {
	best, bestN := "", 0
	for k, n := range dist {
		if n > bestN || (n == bestN && n > 0 && k < best) {
			best, bestN = k, n
		}
	}
	return best
}

// WriteCSV writes the table with a header row. Cells containing commas, quotes or newlines are quoted.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

// WriteXLSX writes the table as a single-sheet workbook. Numeric cells are stored as numbers.
func WriteXLSX(w io.Writer, t *Table, sheet string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = DailySheet
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, record := range t.Records() {
		cells := make([]interface{}, len(record))
		for j, v := range record {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				cells[j] = n
			} else {
				cells[j] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
