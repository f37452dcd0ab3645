package excel

// RawRowData represents one row as header → cell text
type RawRowData map[string]string

// Table is a header row plus data rows, the shape both CSV and XLSX files share
type Table struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}

// Records returns the rows as ordered string slices following Headers
func (t *Table) Records() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		record := make([]string, len(t.Headers))
		for j, h := range t.Headers {
			record[j] = row[h]
		}
		out[i] = record
	}
	return out
}
