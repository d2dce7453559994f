package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Table is a header row plus records in header order.
type Table struct {
	Headers []string
	Rows    [][]string
}

// WriteCSV streams the table to w. Short rows are padded, long rows rejected.
func WriteCSV(w io.Writer, table Table) error {
	if len(table.Headers) == 0 {
		return fmt.Errorf("csv requires at least one header")
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(table.Headers); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(table.Headers))
	for i, row := range table.Rows {
		if len(row) > len(table.Headers) {
			return fmt.Errorf("row %d has %d columns, want %d", i, len(row), len(table.Headers))
		}
		n := copy(record, row)
		for j := n; j < len(record); j++ {
			record[j] = ""
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
