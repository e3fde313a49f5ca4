package writer

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"nfowide/models"
)

// WriteCSV writes table as CSV with a header row and no index column.
// Absent cells are left empty.
func WriteCSV(w io.Writer, table *models.WideTable) error {
	cw := gocsv.DefaultCSVWriter(w)

	if err := cw.Write(table.ColumnNames()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	n := 0
	for _, c := range table.Columns {
		if c.Len() > n {
			n = c.Len()
		}
	}

	rec := make([]string, len(table.Columns))
	for r := 0; r < n; r++ {
		for i, c := range table.Columns {
			rec[i] = csvCell(c, r)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", r, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvCell(c *models.Column, r int) string {
	if r >= c.Len() {
		return ""
	}
	switch c.Type {
	case models.TypeTimestamp:
		ts := c.Times[r]
		if ts.IsZero() {
			return ""
		}
		if ts.Equal(ts.Truncate(24 * time.Hour)) {
			return ts.Format("2006-01-02")
		}
		return ts.Format("2006-01-02 15:04:05")
	case models.TypeString:
		return c.Text[r]
	}

	v, ok := c.Float(r)
	if !ok {
		return ""
	}
	switch c.Type {
	case models.TypeInt64, models.TypeInt32:
		return strconv.FormatInt(int64(v), 10)
	case models.TypeFloat32:
		return strconv.FormatFloat(v, 'f', -1, 32)
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}
