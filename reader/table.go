package reader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/ipc"
	"github.com/xitongsys/parquet-go-source/local"
	preader "github.com/xitongsys/parquet-go/reader"

	"nfowide/models"
)

// ReadTable loads a feather or parquet wide table written by this module
// (or any flat table using the same column types) back into memory.
func ReadTable(path string) (*models.WideTable, error) {
	var (
		table *models.WideTable
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".feather", ".arrow", ".ipc":
		table, err = readFeather(path)
	case ".parquet":
		table, err = readParquet(path)
	default:
		return nil, fmt.Errorf("unsupported table format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	rebuildIndex(table)
	return table, nil
}

// rebuildIndex restores the row timestamps from a Datetime column, or from
// Date plus Time when the table has no Datetime column.
func rebuildIndex(table *models.WideTable) {
	if dt, ok := table.Column(models.ColumnDatetime); ok && dt.Type == models.TypeTimestamp {
		table.Index = append([]time.Time(nil), dt.Times...)
		return
	}
	date, okDate := table.Column(models.ColumnDate)
	clock, okTime := table.Column(models.ColumnTime)
	if !okDate || !okTime || date.Type != models.TypeTimestamp || clock.Type != models.TypeString {
		return
	}
	n := len(date.Times)
	if len(clock.Text) < n {
		n = len(clock.Text)
	}
	index := make([]time.Time, n)
	for i := 0; i < n; i++ {
		t, err := time.Parse(models.TimeLayout, clock.Text[i])
		if err != nil {
			return
		}
		d := date.Times[i]
		index[i] = time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	}
	table.Index = index
	if table.TradeDate.IsZero() && n > 0 {
		table.TradeDate = date.Times[0]
	}
}

func readFeather(path string) (*models.WideTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feather file: %w", err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f)
	if err != nil {
		return nil, fmt.Errorf("read feather file %s: %w", path, err)
	}
	defer r.Close()

	schema := r.Schema()
	table := &models.WideTable{Columns: make([]*models.Column, len(schema.Fields()))}
	for i, fd := range schema.Fields() {
		table.Columns[i] = &models.Column{Key: keyFor(fd.Name), Type: fromArrow(fd.Type)}
	}
	if md := schema.Metadata(); md.Len() > 0 {
		if i := md.FindKey("symbol"); i >= 0 {
			table.Symbol = md.Values()[i]
		}
		if i := md.FindKey("trade_date"); i >= 0 {
			table.TradeDate, _ = time.Parse("2006-01-02", md.Values()[i])
		}
	}

	for b := 0; b < r.NumRecords(); b++ {
		rec, err := r.Record(b)
		if err != nil {
			return nil, fmt.Errorf("read record batch %d: %w", b, err)
		}
		for i, col := range table.Columns {
			appendArrow(col, rec.Column(i))
		}
	}
	return table, nil
}

func appendArrow(col *models.Column, arr array.Interface) {
	for k := 0; k < arr.Len(); k++ {
		null := arr.IsNull(k)
		switch a := arr.(type) {
		case *array.Timestamp:
			var ts time.Time
			if !null {
				ts = time.Unix(0, int64(a.Value(k))).UTC()
			}
			col.Times = append(col.Times, ts)
		case *array.Date32:
			var ts time.Time
			if !null {
				ts = time.Unix(int64(a.Value(k))*86400, 0).UTC()
			}
			col.Times = append(col.Times, ts)
		case *array.String:
			col.Text = append(col.Text, a.Value(k))
		default:
			v, ok := arrowFloat(arr, k)
			col.Values = append(col.Values, v)
			col.Valid = append(col.Valid, ok && !null)
		}
	}
}

func arrowFloat(arr array.Interface, k int) (float64, bool) {
	switch a := arr.(type) {
	case *array.Float64:
		return a.Value(k), true
	case *array.Float32:
		return float64(a.Value(k)), true
	case *array.Int64:
		return float64(a.Value(k)), true
	case *array.Int32:
		return float64(a.Value(k)), true
	}
	return 0, false
}

func readParquet(path string) (*models.WideTable, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}
	defer fr.Close()

	pr, err := preader.NewParquetColumnReader(fr, 1)
	if err != nil {
		return nil, fmt.Errorf("read parquet file %s: %w", path, err)
	}
	defer pr.ReadStop()

	n := pr.GetNumRows()
	table := &models.WideTable{}
	leaf := int64(0)
	for i, el := range pr.SchemaHandler.SchemaElements {
		if i == 0 || el.Type == nil {
			continue
		}
		name := externalName(pr, i)
		values, _, _, err := pr.ReadColumnByIndex(leaf, n)
		leaf++
		if err != nil {
			return nil, fmt.Errorf("read column %s: %w", name, err)
		}
		col := &models.Column{Key: keyFor(name), Type: fromParquet(el)}
		for _, v := range values {
			appendParquet(col, v)
		}
		table.Columns = append(table.Columns, col)
	}
	return table, nil
}

func appendParquet(col *models.Column, v interface{}) {
	switch col.Type {
	case models.TypeTimestamp:
		var ts time.Time
		switch x := v.(type) {
		case int64:
			ts = time.UnixMilli(x).UTC()
		case int32:
			ts = time.Unix(int64(x)*86400, 0).UTC()
		}
		col.Times = append(col.Times, ts)
	case models.TypeString:
		s, _ := v.(string)
		col.Text = append(col.Text, s)
	default:
		var f float64
		ok := true
		switch x := v.(type) {
		case float64:
			f = x
		case float32:
			f = float64(x)
		case int64:
			f = float64(x)
		case int32:
			f = float64(x)
		default:
			ok = false
		}
		col.Values = append(col.Values, f)
		col.Valid = append(col.Valid, ok)
	}
}

// keyFor tags the metadata columns so callers can tell them apart.
func keyFor(name string) models.ColumnKey {
	for _, m := range models.MetadataColumns {
		if m == name {
			return models.ColumnKey{Name: name, Meta: true}
		}
	}
	if name == models.ColumnDatetime {
		return models.ColumnKey{Name: name, Meta: true}
	}
	return models.ColumnKey{Name: name}
}
