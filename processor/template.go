package processor

import (
	"math"
	"time"

	"nfowide/models"
)

// Finalize puts the table columns into their canonical order.
func Finalize(table *models.WideTable) {
	keys := make([]models.ColumnKey, len(table.Columns))
	byName := make(map[string]*models.Column, len(table.Columns))
	for i, c := range table.Columns {
		keys[i] = c.Key
		byName[c.Key.Name] = c
	}
	SortColumns(keys)
	for i, k := range keys {
		table.Columns[i] = byName[k.Name]
	}
}

// TemplateStats reports how a table was fitted to a template.
type TemplateStats struct {
	Kept        int
	Dropped     int
	Filled      int
	CastSkipped int
}

// ApplyTemplate reshapes table to the template's column order. Columns
// absent from the template are dropped. Template columns the pivot did not
// produce are skipped, or added as all-absent columns when fillMissing is
// set. Each kept numeric column is narrowed to the template type when that
// loses nothing; otherwise it keeps float64.
func ApplyTemplate(table *models.WideTable, template *models.Schema, fillMissing bool) TemplateStats {
	var stats TemplateStats
	n := table.NumRows()

	byName := make(map[string]*models.Column, len(table.Columns))
	for _, c := range table.Columns {
		byName[c.Key.Name] = c
	}

	out := make([]*models.Column, 0, len(template.Fields))
	used := make(map[string]struct{}, len(template.Fields))
	for _, f := range template.Fields {
		name := f.Name
		if _, ok := byName[name]; !ok {
			name = ParseColumnKey(name).Name
		}
		if _, dup := used[name]; dup {
			continue
		}

		col, ok := byName[name]
		switch {
		case ok:
			if !castColumn(col, f.Type) {
				stats.CastSkipped++
			}
			stats.Kept++
		case name == models.ColumnDatetime:
			col = &models.Column{
				Key:   models.ColumnKey{Name: name, Meta: true},
				Type:  models.TypeTimestamp,
				Times: append([]time.Time(nil), table.Index...),
			}
			stats.Kept++
		case fillMissing && f.Type.Numeric():
			col = models.NewNumericColumn(ParseColumnKey(name), n)
			col.Type = f.Type
			stats.Filled++
		default:
			continue
		}
		used[name] = struct{}{}
		out = append(out, col)
	}

	for _, c := range table.Columns {
		if _, ok := used[c.Key.Name]; !ok {
			stats.Dropped++
		}
	}
	table.Columns = out
	return stats
}

// castColumn changes col to the target type when every present value is
// representable in it. It reports false when the cast was skipped.
func castColumn(col *models.Column, target models.ColumnType) bool {
	if col.Type == target {
		return true
	}
	if !col.Type.Numeric() || !target.Numeric() {
		return false
	}
	for i, v := range col.Values {
		if col.Valid[i] && !representable(v, target) {
			return false
		}
	}
	col.Type = target
	return true
}

func representable(v float64, t models.ColumnType) bool {
	switch t {
	case models.TypeFloat64:
		return true
	case models.TypeFloat32:
		return math.IsInf(v, 0) || float64(float32(v)) == v
	case models.TypeInt64:
		return v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64
	case models.TypeInt32:
		return v == math.Trunc(v) && v >= math.MinInt32 && v <= math.MaxInt32
	}
	return false
}
