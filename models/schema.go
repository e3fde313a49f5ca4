package models

// ColumnDatetime is the optional combined timestamp column a template may
// declare. It is filled from the table index.
const ColumnDatetime = "Datetime"

// SchemaField is one column of a template schema.
type SchemaField struct {
	Name string
	Type ColumnType
}

// Schema is the column layout of a reference table. Only names and types
// are used; the template's rows are never read.
type Schema struct {
	Source string
	Fields []SchemaField
}

// Names returns the field names in schema order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}
