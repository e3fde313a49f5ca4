package writer

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/arrow"
	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/ipc"
	"github.com/apache/arrow/go/arrow/memory"

	"nfowide/models"
)

func arrowType(t models.ColumnType) arrow.DataType {
	switch t {
	case models.TypeFloat32:
		return arrow.PrimitiveTypes.Float32
	case models.TypeInt64:
		return arrow.PrimitiveTypes.Int64
	case models.TypeInt32:
		return arrow.PrimitiveTypes.Int32
	case models.TypeTimestamp:
		return &arrow.TimestampType{Unit: arrow.Nanosecond}
	case models.TypeString:
		return arrow.BinaryTypes.String
	default:
		return arrow.PrimitiveTypes.Float64
	}
}

// ArrowSchema describes table as an Arrow schema. Every column is nullable.
func ArrowSchema(table *models.WideTable) *arrow.Schema {
	fields := make([]arrow.Field, len(table.Columns))
	for i, c := range table.Columns {
		fields[i] = arrow.Field{Name: c.Key.Name, Type: arrowType(c.Type), Nullable: true}
	}
	md := arrow.NewMetadata([]string{"symbol", "trade_date"}, []string{table.Symbol, table.TradeDate.Format("2006-01-02")})
	return arrow.NewSchema(fields, &md)
}

// EncodeFeather serialises table as a Feather v2 file (Arrow IPC file
// format) holding a single record batch.
func EncodeFeather(table *models.WideTable) ([]byte, error) {
	mem := memory.NewGoAllocator()
	schema := ArrowSchema(table)

	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()

	for i, c := range table.Columns {
		if err := appendColumn(rb.Field(i), c); err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Key.Name, err)
		}
	}
	rec := rb.NewRecord()
	defer rec.Release()

	buf := &seekBuffer{}
	w, err := ipc.NewFileWriter(buf, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("create feather writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return nil, fmt.Errorf("write record batch: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize feather file: %w", err)
	}
	return buf.Bytes(), nil
}

// seekBuffer is an in-memory io.WriteSeeker for the Arrow file writer,
// which seeks to find its current offset.
type seekBuffer struct {
	data []byte
	pos  int64
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		if end > int64(cap(b.data)) {
			grown := make([]byte, end, 2*end)
			copy(grown, b.data)
			b.data = grown
		} else {
			b.data = b.data[:end]
		}
	}
	copy(b.data[b.pos:end], p)
	b.pos = end
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = b.pos + offset
	case io.SeekEnd:
		next = int64(len(b.data)) + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("seek: negative position %d", next)
	}
	b.pos = next
	return next, nil
}

func (b *seekBuffer) Bytes() []byte { return b.data }

func appendColumn(b array.Builder, c *models.Column) error {
	n := c.Len()
	switch fb := b.(type) {
	case *array.Float64Builder:
		for i := 0; i < n; i++ {
			if v, ok := c.Float(i); ok {
				fb.Append(v)
			} else {
				fb.AppendNull()
			}
		}
	case *array.Float32Builder:
		for i := 0; i < n; i++ {
			if v, ok := c.Float(i); ok {
				fb.Append(float32(v))
			} else {
				fb.AppendNull()
			}
		}
	case *array.Int64Builder:
		for i := 0; i < n; i++ {
			if v, ok := c.Float(i); ok {
				fb.Append(int64(v))
			} else {
				fb.AppendNull()
			}
		}
	case *array.Int32Builder:
		for i := 0; i < n; i++ {
			if v, ok := c.Float(i); ok {
				fb.Append(int32(v))
			} else {
				fb.AppendNull()
			}
		}
	case *array.TimestampBuilder:
		for _, ts := range c.Times {
			if ts.IsZero() {
				fb.AppendNull()
				continue
			}
			fb.Append(arrow.Timestamp(ts.UnixNano()))
		}
	case *array.StringBuilder:
		for _, s := range c.Text {
			fb.Append(s)
		}
	default:
		return fmt.Errorf("unsupported builder %T", b)
	}
	return nil
}
