package writer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"nfowide/models"
)

// memoryFile is a write-only source.ParquetFile backed by a buffer.
type memoryFile struct {
	buf *bytes.Buffer
}

func newMemoryFile() *memoryFile {
	return &memoryFile{buf: &bytes.Buffer{}}
}

func (m *memoryFile) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memoryFile) Open(string) (source.ParquetFile, error)   { return m, nil }

// Seek only reports the write position; the parquet writer never seeks back.
func (m *memoryFile) Seek(int64, int) (int64, error) { return int64(m.buf.Len()), nil }
func (m *memoryFile) Read(b []byte) (int, error)      { return m.buf.Read(b) }
func (m *memoryFile) Write(b []byte) (int, error)     { return m.buf.Write(b) }
func (m *memoryFile) Close() error                    { return nil }
func (m *memoryFile) Bytes() []byte                   { return m.buf.Bytes() }

func parquetTag(c *models.Column) string {
	var typ string
	switch c.Type {
	case models.TypeFloat32:
		typ = "type=FLOAT"
	case models.TypeInt64:
		typ = "type=INT64"
	case models.TypeInt32:
		typ = "type=INT32"
	case models.TypeTimestamp:
		typ = "type=INT64, convertedtype=TIMESTAMP_MILLIS"
	case models.TypeString:
		typ = "type=BYTE_ARRAY, convertedtype=UTF8"
	default:
		typ = "type=DOUBLE"
	}
	return fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", c.Key.Name, typ)
}

func compressionCodec(name string) parquet.CompressionCodec {
	switch strings.ToLower(name) {
	case "snappy":
		return parquet.CompressionCodec_SNAPPY
	case "gzip":
		return parquet.CompressionCodec_GZIP
	case "zstd":
		return parquet.CompressionCodec_ZSTD
	default:
		return parquet.CompressionCodec_UNCOMPRESSED
	}
}

// EncodeParquet serialises table as a Parquet file. Absent cells are
// written as nulls.
func EncodeParquet(table *models.WideTable, compression string) ([]byte, error) {
	md := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		md[i] = parquetTag(c)
	}

	fw := newMemoryFile()
	pw, err := writer.NewCSVWriter(md, fw, 1)
	if err != nil {
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = compressionCodec(compression)

	for r := 0; r < table.NumRows(); r++ {
		rec := make([]interface{}, len(table.Columns))
		for i, c := range table.Columns {
			rec[i] = parquetValue(c, r)
		}
		if err := pw.Write(rec); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("write parquet row %d: %w", r, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalize parquet file: %w", err)
	}
	return fw.Bytes(), nil
}

func parquetValue(c *models.Column, r int) interface{} {
	switch c.Type {
	case models.TypeTimestamp:
		if c.Times[r].IsZero() {
			return nil
		}
		return c.Times[r].UnixMilli()
	case models.TypeString:
		return c.Text[r]
	}

	v, ok := c.Float(r)
	if !ok {
		return nil
	}
	switch c.Type {
	case models.TypeFloat32:
		return float32(v)
	case models.TypeInt64:
		return int64(v)
	case models.TypeInt32:
		return int32(v)
	default:
		return v
	}
}
