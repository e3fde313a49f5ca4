package reader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow/go/arrow"
	"github.com/apache/arrow/go/arrow/ipc"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	preader "github.com/xitongsys/parquet-go/reader"

	"nfowide/logger"
	"nfowide/models"
)

// LoadTemplate reads the column layout of a reference table. Feather
// (Arrow IPC file) and Parquet files are supported; only the schema is
// read.
func LoadTemplate(path string) (*models.Schema, error) {
	var (
		schema *models.Schema
		err    error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".feather", ".arrow", ".ipc":
		schema, err = featherSchema(path)
	case ".parquet":
		schema, err = parquetSchema(path)
	default:
		return nil, fmt.Errorf("unsupported template format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	if len(schema.Fields) == 0 {
		return nil, fmt.Errorf("template %s has no columns", path)
	}

	logger.GetLogger().WithComponent("template_reader").WithFields(logger.Fields{
		"path":    path,
		"columns": len(schema.Fields),
	}).Info("loaded template schema")
	return schema, nil
}

// ArrowSchema opens a feather file and returns its Arrow schema.
func ArrowSchema(path string) (*arrow.Schema, error) {
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
	return r.Schema(), nil
}

func featherSchema(path string) (*models.Schema, error) {
	as, err := ArrowSchema(path)
	if err != nil {
		return nil, err
	}
	schema := &models.Schema{Source: path}
	for _, f := range as.Fields() {
		if isIndexColumn(f.Name) {
			continue
		}
		schema.Fields = append(schema.Fields, models.SchemaField{Name: f.Name, Type: fromArrow(f.Type)})
	}
	return schema, nil
}

func fromArrow(dt arrow.DataType) models.ColumnType {
	switch dt.ID() {
	case arrow.FLOAT32, arrow.FLOAT16:
		return models.TypeFloat32
	case arrow.INT64, arrow.UINT64, arrow.UINT32:
		return models.TypeInt64
	case arrow.INT32, arrow.INT16, arrow.INT8, arrow.UINT16, arrow.UINT8:
		return models.TypeInt32
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return models.TypeTimestamp
	case arrow.STRING, arrow.BINARY:
		return models.TypeString
	default:
		return models.TypeFloat64
	}
}

func parquetSchema(path string) (*models.Schema, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}
	defer fr.Close()

	pr, err := preader.NewParquetReader(fr, nil, 1)
	if err != nil {
		return nil, fmt.Errorf("read parquet file %s: %w", path, err)
	}
	defer pr.ReadStop()

	schema := &models.Schema{Source: path}
	// Element 0 is the root group.
	for i, el := range pr.SchemaHandler.SchemaElements {
		if i == 0 || el.Type == nil {
			continue
		}
		name := externalName(pr, i)
		if isIndexColumn(name) {
			continue
		}
		schema.Fields = append(schema.Fields, models.SchemaField{Name: name, Type: fromParquet(el)})
	}
	return schema, nil
}

// externalName returns the column name as stored in the file. The schema
// handler rewrites names that are not valid Go identifiers, so 2000CE_Close
// becomes PARGO_PREFIX_2000CE_Close there.
func externalName(pr *preader.ParquetReader, i int) string {
	if i < len(pr.SchemaHandler.Infos) && pr.SchemaHandler.Infos[i].ExName != "" {
		return pr.SchemaHandler.Infos[i].ExName
	}
	if pr.Footer != nil && i < len(pr.Footer.Schema) {
		return pr.Footer.Schema[i].GetName()
	}
	return pr.SchemaHandler.SchemaElements[i].GetName()
}

func fromParquet(el *parquet.SchemaElement) models.ColumnType {
	lt := el.GetLogicalType()
	switch el.GetType() {
	case parquet.Type_FLOAT:
		return models.TypeFloat32
	case parquet.Type_INT64:
		if (lt != nil && lt.IsSetTIMESTAMP()) || el.GetConvertedType() == parquet.ConvertedType_TIMESTAMP_MILLIS ||
			el.GetConvertedType() == parquet.ConvertedType_TIMESTAMP_MICROS {
			return models.TypeTimestamp
		}
		return models.TypeInt64
	case parquet.Type_INT32:
		if (lt != nil && lt.IsSetDATE()) || el.GetConvertedType() == parquet.ConvertedType_DATE {
			return models.TypeTimestamp
		}
		return models.TypeInt32
	case parquet.Type_INT96:
		return models.TypeTimestamp
	case parquet.Type_BYTE_ARRAY, parquet.Type_FIXED_LEN_BYTE_ARRAY:
		return models.TypeString
	default:
		return models.TypeFloat64
	}
}

// isIndexColumn reports pandas' stored index columns.
func isIndexColumn(name string) bool {
	return strings.HasPrefix(name, "__index_level_")
}
