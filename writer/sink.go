package writer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/time/rate"

	appconfig "nfowide/config"
	"nfowide/internal/metadata"
	"nfowide/internal/metrics"
	"nfowide/logger"
	"nfowide/models"
)

// ObjectPutter is the part of the S3 client the sink uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Sink encodes wide tables, writes them under the output directory and,
// when enabled, uploads them to S3. It is safe for concurrent use.
type Sink struct {
	format      string
	compression string
	outputDir   string
	version     string

	s3Cfg    appconfig.S3Config
	s3Client ObjectPutter
	limiter  *rate.Limiter

	catalog *metadata.Catalog
	log     *logger.Log

	tablesWritten int64
	bytesWritten  int64
	uploads       int64
	errorsCount   int64
}

// NewSink builds a sink from cfg. The S3 client is only created when S3
// storage is enabled. catalog may be nil.
func NewSink(ctx context.Context, cfg *appconfig.Config, catalog *metadata.Catalog) (*Sink, error) {
	s := &Sink{
		format:      cfg.Writer.Format,
		compression: cfg.Writer.Compression,
		outputDir:   cfg.Writer.OutputDir,
		version:     cfg.Nfowide.Version,
		s3Cfg:       cfg.Storage.S3,
		catalog:     catalog,
		log:         logger.GetLogger(),
	}

	if s.outputDir == "" {
		dir, err := os.MkdirTemp("", "nfowide")
		if err != nil {
			return nil, fmt.Errorf("create staging dir: %w", err)
		}
		s.outputDir = dir
	}
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", s.outputDir, err)
	}

	if cfg.Storage.S3.Enabled {
		client, err := newS3Client(ctx, cfg.Storage.S3)
		if err != nil {
			return nil, err
		}
		s.s3Client = client
		s.limiter = newLimiter(cfg.Storage.S3.UploadsPerSecond)
	}

	s.log.WithComponent("sink").WithFields(logger.Fields{
		"format":      s.format,
		"compression": s.compression,
		"output_dir":  s.outputDir,
		"s3_enabled":  cfg.Storage.S3.Enabled,
		"bucket":      cfg.Storage.S3.Bucket,
	}).Info("sink initialized")
	return s, nil
}

// WithS3Client swaps the uploader, mainly for tests.
func (s *Sink) WithS3Client(client ObjectPutter, uploadsPerSecond float64) *Sink {
	s.s3Client = client
	s.limiter = newLimiter(uploadsPerSecond)
	return s
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

func newS3Client(ctx context.Context, sc appconfig.S3Config) (*s3.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(sc.Region)}
	if sc.AccessKeyID != "" && sc.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(sc.AccessKeyID, sc.SecretAccessKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if sc.Endpoint != "" {
			o.BaseEndpoint = aws.String(sc.Endpoint)
		}
		o.UsePathStyle = sc.PathStyle
	}), nil
}

// Extension returns the file extension of the configured format.
func (s *Sink) Extension() string {
	if s.format == appconfig.FormatParquet {
		return ".parquet"
	}
	return ".feather"
}

// Encode serialises table in the configured format.
func (s *Sink) Encode(table *models.WideTable) ([]byte, error) {
	if s.format == appconfig.FormatParquet {
		return EncodeParquet(table, s.compression)
	}
	return EncodeFeather(table)
}

// Persist encodes table and stores it as {symbol}_{date}.{ext}.
func (s *Sink) Persist(ctx context.Context, table *models.WideTable) error {
	start := time.Now()
	log := s.log.WithComponent("sink").WithSymbol(table.Symbol)

	data, err := s.Encode(table)
	if err != nil {
		atomic.AddInt64(&s.errorsCount, 1)
		return fmt.Errorf("encode %s: %w", s.format, err)
	}

	name := table.Name() + s.Extension()
	localPath := filepath.Join(s.outputDir, name)
	if err := writeFileAtomic(localPath, data); err != nil {
		atomic.AddInt64(&s.errorsCount, 1)
		return err
	}
	location := localPath

	if s.s3Client != nil {
		key := s.objectKey(table, name)
		if err := s.upload(ctx, key, data); err != nil {
			atomic.AddInt64(&s.errorsCount, 1)
			return err
		}
		location = fmt.Sprintf("s3://%s/%s", s.s3Cfg.Bucket, key)
	}

	size := int64(len(data))
	atomic.AddInt64(&s.tablesWritten, 1)
	atomic.AddInt64(&s.bytesWritten, size)
	logger.IncrementTablesWritten(size)
	metrics.IncrementTableWritten(s.format, size)

	if s.catalog != nil {
		s.catalog.AddFile(metadata.DataFile{
			Path:        location,
			Format:      s.format,
			FileSize:    size,
			RecordCount: int64(table.NumRows()),
			ColumnCount: len(table.Columns),
			Partition: map[string]any{
				"symbol": table.Symbol,
				"date":   table.TradeDate.Format("2006-01-02"),
			},
		})
	}

	logger.LogPerformanceEntry(log, "sink", "persist_table", time.Since(start), logger.Fields{
		"path":      location,
		"file_size": size,
		"rows":      table.NumRows(),
		"columns":   len(table.Columns),
	})
	return nil
}

// objectKey places a table under <prefix>/date=YYYY-MM-DD/.
func (s *Sink) objectKey(table *models.WideTable, name string) string {
	parts := []string{}
	if p := strings.Trim(s.s3Cfg.Prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, "date="+table.TradeDate.Format("2006-01-02"), name)
	return path.Join(parts...)
}

func (s *Sink) upload(ctx context.Context, key string, data []byte) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for upload slot: %w", err)
	}

	log := s.log.WithComponent("sink").WithFields(logger.Fields{
		"operation": "upload_to_s3",
		"key":       key,
		"data_size": len(data),
	})
	log.Debug("uploading to S3")

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"format":          s.format,
			"compression":     s.compression,
			"nfowide-version": s.version,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", s.s3Cfg.Bucket, err)
	}

	atomic.AddInt64(&s.uploads, 1)
	logger.IncrementUploads()
	return nil
}

// writeFileAtomic writes data to a temp file next to dst and renames it
// into place.
func writeFileAtomic(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", dst, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename into %s: %w", dst, err)
	}
	return nil
}

// Stats returns the sink totals so far.
func (s *Sink) Stats() metrics.WriterStats {
	return metrics.WriterStats{
		TablesWritten: atomic.LoadInt64(&s.tablesWritten),
		BytesWritten:  atomic.LoadInt64(&s.bytesWritten),
		Uploads:       atomic.LoadInt64(&s.uploads),
		ErrorsCount:   atomic.LoadInt64(&s.errorsCount),
	}
}

// Report logs the sink totals.
func (s *Sink) Report() {
	metrics.ReportWriter(s.log, "sink", s.Stats())
}
