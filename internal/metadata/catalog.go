package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DataFile describes one wide table written by a run.
type DataFile struct {
	Path        string         `json:"path"`
	Format      string         `json:"format"`
	FileSize    int64          `json:"file_size_in_bytes"`
	RecordCount int64          `json:"record_count"`
	ColumnCount int            `json:"column_count"`
	Partition   map[string]any `json:"partition"`
	Timestamp   time.Time      `json:"written_at"`
}

// SymbolOutcome is the result recorded for one symbol.
type SymbolOutcome struct {
	Symbol  string `json:"symbol"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// Manifest lists everything one run produced.
type Manifest struct {
	RunID     string          `json:"run-id"`
	TradeDate string          `json:"trade-date"`
	Files     []DataFile      `json:"files"`
	Symbols   []SymbolOutcome `json:"symbols"`
}

// Snapshot points at the manifest of one run.
type Snapshot struct {
	RunID       string `json:"run-id"`
	TimestampMs int64  `json:"timestamp-ms"`
	Manifest    string `json:"manifest"`
	TradeDate   string `json:"trade-date"`
	Files       int    `json:"files"`
}

// TableMetadata is the metadata.json kept next to the outputs. Each run
// appends a snapshot.
type TableMetadata struct {
	FormatVersion int        `json:"format-version"`
	CatalogUUID   string     `json:"catalog-uuid"`
	Location      string     `json:"location"`
	CurrentRunID  string     `json:"current-run-id"`
	Snapshots     []Snapshot `json:"snapshots"`
	LastUpdatedMs int64      `json:"last-updated-ms"`
}

// Catalog collects the files and symbol outcomes of one run and writes
// them under <basePath>/metadata. It is safe for concurrent use.
type Catalog struct {
	basePath  string
	runID     string
	tradeDate time.Time

	mu       sync.Mutex
	files    []DataFile
	outcomes []SymbolOutcome
}

// NewCatalog starts a catalog for a run over tradeDate rooted at basePath.
func NewCatalog(basePath string, tradeDate time.Time) *Catalog {
	return &Catalog{
		basePath:  basePath,
		runID:     uuid.NewString(),
		tradeDate: tradeDate,
	}
}

func (c *Catalog) RunID() string { return c.runID }

// AddFile records a persisted table.
func (c *Catalog) AddFile(df DataFile) {
	if df.Timestamp.IsZero() {
		df.Timestamp = time.Now().UTC()
	}
	c.mu.Lock()
	c.files = append(c.files, df)
	c.mu.Unlock()
}

// RecordOutcome records how one symbol ended.
func (c *Catalog) RecordOutcome(symbol, outcome string, err error) {
	o := SymbolOutcome{Symbol: symbol, Outcome: outcome}
	if err != nil {
		o.Error = err.Error()
	}
	c.mu.Lock()
	c.outcomes = append(c.outcomes, o)
	c.mu.Unlock()
}

// Commit writes manifest-<run>.json and appends a snapshot to
// metadata.json. It returns the manifest path.
func (c *Catalog) Commit() (string, error) {
	c.mu.Lock()
	manifest := Manifest{
		RunID:     c.runID,
		TradeDate: c.tradeDate.Format("2006-01-02"),
		Files:     append([]DataFile(nil), c.files...),
		Symbols:   append([]SymbolOutcome(nil), c.outcomes...),
	}
	c.mu.Unlock()

	sort.Slice(manifest.Files, func(i, j int) bool { return manifest.Files[i].Path < manifest.Files[j].Path })
	sort.Slice(manifest.Symbols, func(i, j int) bool { return manifest.Symbols[i].Symbol < manifest.Symbols[j].Symbol })

	dir := filepath.Join(c.basePath, "metadata")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create metadata dir: %w", err)
	}

	manifestFile := fmt.Sprintf("manifest-%s.json", c.runID)
	manifestPath := filepath.Join(dir, manifestFile)
	if err := writeJSON(manifestPath, manifest); err != nil {
		return "", err
	}

	tm, err := c.readTableMetadata()
	if err != nil {
		return "", err
	}
	now := time.Now()
	tm.Snapshots = append(tm.Snapshots, Snapshot{
		RunID:       c.runID,
		TimestampMs: now.UnixMilli(),
		Manifest:    manifestFile,
		TradeDate:   manifest.TradeDate,
		Files:       len(manifest.Files),
	})
	tm.CurrentRunID = c.runID
	tm.LastUpdatedMs = now.UnixMilli()
	if err := writeJSON(filepath.Join(dir, "metadata.json"), tm); err != nil {
		return "", err
	}
	return manifestPath, nil
}

func (c *Catalog) readTableMetadata() (TableMetadata, error) {
	path := filepath.Join(c.basePath, "metadata", "metadata.json")
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return TableMetadata{
			FormatVersion: 1,
			CatalogUUID:   uuid.NewString(),
			Location:      c.basePath,
		}, nil
	}
	if err != nil {
		return TableMetadata{}, fmt.Errorf("read %s: %w", path, err)
	}
	var tm TableMetadata
	if err := json.Unmarshal(b, &tm); err != nil {
		return TableMetadata{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return tm, nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
