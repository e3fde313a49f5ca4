// Command nfoconvert turns a wide feather or parquet table into CSV.
package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"

	"nfowide/logger"
	"nfowide/reader"
	"nfowide/writer"
)

func main() {
	log := logger.GetLogger()

	in := flag.String("in", "", "Path to a .feather or .parquet wide table")
	out := flag.String("out", "", "CSV output path (default: input name with .csv)")
	flag.Parse()

	if *in == "" {
		log.Error("-in is required")
		os.Exit(2)
	}
	if *out == "" {
		*out = strings.TrimSuffix(*in, filepath.Ext(*in)) + ".csv"
	}

	table, err := reader.ReadTable(*in)
	if err != nil {
		log.WithError(err).Error("failed to read table")
		os.Exit(1)
	}

	f, err := os.Create(*out)
	if err != nil {
		log.WithError(err).Error("failed to create output file")
		os.Exit(1)
	}
	if err := writer.WriteCSV(f, table); err != nil {
		f.Close()
		log.WithError(err).Error("failed to write csv")
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		log.WithError(err).Error("failed to close output file")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"input":   *in,
		"output":  *out,
		"columns": len(table.Columns),
	}).Info("conversion complete")
}
