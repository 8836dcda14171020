// Package connector reads and writes tabular files in the supported
// formats. Reads are lossless: cell text is preserved verbatim and
// missing-value interpretation is left to the dataset layer.
package connector

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"dataclean/internal/dataset"
)

var (
	// ErrUnsupportedFormat is returned for file extensions outside the
	// supported set.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrCorruptData is returned when a file matches a supported format
	// but cannot be parsed.
	ErrCorruptData = errors.New("corrupt data")
)

// SupportedExtensions lists the formats the connector understands.
var SupportedExtensions = []string{".csv", ".xlsx", ".xls", ".json", ".parquet"}

// IsSupported reports whether the path's extension maps to a known format.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Read loads a tabular file, choosing the format by extension.
func Read(path string) (*dataset.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".xlsx", ".xls":
		return readExcel(path)
	case ".json":
		return readJSON(path)
	case ".parquet":
		return readParquet(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Write persists a table, choosing the format by the path's extension.
// Column order is preserved in every format.
func Write(t *dataset.Table, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return writeCSV(t, path)
	case ".xlsx", ".xls":
		return writeExcel(t, path)
	case ".json":
		return writeJSON(t, path)
	case ".parquet":
		return writeParquet(t, path)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}
