// Package output serializes scraped coach records for dry runs and
// offline inspection.
package output

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/prevostgo/prevostgo/internal/inventory"
)

// Format selects the export encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// Writer serializes a batch of records.
type Writer interface {
	// WriteAll writes every record and flushes.
	WriteAll(records []inventory.Record) error
}

// NewWriter creates a writer for the given format.
func NewWriter(w io.Writer, format Format) (Writer, error) {
	switch format {
	case FormatJSON:
		return &jsonWriter{w: w, pretty: true}, nil
	case FormatJSONL:
		return &jsonlWriter{w: w}, nil
	case FormatYAML:
		return &yamlWriter{w: w}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// FormatForPath derives the format from a file extension. An unknown
// extension means JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}
