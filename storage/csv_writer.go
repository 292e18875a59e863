package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"bgg-ranking/models"
)

// CSVWriter writes a Dataset to a CSV file with a header row.
type CSVWriter struct {
	path   string
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path.
// Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	return &CSVWriter{path: path, file: f, writer: csv.NewWriter(f)}, nil
}

// Write writes the header and every row of ds. Missing cells are empty.
func (c *CSVWriter) Write(ds *models.Dataset) error {
	if err := WriteDataset(c.writer, ds); err != nil {
		return fmt.Errorf("csv: write %q: %w", c.path, err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		_ = c.file.Close()
		return err
	}
	return c.file.Close()
}

// WriteDataset streams ds through w and flushes it.
func WriteDataset(w *csv.Writer, ds *models.Dataset) error {
	if err := w.Write(ds.Names()); err != nil {
		return err
	}
	cols := ds.Columns()
	row := make([]string, len(cols))
	for i := 0; i < ds.Len(); i++ {
		for j, col := range cols {
			row[j] = col.String(i)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// SaveCSV writes ds to path in one call.
func SaveCSV(path string, ds *models.Dataset) (err error) {
	w, err := NewCSVWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	return w.Write(ds)
}

// Fprint writes ds as CSV to an arbitrary writer.
func Fprint(out io.Writer, ds *models.Dataset) error {
	return WriteDataset(csv.NewWriter(out), ds)
}
