package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"bgg-ranking/models"
	"bgg-ranking/utils"
)

// CSVLoader reads delimited exports into Datasets.
type CSVLoader struct {
	logger *utils.Logger
	Comma  rune
}

// NewCSVLoader creates a comma-separated loader.
func NewCSVLoader(logger *utils.Logger) *CSVLoader {
	return &CSVLoader{logger: logger, Comma: ','}
}

// Load parses the file at path. A missing file yields an error wrapping
// models.ErrFileNotFound so callers can report it and move on.
func (l *CSVLoader) Load(path string) (*models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("[loader] File not found: %s", path)
			return nil, fmt.Errorf("csv: %s: %w", path, models.ErrFileNotFound)
		}
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	ds, err := ReadDataset(f, path, l.Comma)
	if err != nil {
		return nil, err
	}

	l.logger.Info("[loader] Data loaded from %s with %d rows and %d columns", path, ds.Len(), ds.Width())
	return ds, nil
}

// ReadDataset parses CSV from r. The first record is the header. A column
// is numeric when every non-empty cell parses as a float; empty cells are
// missing in either kind.
func ReadDataset(r io.Reader, source string, comma rune) (*models.Dataset, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return models.NewDataset(source), nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header of %s: %w", source, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	cells := make([][]string, len(header))
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read %s: %w", source, err)
		}
		for i := range header {
			v := ""
			if i < len(record) {
				v = record[i]
			}
			cells[i] = append(cells[i], v)
		}
	}

	cols := make([]*models.Column, len(header))
	for i, name := range header {
		cols[i] = inferColumn(name, cells[i])
	}
	return models.NewDataset(source, cols...), nil
}

func inferColumn(name string, raw []string) *models.Column {
	nums := make([]float64, len(raw))
	null := make([]bool, len(raw))
	numeric := true
	for i, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			null[i] = true
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			numeric = false
			break
		}
		if math.IsNaN(f) {
			null[i] = true
			continue
		}
		nums[i] = f
	}

	if numeric {
		return &models.Column{Name: name, Kind: models.Numeric, Num: nums, Null: null}
	}

	col := &models.Column{Name: name, Kind: models.Text, Str: make([]string, len(raw)), Null: make([]bool, len(raw))}
	for i, v := range raw {
		if strings.TrimSpace(v) == "" {
			col.Null[i] = true
			continue
		}
		col.Str[i] = v
	}
	return col
}
