package services

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"bgg-ranking/models"
	"bgg-ranking/utils"
)

// UnknownText fills text columns that have no value at all.
const UnknownText = "Unknown"

// Cleaner standardises raw exports: numeric coercion, default filling and
// column name normalisation.
type Cleaner struct {
	logger *utils.Logger
	lower  cases.Caser
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger, lower: cases.Lower(language.Und)}
}

// Clean runs the cleaning stage: names are normalised, rankColumn (given
// in its raw or normalised form) is coerced to numbers and every other
// column gets its defaults. The rank column keeps its missing markers so
// unranked rows can be told apart later.
func (c *Cleaner) Clean(ds *models.Dataset, rankColumn string) *models.Dataset {
	out := c.NormalizeNames(ds)

	rank := c.NormalizeName(rankColumn)
	coerced, err := c.CoerceNumeric(out, rank)
	if err != nil {
		c.logger.Warn("[cleaner] %v, rank coercion skipped", err)
		return c.FillDefaults(out)
	}
	return c.FillDefaults(coerced, rank)
}

// CoerceNumeric converts column to numbers. Cells that do not parse become
// missing; other columns are untouched.
func (c *Cleaner) CoerceNumeric(ds *models.Dataset, column string) (*models.Dataset, error) {
	if err := ds.Require(column); err != nil {
		return nil, err
	}
	col, _ := ds.Column(column)
	if col.Kind == models.Numeric {
		return ds.Clone(), nil
	}

	out := &models.Column{
		Name: col.Name,
		Kind: models.Numeric,
		Num:  make([]float64, col.Len()),
		Null: make([]bool, col.Len()),
	}
	invalid := 0
	for i := 0; i < col.Len(); i++ {
		if col.Null[i] {
			out.Null[i] = true
			continue
		}
		v, ok := parseNumber(col.Str[i])
		if !ok {
			out.Null[i] = true
			invalid++
			continue
		}
		out.Num[i] = v
	}

	c.logger.Info("[cleaner] Non-numeric values in '%s' converted to missing (%d cells)", column, invalid)
	return ds.WithColumn(out), nil
}

// FillDefaults fills missing numeric cells with 0 and missing text cells
// with the column's most frequent value. Columns listed in skip are copied
// unchanged.
func (c *Cleaner) FillDefaults(ds *models.Dataset, skip ...string) *models.Dataset {
	skipped := make(map[string]struct{}, len(skip))
	for _, s := range skip {
		skipped[s] = struct{}{}
	}

	out := ds.Clone()
	for _, col := range out.Columns() {
		if _, ok := skipped[col.Name]; ok {
			continue
		}
		filled := 0
		fill := UnknownText
		if col.Kind == models.Text {
			fill = mode(col)
		}
		for i := range col.Null {
			if !col.Null[i] {
				continue
			}
			if col.Kind == models.Numeric {
				col.Num[i] = 0
			} else {
				col.Str[i] = fill
			}
			col.Null[i] = false
			filled++
		}
		if filled > 0 {
			c.logger.Debug("[cleaner] Filled %d missing cells in '%s'", filled, col.Name)
		}
	}
	return out
}

// NormalizeNames lowercases names and replaces spaces with underscores.
// A name that collides with an earlier column gets the first free _2, _3…
// suffix, so the result is unique and normalising again changes nothing.
func (c *Cleaner) NormalizeNames(ds *models.Dataset) *models.Dataset {
	taken := make(map[string]struct{}, ds.Width())
	cols := make([]*models.Column, 0, ds.Width())

	for _, col := range ds.Columns() {
		name := c.NormalizeName(col.Name)
		if unique := uniqueName(name, taken); unique != name {
			c.logger.Warn("[cleaner] Column '%s' collides after normalisation, renamed to '%s'", col.Name, unique)
			name = unique
		}
		taken[name] = struct{}{}

		cp := col.Clone()
		cp.Name = name
		cols = append(cols, cp)
	}
	return models.NewDataset(ds.Source, cols...)
}

// NormalizeName applies the column naming rule to a single name.
func (c *Cleaner) NormalizeName(name string) string {
	return strings.ReplaceAll(c.lower.String(strings.TrimSpace(name)), " ", "_")
}

// uniqueName returns name, or name with the first free _2, _3… suffix when
// it is already taken.
func uniqueName(name string, taken map[string]struct{}) string {
	if _, dup := taken[name]; !dup {
		return name
	}
	for n := 2; ; n++ {
		candidate := name + "_" + strconv.Itoa(n)
		if _, dup := taken[candidate]; !dup {
			return candidate
		}
	}
}

// mode returns the most frequent present value of a text column, the
// first one seen on ties, or UnknownText when nothing is present.
func mode(col *models.Column) string {
	counts := make(map[string]int)
	var order []string
	for i, v := range col.Str {
		if col.Null[i] {
			continue
		}
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}

	best, bestCount := UnknownText, 0
	for _, v := range order {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
