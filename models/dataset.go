package models

import (
	"strconv"
)

// Kind is the storage type of a Dataset column.
type Kind int

const (
	Text Kind = iota
	Numeric
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "text"
}

// Column holds one named column. Exactly one of Num or Str is populated
// depending on Kind. Null[i] marks row i as missing regardless of kind.
type Column struct {
	Name string
	Kind Kind
	Num  []float64
	Str  []string
	Null []bool
}

// NewNumericColumn builds a numeric column with no missing cells.
func NewNumericColumn(name string, values []float64) *Column {
	return &Column{
		Name: name,
		Kind: Numeric,
		Num:  append([]float64(nil), values...),
		Null: make([]bool, len(values)),
	}
}

// NewTextColumn builds a text column with no missing cells.
func NewTextColumn(name string, values []string) *Column {
	return &Column{
		Name: name,
		Kind: Text,
		Str:  append([]string(nil), values...),
		Null: make([]bool, len(values)),
	}
}

// Len returns the number of rows in the column.
func (c *Column) Len() int { return len(c.Null) }

// Float returns the numeric value of row i and whether it is present.
func (c *Column) Float(i int) (float64, bool) {
	if c.Kind != Numeric || c.Null[i] {
		return 0, false
	}
	return c.Num[i], true
}

// String returns the textual form of row i; missing cells render as "".
func (c *Column) String(i int) string {
	if c.Null[i] {
		return ""
	}
	if c.Kind == Numeric {
		return strconv.FormatFloat(c.Num[i], 'f', -1, 64)
	}
	return c.Str[i]
}

// Present returns the non-missing numeric values in row order.
func (c *Column) Present() []float64 {
	out := make([]float64, 0, len(c.Num))
	for i, v := range c.Num {
		if !c.Null[i] {
			out = append(out, v)
		}
	}
	return out
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	cp := &Column{Name: c.Name, Kind: c.Kind, Null: append([]bool(nil), c.Null...)}
	if c.Num != nil {
		cp.Num = append([]float64(nil), c.Num...)
	}
	if c.Str != nil {
		cp.Str = append([]string(nil), c.Str...)
	}
	return cp
}

// pick returns a new column containing only the given rows, in that order.
func (c *Column) pick(rows []int) *Column {
	cp := &Column{Name: c.Name, Kind: c.Kind, Null: make([]bool, len(rows))}
	if c.Kind == Numeric {
		cp.Num = make([]float64, len(rows))
	} else {
		cp.Str = make([]string, len(rows))
	}
	for j, i := range rows {
		cp.Null[j] = c.Null[i]
		if c.Kind == Numeric {
			cp.Num[j] = c.Num[i]
		} else {
			cp.Str[j] = c.Str[i]
		}
	}
	return cp
}

// Dataset is an in-memory table of equally sized named columns. Stages
// treat a Dataset as a value: transformations return a new Dataset and
// leave their input untouched.
type Dataset struct {
	Source  string
	columns []*Column
	rows    int
}

// NewDataset assembles a Dataset from columns. All columns must have the
// same length; later columns replace earlier ones with the same name.
func NewDataset(source string, cols ...*Column) *Dataset {
	ds := &Dataset{Source: source}
	for _, c := range cols {
		ds.setColumn(c)
	}
	return ds
}

func (d *Dataset) setColumn(c *Column) {
	if len(d.columns) == 0 {
		d.rows = c.Len()
	}
	if c.Len() != d.rows {
		panic("models: column " + c.Name + " has " + strconv.Itoa(c.Len()) +
			" rows, dataset has " + strconv.Itoa(d.rows))
	}
	for i, existing := range d.columns {
		if existing.Name == c.Name {
			d.columns[i] = c
			return
		}
	}
	d.columns = append(d.columns, c)
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return d.rows }

// Width returns the number of columns.
func (d *Dataset) Width() int { return len(d.columns) }

// Columns returns the columns in order. Callers must not modify them.
func (d *Dataset) Columns() []*Column { return d.columns }

// Names returns the column names in order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks a column up by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	for _, c := range d.columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Has reports whether every named column exists.
func (d *Dataset) Has(names ...string) bool {
	return len(d.Missing(names...)) == 0
}

// Missing returns the subset of names that are not columns of d.
func (d *Dataset) Missing(names ...string) []string {
	var missing []string
	for _, n := range names {
		if _, ok := d.Column(n); !ok {
			missing = append(missing, n)
		}
	}
	return missing
}

// Require returns a MissingColumnError when any named column is absent.
func (d *Dataset) Require(names ...string) error {
	if missing := d.Missing(names...); len(missing) > 0 {
		return &MissingColumnError{Dataset: d.Source, Columns: missing}
	}
	return nil
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	cp := &Dataset{Source: d.Source, rows: d.rows, columns: make([]*Column, len(d.columns))}
	for i, c := range d.columns {
		cp.columns[i] = c.Clone()
	}
	return cp
}

// WithColumn returns a copy of d with c added, or replacing the column of
// the same name in place.
func (d *Dataset) WithColumn(c *Column) *Dataset {
	cp := d.Clone()
	cp.setColumn(c)
	return cp
}

// Select returns a new Dataset containing rows in the given order.
func (d *Dataset) Select(rows []int) *Dataset {
	cp := &Dataset{Source: d.Source, rows: len(rows), columns: make([]*Column, len(d.columns))}
	for i, c := range d.columns {
		cp.columns[i] = c.pick(rows)
	}
	return cp
}

// Filter returns the rows for which keep returns true.
func (d *Dataset) Filter(keep func(row int) bool) *Dataset {
	var rows []int
	for i := 0; i < d.rows; i++ {
		if keep(i) {
			rows = append(rows, i)
		}
	}
	return d.Select(rows)
}

// Record returns row i as a header→text map.
func (d *Dataset) Record(i int) map[string]string {
	rec := make(map[string]string, len(d.columns))
	for _, c := range d.columns {
		rec[c.Name] = c.String(i)
	}
	return rec
}
