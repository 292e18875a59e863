package services

import (
	"fmt"
	"strconv"

	"github.com/samber/lo"

	"bgg-ranking/models"
	"bgg-ranking/utils"
)

// Combiner joins cleaned tables on a shared identifier.
type Combiner struct {
	logger *utils.Logger
}

// NewCombiner creates a Combiner with the given logger.
func NewCombiner(logger *utils.Logger) *Combiner {
	return &Combiner{logger: logger}
}

// InnerJoin keeps only keys present in both tables. Non-key columns that
// exist on both sides get leftSuffix and rightSuffix; a suffixed name that
// is already in use gets a further _2, _3… suffix. Rows are emitted in left
// order, with right matches in right order; duplicate keys yield every
// pairing.
func (c *Combiner) InnerJoin(left, right *models.Dataset, key, leftSuffix, rightSuffix string) (*models.Dataset, error) {
	lk, lok := left.Column(key)
	rk, rok := right.Column(key)
	if !lok || !rok {
		return nil, fmt.Errorf("combiner: %q: %w", key, models.ErrNoSharedKey)
	}
	mixed := lk.Kind != rk.Kind

	present := lo.Filter(lo.Range(right.Len()), func(j int, _ int) bool { return !rk.Null[j] })
	index := lo.GroupBy(present, func(j int) string { return joinKey(rk, j, mixed) })

	var leftRows, rightRows []int
	for i := 0; i < left.Len(); i++ {
		if lk.Null[i] {
			continue
		}
		for _, j := range index[joinKey(lk, i, mixed)] {
			leftRows = append(leftRows, i)
			rightRows = append(rightRows, j)
		}
	}

	l := left.Select(leftRows)
	r := right.Select(rightRows)

	// Names that keep their spelling are reserved first so a suffixed name
	// never replaces them.
	taken := map[string]struct{}{key: {}}
	for _, name := range left.Names() {
		if !right.Has(name) {
			taken[name] = struct{}{}
		}
	}
	for _, name := range right.Names() {
		if !left.Has(name) {
			taken[name] = struct{}{}
		}
	}
	rename := func(col *models.Column, suffix string) {
		name := uniqueName(col.Name+suffix, taken)
		if name != col.Name+suffix {
			c.logger.Warn("[combiner] Column '%s' already exists, using '%s'", col.Name+suffix, name)
		}
		taken[name] = struct{}{}
		col.Name = name
	}

	cols := make([]*models.Column, 0, l.Width()+r.Width()-1)
	for _, col := range l.Columns() {
		if col.Name != key && right.Has(col.Name) {
			rename(col, leftSuffix)
		}
		cols = append(cols, col)
	}
	for _, col := range r.Columns() {
		if col.Name == key {
			continue
		}
		if left.Has(col.Name) {
			rename(col, rightSuffix)
		}
		cols = append(cols, col)
	}

	out := models.NewDataset(left.Source+"+"+right.Source, cols...)
	c.logger.Info("[combiner] Joined %d × %d rows on '%s' → %d rows (%d columns)",
		left.Len(), right.Len(), key, out.Len(), out.Width())
	return out, nil
}

// joinKey renders row i of a key column for matching. When the two key
// columns differ in kind, text keys that parse as numbers are rendered the
// way numeric cells are, so "2.0" matches 2.
func joinKey(col *models.Column, i int, mixed bool) string {
	if mixed && col.Kind == models.Text {
		if v, ok := parseNumber(col.Str[i]); ok {
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return col.String(i)
}
