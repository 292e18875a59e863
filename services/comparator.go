package services

import (
	"errors"
	"fmt"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"bgg-ranking/models"
	"bgg-ranking/utils"
)

// ColRankChange is added by RankChange.
const ColRankChange = "rank_change"

// Direction orders TopN.
type Direction int

const (
	Descending Direction = iota
	Ascending
)

// ErrInsufficientData is returned when a statistic needs more rows.
var ErrInsufficientData = errors.New("not enough rows")

// DiscrepancyResult holds the compared rows and the two flagged subsets.
// RankDifference is officialRank - popularityRank: positive means the
// official rank is worse than popularity suggests. Annotated is the full
// input with both columns added, missing on unranked rows.
type DiscrepancyResult struct {
	Compared              *models.Dataset
	Annotated             *models.Dataset
	PopularPoorlyRanked   *models.Dataset
	UnpopularHighlyRanked *models.Dataset
	Threshold             float64
}

// Comparator ranks games by different criteria and flags disagreements.
type Comparator struct {
	logger *utils.Logger
}

// NewComparator creates a Comparator with the given logger.
func NewComparator(logger *utils.Logger) *Comparator {
	return &Comparator{logger: logger}
}

// TopN returns the n rows with the largest (Descending) or smallest
// (Ascending) values of column. Rows missing the value are left out and
// equal values keep their original order.
func (c *Comparator) TopN(ds *models.Dataset, column string, n int, dir Direction) (*models.Dataset, error) {
	if err := ds.Require(column); err != nil {
		return nil, err
	}
	col, _ := ds.Column(column)
	if col.Kind != models.Numeric {
		return nil, fmt.Errorf("comparator: top-n on non-numeric column %q", column)
	}

	rows := lo.Filter(lo.Range(ds.Len()), func(i int, _ int) bool { return !col.Null[i] })
	sort.SliceStable(rows, func(a, b int) bool {
		if dir == Ascending {
			return col.Num[rows[a]] < col.Num[rows[b]]
		}
		return col.Num[rows[a]] > col.Num[rows[b]]
	})
	if n >= 0 && n < len(rows) {
		rows = rows[:n]
	}
	return ds.Select(rows), nil
}

// Discrepancies drops rows without rankCol, ranks popularityCol in
// descending order and splits rows whose rank difference exceeds the
// threshold in either direction. Adds popularity_rank and rank_difference.
func (c *Comparator) Discrepancies(ds *models.Dataset, popularityCol, rankCol string, threshold float64) (*DiscrepancyResult, error) {
	if err := ds.Require(popularityCol, rankCol); err != nil {
		return nil, err
	}
	rank, _ := ds.Column(rankCol)
	pop, _ := ds.Column(popularityCol)
	if rank.Kind != models.Numeric || pop.Kind != models.Numeric {
		return nil, fmt.Errorf("comparator: %s and %s must be numeric", popularityCol, rankCol)
	}

	var keep []int
	for i := 0; i < ds.Len(); i++ {
		if !rank.Null[i] {
			keep = append(keep, i)
		}
	}
	ranked := ds.Select(keep)
	rank, _ = ranked.Column(rankCol)
	pop, _ = ranked.Column(popularityCol)

	popRank := DescendingRank(pop)
	popRank.Name = models.ColPopularityRank

	diff := models.NewNumericColumn(models.ColRankDifference, make([]float64, ranked.Len()))
	for i := 0; i < ranked.Len(); i++ {
		if popRank.Null[i] {
			diff.Null[i] = true
			continue
		}
		diff.Num[i] = rank.Num[i] - popRank.Num[i]
	}

	compared := ranked.WithColumn(popRank).WithColumn(diff)
	res := &DiscrepancyResult{
		Compared:  compared,
		Annotated: ds.WithColumn(spread(popRank, keep, ds.Len())).WithColumn(spread(diff, keep, ds.Len())),
		PopularPoorlyRanked: compared.Filter(func(i int) bool {
			return !diff.Null[i] && diff.Num[i] > threshold
		}),
		UnpopularHighlyRanked: compared.Filter(func(i int) bool {
			return !diff.Null[i] && diff.Num[i] < -threshold
		}),
		Threshold: threshold,
	}

	c.logger.Info("[comparator] Games that are popular but poorly ranked: %d", res.PopularPoorlyRanked.Len())
	c.logger.Info("[comparator] Games that are unpopular but highly ranked: %d", res.UnpopularHighlyRanked.Len())
	return res, nil
}

// spread places the values of col at rows of a table n rows long; every
// other row is missing.
func spread(col *models.Column, rows []int, n int) *models.Column {
	out := models.NewNumericColumn(col.Name, make([]float64, n))
	for i := range out.Null {
		out.Null[i] = true
	}
	for j, i := range rows {
		out.Num[i] = col.Num[j]
		out.Null[i] = col.Null[j]
	}
	return out
}

// DescendingRank ranks col so the largest value is 1. Ties share the mean
// of the positions they span; missing cells stay missing.
func DescendingRank(col *models.Column) *models.Column {
	out := models.NewNumericColumn(col.Name, make([]float64, col.Len()))
	rows := make([]int, 0, col.Len())
	for i := 0; i < col.Len(); i++ {
		if col.Null[i] {
			out.Null[i] = true
			continue
		}
		rows = append(rows, i)
	}
	sort.SliceStable(rows, func(a, b int) bool { return col.Num[rows[a]] > col.Num[rows[b]] })

	for start := 0; start < len(rows); {
		end := start + 1
		for end < len(rows) && col.Num[rows[end]] == col.Num[rows[start]] {
			end++
		}
		// positions start+1 … end share their mean
		shared := float64(start+1+end) / 2
		for _, r := range rows[start:end] {
			out.Num[r] = shared
		}
		start = end
	}
	return out
}

// Correlation returns the Pearson correlation of two numeric columns over
// rows where both are present.
func (c *Comparator) Correlation(ds *models.Dataset, colA, colB string) (float64, error) {
	if err := ds.Require(colA, colB); err != nil {
		return 0, err
	}
	a, _ := ds.Column(colA)
	b, _ := ds.Column(colB)
	if a.Kind != models.Numeric || b.Kind != models.Numeric {
		return 0, fmt.Errorf("comparator: correlation needs numeric %s and %s", colA, colB)
	}

	var x, y []float64
	for i := 0; i < ds.Len(); i++ {
		av, ok1 := a.Float(i)
		bv, ok2 := b.Float(i)
		if ok1 && ok2 {
			x = append(x, av)
			y = append(y, bv)
		}
	}
	if len(x) < 2 {
		return 0, fmt.Errorf("comparator: correlation of %s and %s: %w", colA, colB, ErrInsufficientData)
	}

	r := stat.Correlation(x, y, nil)
	c.logger.Info("[comparator] Correlation between %s and %s: %.4f", colA, colB, r)
	return r, nil
}

// RankChange adds rank_change = fromCol - toCol; positive means the game
// climbed between the two snapshots.
func (c *Comparator) RankChange(ds *models.Dataset, fromCol, toCol string) (*models.Dataset, error) {
	if err := ds.Require(fromCol, toCol); err != nil {
		return nil, err
	}
	from, _ := ds.Column(fromCol)
	to, _ := ds.Column(toCol)

	change := models.NewNumericColumn(ColRankChange, make([]float64, ds.Len()))
	for i := 0; i < ds.Len(); i++ {
		f, ok1 := from.Float(i)
		t, ok2 := to.Float(i)
		if !ok1 || !ok2 {
			change.Null[i] = true
			continue
		}
		change.Num[i] = f - t
	}
	return ds.WithColumn(change), nil
}
