package services

import (
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"bgg-ranking/models"
	"bgg-ranking/utils"
)

// Columns produced by Aggregate.
const (
	ColReviewCount   = "review_count"
	ColReviewAverage = "review_average"
)

// ReviewAggregator collapses per-user review records into per-game totals.
type ReviewAggregator struct {
	logger *utils.Logger
}

// NewReviewAggregator creates a ReviewAggregator with the given logger.
func NewReviewAggregator(logger *utils.Logger) *ReviewAggregator {
	return &ReviewAggregator{logger: logger}
}

// Aggregate returns one row per key in first-seen order with the number of
// rated reviews and their mean. Rows with a missing key are ignored, and
// a key whose ratings are all missing gets a missing average.
func (a *ReviewAggregator) Aggregate(ds *models.Dataset, keyColumn, ratingColumn string) (*models.Dataset, error) {
	if err := ds.Require(keyColumn, ratingColumn); err != nil {
		return nil, err
	}
	keys, _ := ds.Column(keyColumn)
	ratings, _ := ds.Column(ratingColumn)
	if ratings.Kind != models.Numeric {
		return nil, &models.MissingColumnError{Dataset: ds.Source, Columns: []string{ratingColumn + " (numeric)"}}
	}

	var order []string
	scores := make(map[string][]float64)
	for i := 0; i < ds.Len(); i++ {
		if keys.Null[i] {
			continue
		}
		k := keys.String(i)
		if _, seen := scores[k]; !seen {
			scores[k] = nil
			order = append(order, k)
		}
		if v, ok := ratings.Float(i); ok {
			scores[k] = append(scores[k], v)
		}
	}

	keyOut := models.NewTextColumn(keyColumn, order)
	counts := lo.Map(order, func(k string, _ int) float64 { return float64(len(scores[k])) })
	avg := models.NewNumericColumn(ColReviewAverage, make([]float64, len(order)))
	for i, k := range order {
		if len(scores[k]) == 0 {
			avg.Null[i] = true
			continue
		}
		avg.Num[i] = stat.Mean(scores[k], nil)
	}

	a.logger.Info("[aggregator] %d reviews → %d games", ds.Len(), len(order))
	return models.NewDataset(ds.Source, keyOut, models.NewNumericColumn(ColReviewCount, counts), avg), nil
}
