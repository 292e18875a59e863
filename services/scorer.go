package services

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"bgg-ranking/models"
	"bgg-ranking/utils"
)

// popularityInputs are combined as owned + wishing + wanting - trading.
var popularityInputs = []string{models.ColOwned, models.ColWishing, models.ColWanting, models.ColTrading}

// Scorer derives the popularity score and the Bayesian rating.
type Scorer struct {
	logger *utils.Logger
}

// NewScorer creates a Scorer with the given logger.
func NewScorer(logger *utils.Logger) *Scorer {
	return &Scorer{logger: logger}
}

// PopularityScore adds popularity_score = owned + wishing + wanting -
// trading. A row missing any input gets a missing score. An existing
// popularity_score column is kept as is.
func (s *Scorer) PopularityScore(ds *models.Dataset) (*models.Dataset, error) {
	if ds.Has(models.ColPopularity) {
		s.logger.Debug("[scorer] '%s' already present, keeping it", models.ColPopularity)
		return ds.Clone(), nil
	}
	if err := ds.Require(popularityInputs...); err != nil {
		return nil, err
	}

	owned, _ := ds.Column(models.ColOwned)
	wishing, _ := ds.Column(models.ColWishing)
	wanting, _ := ds.Column(models.ColWanting)
	trading, _ := ds.Column(models.ColTrading)

	score := models.NewNumericColumn(models.ColPopularity, make([]float64, ds.Len()))
	for i := 0; i < ds.Len(); i++ {
		o, ok1 := owned.Float(i)
		wi, ok2 := wishing.Float(i)
		wa, ok3 := wanting.Float(i)
		tr, ok4 := trading.Float(i)
		if !(ok1 && ok2 && ok3 && ok4) {
			score.Null[i] = true
			continue
		}
		score.Num[i] = o + wi + wa - tr
	}

	s.logger.Info("[scorer] Popularity scores calculated for %d games", ds.Len())
	return ds.WithColumn(score), nil
}

// BayesianRating blends a raw average R backed by v votes with the global
// mean C using a prior weight of m votes. With no votes and no prior the
// result is C.
func BayesianRating(v, R, m, C float64) float64 {
	if v+m == 0 {
		return C
	}
	return (v/(v+m))*R + (m/(v+m))*C
}

// ErrNoRatings is returned when priors cannot be computed from a dataset.
var ErrNoRatings = errors.New("no rated rows to compute priors from")

// ComputePriors takes m as the median vote count and C as the mean raw
// average over rows where each value is present.
func (s *Scorer) ComputePriors(ds *models.Dataset, votesCol, averageCol string) (models.Priors, error) {
	if err := ds.Require(votesCol, averageCol); err != nil {
		return models.Priors{}, err
	}
	votes, _ := ds.Column(votesCol)
	avgs, _ := ds.Column(averageCol)
	if votes.Kind != models.Numeric || avgs.Kind != models.Numeric {
		return models.Priors{}, fmt.Errorf("scorer: %s and %s must be numeric", votesCol, averageCol)
	}

	v := votes.Present()
	r := avgs.Present()
	if len(v) == 0 || len(r) == 0 {
		return models.Priors{}, fmt.Errorf("scorer: %w", ErrNoRatings)
	}

	p := models.Priors{M: median(v), C: stat.Mean(r, nil)}
	s.logger.Info("[scorer] Priors: m (median votes) = %.2f, C (mean rating) = %.4f", p.M, p.C)
	return p, nil
}

// ApplyBayesian adds bayesian_rating using fixed priors for every row.
// Rows missing votes or average get a missing rating.
func (s *Scorer) ApplyBayesian(ds *models.Dataset, votesCol, averageCol string, p models.Priors) (*models.Dataset, error) {
	if err := ds.Require(votesCol, averageCol); err != nil {
		return nil, err
	}
	votes, _ := ds.Column(votesCol)
	avgs, _ := ds.Column(averageCol)

	rating := models.NewNumericColumn(models.ColBayesianRating, make([]float64, ds.Len()))
	for i := 0; i < ds.Len(); i++ {
		v, ok1 := votes.Float(i)
		r, ok2 := avgs.Float(i)
		if !ok1 || !ok2 {
			rating.Null[i] = true
			continue
		}
		rating.Num[i] = BayesianRating(v, r, p.M, p.C)
	}
	return ds.WithColumn(rating), nil
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
