package services

import (
	"errors"
	"math"
	"testing"

	"bgg-ranking/models"
)

func engagementDataset() *models.Dataset {
	return models.NewDataset("games",
		models.NewNumericColumn(models.ColOwned, []float64{10, 100}),
		models.NewNumericColumn(models.ColWishing, []float64{3, 20}),
		models.NewNumericColumn(models.ColWanting, []float64{2, 5}),
		models.NewNumericColumn(models.ColTrading, []float64{1, 40}),
	)
}

func TestPopularityScore(t *testing.T) {
	s := NewScorer(newTestLogger())
	out, err := s.PopularityScore(engagementDataset())
	if err != nil {
		t.Fatalf("PopularityScore: %v", err)
	}
	score, _ := out.Column(models.ColPopularity)
	if v, _ := score.Float(0); v != 14 {
		t.Errorf("row 0: got %v, want 14", v)
	}
	if v, _ := score.Float(1); v != 85 {
		t.Errorf("row 1: got %v, want 85", v)
	}
}

func TestPopularityScoreMissingInputCell(t *testing.T) {
	s := NewScorer(newTestLogger())
	ds := engagementDataset()
	trading, _ := ds.Column(models.ColTrading)
	trading.Null[1] = true

	out, err := s.PopularityScore(ds)
	if err != nil {
		t.Fatal(err)
	}
	score, _ := out.Column(models.ColPopularity)
	if !score.Null[1] {
		t.Error("score must be missing when an input is missing")
	}
}

func TestPopularityScoreMissingColumns(t *testing.T) {
	s := NewScorer(newTestLogger())
	ds := models.NewDataset("games", models.NewNumericColumn(models.ColOwned, []float64{1}))

	_, err := s.PopularityScore(ds)
	var mc *models.MissingColumnError
	if !errors.As(err, &mc) {
		t.Fatalf("expected MissingColumnError, got %v", err)
	}
	if len(mc.Columns) != 3 {
		t.Errorf("missing columns: got %v", mc.Columns)
	}
}

func TestPopularityScoreKeepsExisting(t *testing.T) {
	s := NewScorer(newTestLogger())
	ds := models.NewDataset("games", models.NewNumericColumn(models.ColPopularity, []float64{42}))
	out, err := s.PopularityScore(ds)
	if err != nil {
		t.Fatal(err)
	}
	score, _ := out.Column(models.ColPopularity)
	if score.Num[0] != 42 {
		t.Errorf("existing score overwritten: %v", score.Num[0])
	}
}

func TestBayesianRatingZeroVotesIsGlobalMean(t *testing.T) {
	for _, R := range []float64{1, 5.5, 10} {
		if got := BayesianRating(0, R, 150, 6.42); got != 6.42 {
			t.Errorf("BayesianRating(0, %v, 150, 6.42) = %v; want 6.42", R, got)
		}
	}
	if got := BayesianRating(0, 9, 0, 6.5); got != 6.5 {
		t.Errorf("no votes and no prior: got %v, want 6.5", got)
	}
}

func TestBayesianRatingConvergesToRawAverage(t *testing.T) {
	const R, m, C = 8.7, 100.0, 6.0
	prev := math.Inf(1)
	for _, v := range []float64{1e2, 1e4, 1e6, 1e8} {
		gap := math.Abs(BayesianRating(v, R, m, C) - R)
		if gap >= prev {
			t.Errorf("gap did not shrink at v=%v: %v >= %v", v, gap, prev)
		}
		prev = gap
	}
	if prev > 1e-5 {
		t.Errorf("rating should approach R for large v, gap %v", prev)
	}
}

func TestComputePriorsAndApply(t *testing.T) {
	s := NewScorer(newTestLogger())
	avg := models.NewNumericColumn(models.ColAverage, []float64{8, 6, 7, 0})
	avg.Null[3] = true
	ds := models.NewDataset("games",
		models.NewNumericColumn(models.ColUsersRated, []float64{10, 30, 20, 40}),
		avg,
	)

	p, err := s.ComputePriors(ds, models.ColUsersRated, models.ColAverage)
	if err != nil {
		t.Fatalf("ComputePriors: %v", err)
	}
	if p.M != 25 {
		t.Errorf("M: got %v, want 25", p.M)
	}
	if p.C != 7 {
		t.Errorf("C: got %v, want 7", p.C)
	}

	out, err := s.ApplyBayesian(ds, models.ColUsersRated, models.ColAverage, p)
	if err != nil {
		t.Fatal(err)
	}
	rating, _ := out.Column(models.ColBayesianRating)
	want := (10.0/35)*8 + (25.0/35)*7
	if v, _ := rating.Float(0); math.Abs(v-want) > 1e-12 {
		t.Errorf("row 0: got %v, want %v", v, want)
	}
	if !rating.Null[3] {
		t.Error("row without an average must have a missing rating")
	}
}

func TestComputePriorsNoData(t *testing.T) {
	s := NewScorer(newTestLogger())
	ds := models.NewDataset("games",
		models.NewNumericColumn(models.ColUsersRated, nil),
		models.NewNumericColumn(models.ColAverage, nil),
	)
	if _, err := s.ComputePriors(ds, models.ColUsersRated, models.ColAverage); !errors.Is(err, ErrNoRatings) {
		t.Errorf("expected ErrNoRatings, got %v", err)
	}
}
