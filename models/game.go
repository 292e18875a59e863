package models

import (
	"database/sql"
	"strconv"
)

// Column names of the games export after name normalisation, plus the
// columns the pipeline derives.
const (
	ColID             = "id"
	ColName           = "primary"
	ColYear           = "yearpublished"
	ColUsersRated     = "usersrated"
	ColAverage        = "average"
	ColBayesAverage   = "bayesaverage"
	ColOwned          = "owned"
	ColTrading        = "trading"
	ColWanting        = "wanting"
	ColWishing        = "wishing"
	ColPopularity     = "popularity_score"
	ColBayesianRating = "bayesian_rating"
	ColPopularityRank = "popularity_rank"
	ColRankDifference = "rank_difference"
)

// GameColumns lists the columns a scored games dataset must carry.
var GameColumns = []string{
	ColID, ColUsersRated, ColAverage, ColOwned, ColTrading, ColWanting, ColWishing,
}

// Game is one row of the scored games stage.
type Game struct {
	ID              int64
	Name            string
	Year            int
	UsersRated      float64
	Average         float64
	BayesAverage    float64
	Rank            sql.NullFloat64
	Owned           float64
	Trading         float64
	Wanting         float64
	Wishing         float64
	PopularityScore float64
	BayesianRating  sql.NullFloat64
	PopularityRank  sql.NullFloat64
	RankDifference  sql.NullFloat64
}

// Priors are the dataset-wide constants of the Bayesian rating: M is the
// prior weight in votes and C the global mean rating.
type Priors struct {
	M float64
	C float64
}

// RankingReport holds the computed analytics over the scored games.
type RankingReport struct {
	TotalGames            int
	RankedGames           int
	Priors                Priors
	Correlations          map[string]float64
	TopPopular            []*Game
	TopBayesian           []*Game
	PopularPoorlyRanked   []*Game
	UnpopularHighlyRanked []*Game
	Threshold             float64
}

// GamesFromDataset converts a scored dataset into Game records. The
// required columns are checked up front; rankCol and the derived columns
// are optional and stay null when absent.
func GamesFromDataset(ds *Dataset, rankCol string) ([]*Game, error) {
	if err := ds.Require(GameColumns...); err != nil {
		return nil, err
	}

	num := func(name string, i int) (float64, bool) {
		c, ok := ds.Column(name)
		if !ok {
			return 0, false
		}
		return c.Float(i)
	}
	nullable := func(name string, i int) sql.NullFloat64 {
		v, ok := num(name, i)
		return sql.NullFloat64{Float64: v, Valid: ok}
	}
	value := func(name string, i int) float64 {
		v, _ := num(name, i)
		return v
	}

	idCol, _ := ds.Column(ColID)
	nameCol, hasName := ds.Column(ColName)
	if !hasName {
		nameCol, hasName = ds.Column("name")
	}

	games := make([]*Game, 0, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		id, err := strconv.ParseInt(idCol.String(i), 10, 64)
		if err != nil {
			continue
		}
		g := &Game{
			ID:              id,
			Year:            int(value(ColYear, i)),
			UsersRated:      value(ColUsersRated, i),
			Average:         value(ColAverage, i),
			BayesAverage:    value(ColBayesAverage, i),
			Rank:            nullable(rankCol, i),
			Owned:           value(ColOwned, i),
			Trading:         value(ColTrading, i),
			Wanting:         value(ColWanting, i),
			Wishing:         value(ColWishing, i),
			PopularityScore: value(ColPopularity, i),
			BayesianRating:  nullable(ColBayesianRating, i),
			PopularityRank:  nullable(ColPopularityRank, i),
			RankDifference:  nullable(ColRankDifference, i),
		}
		if hasName {
			g.Name = nameCol.String(i)
		}
		games = append(games, g)
	}
	return games, nil
}
