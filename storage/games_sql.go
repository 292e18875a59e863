package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"bgg-ranking/models"
)

const gameColumnCount = 15

const insertGamesPrefix = `
	INSERT INTO games (id, name, year, users_rated, average, bayes_average, rank,
		owned, trading, wanting, wishing, popularity_score, bayesian_rating,
		popularity_rank, rank_difference)
	VALUES `

const selectGames = `
	SELECT id, name, year, users_rated, average, bayes_average, rank,
		owned, trading, wanting, wishing, popularity_score, bayesian_rating,
		popularity_rank, rank_difference
	FROM games
	ORDER BY id
`

// gameBatch builds a multi-row INSERT for batch; placeholder renders the
// n-th (1-based) bind parameter in the driver's dialect.
func gameBatch(batch []*models.Game, placeholder func(n int) string, suffix string) (string, []any) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*gameColumnCount)

	for idx, g := range batch {
		base := idx * gameColumnCount
		marks := make([]string, gameColumnCount)
		for k := range marks {
			marks[k] = placeholder(base + k + 1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(marks, ",")+")")
		valueArgs = append(valueArgs,
			g.ID, g.Name, g.Year, g.UsersRated, g.Average, g.BayesAverage, g.Rank,
			g.Owned, g.Trading, g.Wanting, g.Wishing, g.PopularityScore, g.BayesianRating,
			g.PopularityRank, g.RankDifference)
	}

	return insertGamesPrefix + strings.Join(valueStrings, ",") + suffix, valueArgs
}

func scanGames(rows *sql.Rows) ([]*models.Game, error) {
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		g := &models.Game{}
		if err := rows.Scan(
			&g.ID, &g.Name, &g.Year, &g.UsersRated, &g.Average, &g.BayesAverage, &g.Rank,
			&g.Owned, &g.Trading, &g.Wanting, &g.Wishing, &g.PopularityScore, &g.BayesianRating,
			&g.PopularityRank, &g.RankDifference,
		); err != nil {
			return nil, fmt.Errorf("scan game row: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// inBatches calls fn on consecutive slices of at most size games.
func inBatches(games []*models.Game, size int, fn func([]*models.Game) error) error {
	for i := 0; i < len(games); i += size {
		end := i + size
		if end > len(games) {
			end = len(games)
		}
		if err := fn(games[i:end]); err != nil {
			return err
		}
	}
	return nil
}
