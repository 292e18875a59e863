package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"bgg-ranking/models"
	"bgg-ranking/utils"
)

// PostgresWriter persists scored games to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, retrying the ping
// with back-off, runs schema migrations and returns a ready writer.
func NewPostgresWriter(dsn string, retry *utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1}
	}
	if retry.BaseDelay == 0 {
		retry.BaseDelay = time.Second
	}
	if err := retry.Do("postgres ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS games (
			id               BIGINT PRIMARY KEY,
			name             TEXT             NOT NULL DEFAULT '',
			year             INTEGER          NOT NULL DEFAULT 0,
			users_rated      DOUBLE PRECISION NOT NULL DEFAULT 0,
			average          DOUBLE PRECISION NOT NULL DEFAULT 0,
			bayes_average    DOUBLE PRECISION NOT NULL DEFAULT 0,
			rank             DOUBLE PRECISION,
			owned            DOUBLE PRECISION NOT NULL DEFAULT 0,
			trading          DOUBLE PRECISION NOT NULL DEFAULT 0,
			wanting          DOUBLE PRECISION NOT NULL DEFAULT 0,
			wishing          DOUBLE PRECISION NOT NULL DEFAULT 0,
			popularity_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			bayesian_rating  DOUBLE PRECISION,
			popularity_rank  DOUBLE PRECISION,
			rank_difference  DOUBLE PRECISION
		);

		CREATE INDEX IF NOT EXISTS idx_games_rank       ON games(rank);
		CREATE INDEX IF NOT EXISTS idx_games_popularity ON games(popularity_score);
	`)
	return err
}

// Clear deletes all existing games from the table.
func (pw *PostgresWriter) Clear() error {
	if _, err := pw.db.Exec("DELETE FROM games"); err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}
	return nil
}

// Write batch-inserts all games, replacing the previous run's rows.
func (pw *PostgresWriter) Write(games []*models.Game) error {
	if len(games) == 0 {
		return nil
	}
	if err := pw.Clear(); err != nil {
		return err
	}

	return inBatches(games, 50, func(batch []*models.Game) error {
		query, args := gameBatch(batch, func(n int) string {
			return fmt.Sprintf("$%d", n)
		}, " ON CONFLICT (id) DO NOTHING")
		if _, err := pw.db.Exec(query, args...); err != nil {
			return fmt.Errorf("postgres: insert batch: %w", err)
		}
		return nil
	})
}

// FetchAll retrieves all stored games ordered by id.
func (pw *PostgresWriter) FetchAll() ([]*models.Game, error) {
	rows, err := pw.db.Query(selectGames)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	games, err := scanGames(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return games, nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
