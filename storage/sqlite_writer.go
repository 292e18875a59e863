package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"bgg-ranking/models"
)

// SQLiteWriter persists scored games to a local SQLite file.
type SQLiteWriter struct {
	db *sql.DB
}

// NewSQLiteWriter opens (or creates) the database at path and ensures the
// games table exists.
func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("sqlite: create output dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	sw := &SQLiteWriter{db: db}
	if err := sw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return sw, nil
}

func (sw *SQLiteWriter) migrate() error {
	_, err := sw.db.Exec(`
		CREATE TABLE IF NOT EXISTS games (
			id               INTEGER PRIMARY KEY,
			name             TEXT    NOT NULL DEFAULT '',
			year             INTEGER NOT NULL DEFAULT 0,
			users_rated      REAL    NOT NULL DEFAULT 0,
			average          REAL    NOT NULL DEFAULT 0,
			bayes_average    REAL    NOT NULL DEFAULT 0,
			rank             REAL,
			owned            REAL    NOT NULL DEFAULT 0,
			trading          REAL    NOT NULL DEFAULT 0,
			wanting          REAL    NOT NULL DEFAULT 0,
			wishing          REAL    NOT NULL DEFAULT 0,
			popularity_score REAL    NOT NULL DEFAULT 0,
			bayesian_rating  REAL,
			popularity_rank  REAL,
			rank_difference  REAL
		);
		CREATE INDEX IF NOT EXISTS idx_games_rank ON games(rank);
	`)
	return err
}

// Write replaces the table contents with games inside one transaction.
func (sw *SQLiteWriter) Write(games []*models.Game) error {
	tx, err := sw.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM games"); err != nil {
		return fmt.Errorf("sqlite: clear: %w", err)
	}

	err = inBatches(games, 50, func(batch []*models.Game) error {
		query, args := gameBatch(batch, func(int) string { return "?" }, " ON CONFLICT (id) DO NOTHING")
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("sqlite: insert batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return tx.Commit()
}

// FetchAll retrieves all stored games ordered by id.
func (sw *SQLiteWriter) FetchAll() ([]*models.Game, error) {
	rows, err := sw.db.Query(selectGames)
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetch all: %w", err)
	}
	games, err := scanGames(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	return games, nil
}

func (sw *SQLiteWriter) Close() error {
	return sw.db.Close()
}
