package storage

import "bgg-ranking/models"

// GameWriter is the interface any scored-games sink must satisfy.
type GameWriter interface {
	Write(games []*models.Game) error
	FetchAll() ([]*models.Game, error)
	Close() error
}

var (
	_ GameWriter = (*PostgresWriter)(nil)
	_ GameWriter = (*SQLiteWriter)(nil)
)
